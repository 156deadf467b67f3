// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package propagation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/pqconsensus/propagation"
	"github.com/luxfi/pqconsensus/wire"
)

func TestChannelsPublishRoutesByTopic(t *testing.T) {
	require := require.New(t)
	ch := propagation.NewChannels(4)

	env := wire.Envelope{Version: wire.Version, Kind: wire.KindQueryVertex, Body: []byte("x")}
	require.True(ch.Publish(propagation.TopicConsensus, env))

	select {
	case got := <-ch.Consensus:
		require.Equal(env, got)
	default:
		t.Fatal("expected envelope on consensus channel")
	}
}

func TestChannelsPublishUnknownTopicFails(t *testing.T) {
	require := require.New(t)
	ch := propagation.NewChannels(4)

	ok := ch.Publish(propagation.Topic("bogus/v1"), wire.Envelope{})
	require.False(ok)
}

func TestChannelsPublishBackpressure(t *testing.T) {
	require := require.New(t)
	ch := propagation.NewChannels(1)

	env := wire.Envelope{Version: wire.Version, Kind: wire.KindVoteAccept}
	require.True(ch.Publish(propagation.TopicExchange, env))
	require.False(ch.Publish(propagation.TopicExchange, env))
}

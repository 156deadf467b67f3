// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sampling_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/pqconsensus/crypto/hash"
	"github.com/luxfi/pqconsensus/sampling"
)

func makePeers(n int) []hash.Digest {
	peers := make([]hash.Digest, n)
	for i := range peers {
		peers[i] = hash.Sum([]byte{byte(i)})
	}
	return peers
}

func TestSelectPeersFailsWhenNetworkTooSmall(t *testing.T) {
	require := require.New(t)
	e := sampling.New(sampling.Config{K: 20, QuorumAlpha: 0.67, MinNetworkSize: 20})

	_, err := e.SelectPeers(makePeers(5))
	require.ErrorIs(err, sampling.ErrNetworkTooSmall)
}

func TestSelectPeersReturnsDistinctPeers(t *testing.T) {
	require := require.New(t)
	e := sampling.New(sampling.Config{K: 5, QuorumAlpha: 0.67, MinNetworkSize: 5})

	peers, err := e.SelectPeers(makePeers(10))
	require.NoError(err)
	require.Len(peers, 5)

	seen := make(map[hash.Digest]bool)
	for _, p := range peers {
		require.False(seen[p])
		seen[p] = true
	}
}

func TestRoundResolvesDecisiveWhenAllRespond(t *testing.T) {
	require := require.New(t)
	e := sampling.New(sampling.Config{K: 3, QuorumAlpha: 0.67, MinNetworkSize: 3})

	peers := makePeers(3)
	qid := hash.Sum([]byte("query-1"))
	e.StartRound(hash.Sum([]byte("v1")), qid, 1, peers)

	e.RecordResponse(qid, peers[0], true)
	e.RecordResponse(qid, peers[1], true)
	e.RecordResponse(qid, peers[2], false)

	require.True(e.Ready(qid))
	tally, ok := e.Resolve(qid)
	require.True(ok)
	require.Equal(sampling.Decisive, tally.Outcome)
	require.Equal(2, tally.Accepts)
	require.Equal(3, tally.Total)
}

func TestRoundInconclusiveWithFewResponses(t *testing.T) {
	require := require.New(t)
	e := sampling.New(sampling.Config{K: 10, QuorumAlpha: 0.67, MinNetworkSize: 10})

	peers := makePeers(10)
	qid := hash.Sum([]byte("query-2"))
	e.StartRound(hash.Sum([]byte("v2")), qid, 1, peers)

	// Only 3 of 10 respond: r < k/2, so the tally must be inconclusive.
	e.RecordResponse(qid, peers[0], true)
	e.RecordResponse(qid, peers[1], true)
	e.RecordResponse(qid, peers[2], true)

	tally, ok := e.Resolve(qid)
	require.True(ok)
	require.Equal(sampling.Inconclusive, tally.Outcome)
}

func TestRoundDecisiveAtHalfResponses(t *testing.T) {
	require := require.New(t)
	e := sampling.New(sampling.Config{K: 10, QuorumAlpha: 0.67, MinNetworkSize: 10})

	peers := makePeers(10)
	qid := hash.Sum([]byte("query-3"))
	e.StartRound(hash.Sum([]byte("v3")), qid, 1, peers)

	for i := 0; i < 5; i++ {
		e.RecordResponse(qid, peers[i], true)
	}

	tally, ok := e.Resolve(qid)
	require.True(ok)
	require.Equal(sampling.Decisive, tally.Outcome)
	require.Equal(5, tally.Total)
}

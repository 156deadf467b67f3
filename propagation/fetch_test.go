// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package propagation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/pqconsensus/crypto/sig"
	"github.com/luxfi/pqconsensus/propagation"
	"github.com/luxfi/pqconsensus/vertex"
)

func TestFetchParentSucceedsFirstTry(t *testing.T) {
	require := require.New(t)

	_, priv, err := sig.Generate()
	require.NoError(err)
	want, err := vertex.Build(vertex.ID{1}, nil, []byte("x"), priv, time.Now())
	require.NoError(err)

	calls := 0
	fetcher := propagation.NewFetcher(propagation.DefaultFetchConfig(), func(ctx context.Context, peer, missing vertex.ID) (*vertex.Vertex, error) {
		calls++
		return want, nil
	})

	got, err := fetcher.FetchParent(context.Background(), vertex.ID{2}, want.ID())
	require.NoError(err)
	require.Equal(want.ID(), got.ID())
	require.Equal(1, calls)
}

func TestFetchParentRetriesThenSucceeds(t *testing.T) {
	require := require.New(t)

	_, priv, err := sig.Generate()
	require.NoError(err)
	want, err := vertex.Build(vertex.ID{1}, nil, []byte("x"), priv, time.Now())
	require.NoError(err)

	calls := 0
	fetcher := propagation.NewFetcher(propagation.FetchConfig{MaxRetries: 5}, func(ctx context.Context, peer, missing vertex.ID) (*vertex.Vertex, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("peer unavailable")
		}
		return want, nil
	})

	got, err := fetcher.FetchParent(context.Background(), vertex.ID{2}, want.ID())
	require.NoError(err)
	require.Equal(want.ID(), got.ID())
	require.Equal(3, calls)
}

func TestFetchParentExhaustsRetries(t *testing.T) {
	require := require.New(t)

	fetcher := propagation.NewFetcher(propagation.FetchConfig{MaxRetries: 2}, func(ctx context.Context, peer, missing vertex.ID) (*vertex.Vertex, error) {
		return nil, errors.New("peer unavailable")
	})

	_, err := fetcher.FetchParent(context.Background(), vertex.ID{2}, vertex.ID{3})
	require.Error(err)
}

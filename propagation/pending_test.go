// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package propagation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/pqconsensus/crypto/sig"
	"github.com/luxfi/pqconsensus/propagation"
	"github.com/luxfi/pqconsensus/vertex"
)

func buildTestVertex(t *testing.T) *vertex.Vertex {
	t.Helper()
	_, priv, err := sig.Generate()
	require.NoError(t, err)
	v, err := vertex.Genesis(vertex.ID{9}, []byte("seed"), priv, time.Unix(1_700_000_000, 0))
	require.NoError(t, err)
	return v
}

func TestPendingSetResolvesWhenAllParentsArrive(t *testing.T) {
	require := require.New(t)
	p := propagation.NewPendingSet(10, time.Minute)

	v := buildTestVertex(t)
	parentA := vertex.ID{1}
	parentB := vertex.ID{2}

	ok := p.Park(v, []vertex.ID{parentA, parentB}, time.Now())
	require.True(ok)
	require.Equal(1, p.Len())

	ready := p.Resolve(parentA)
	require.Empty(ready)

	ready = p.Resolve(parentB)
	require.Len(ready, 1)
	require.Equal(v.ID(), ready[0].ID())
	require.Equal(0, p.Len())
}

func TestPendingSetRejectsWhenFull(t *testing.T) {
	require := require.New(t)
	p := propagation.NewPendingSet(1, time.Minute)

	v1 := buildTestVertex(t)
	ok := p.Park(v1, []vertex.ID{{1}}, time.Now())
	require.True(ok)

	_, priv, err := sig.Generate()
	require.NoError(err)
	v2, err := vertex.Genesis(vertex.ID{10}, []byte("other-seed"), priv, time.Unix(1_700_000_001, 0))
	require.NoError(err)

	ok = p.Park(v2, []vertex.ID{{2}}, time.Now())
	require.False(ok)
}

func TestPendingSetSweepDropsExpired(t *testing.T) {
	require := require.New(t)
	p := propagation.NewPendingSet(10, time.Second)

	v := buildTestVertex(t)
	now := time.Now()
	p.Park(v, []vertex.ID{{1}}, now)

	expired := p.Sweep(now.Add(2 * time.Second))
	require.Len(expired, 1)
	require.Equal(0, p.Len())
}

func TestPendingSetSweepKeepsUnexpired(t *testing.T) {
	require := require.New(t)
	p := propagation.NewPendingSet(10, time.Minute)

	v := buildTestVertex(t)
	now := time.Now()
	p.Park(v, []vertex.ID{{1}}, now)

	expired := p.Sweep(now.Add(time.Second))
	require.Empty(expired)
	require.Equal(1, p.Len())
}

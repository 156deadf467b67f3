// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package propagation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/pqconsensus/crypto/hash"
	"github.com/luxfi/pqconsensus/propagation"
)

func TestDedupReportsFirstSeenAsNotSeen(t *testing.T) {
	require := require.New(t)
	d := propagation.NewDedup(10)

	id := hash.Sum([]byte("v1"))
	require.False(d.Seen(id))
	require.True(d.Seen(id))
}

func TestDedupEvictsOldestBeyondCapacity(t *testing.T) {
	require := require.New(t)
	d := propagation.NewDedup(2)

	a := hash.Sum([]byte("a"))
	b := hash.Sum([]byte("b"))
	c := hash.Sum([]byte("c"))

	require.False(d.Seen(a))
	require.False(d.Seen(b))
	require.False(d.Seen(c)) // evicts a

	require.False(d.Seen(a)) // a was evicted, so it's "new" again; re-adding it evicts b
	metrics := d.Metrics()
	require.Equal(uint64(2), metrics.Evictions)
}

func TestDedupMetricsHitRate(t *testing.T) {
	require := require.New(t)
	d := propagation.NewDedup(10)

	id := hash.Sum([]byte("x"))
	d.Seen(id)
	d.Seen(id)
	d.Seen(id)

	m := d.Metrics()
	require.Equal(uint64(1), m.Misses)
	require.Equal(uint64(2), m.Hits)
	require.InDelta(2.0/3.0, m.HitRate(), 0.0001)
}

func TestDedupDefaultCapacityUsedWhenNonPositive(t *testing.T) {
	require := require.New(t)
	d := propagation.NewDedup(0)
	require.Equal(propagation.DefaultDedupCapacity, d.Metrics().Capacity)
}

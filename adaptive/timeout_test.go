// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package adaptive_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/pqconsensus/adaptive"
)

func TestTimeoutUsesBaseWhenNoData(t *testing.T) {
	require := require.New(t)
	tr := adaptive.NewTimeoutTracker(adaptive.DefaultTimeoutConfig())

	require.Equal(10*time.Second, tr.Timeout("unknown-peer"))
}

func TestTimeoutUsesBaseBelowMinSamples(t *testing.T) {
	require := require.New(t)
	tr := adaptive.NewTimeoutTracker(adaptive.DefaultTimeoutConfig())

	for i := 0; i < 5; i++ {
		tr.RecordLatency("peer1", 100*time.Millisecond)
	}
	require.Equal(10*time.Second, tr.Timeout("peer1"))
}

func TestTimeoutComputedFromPercentile(t *testing.T) {
	require := require.New(t)
	cfg := adaptive.TimeoutConfig{
		BaseTimeout: 5 * time.Second,
		Percentile:  95,
		Multiplier:  2,
		MinTimeout:  100 * time.Millisecond,
		MaxTimeout:  30 * time.Second,
		MaxSamples:  100,
		MinSamples:  10,
	}
	tr := adaptive.NewTimeoutTracker(cfg)

	for i := 0; i < 20; i++ {
		tr.RecordLatency("peer1", 100*time.Millisecond)
	}

	got := tr.Timeout("peer1")
	require.GreaterOrEqual(got, 100*time.Millisecond)
	require.LessOrEqual(got, 300*time.Millisecond)
}

func TestTimeoutClampedToMin(t *testing.T) {
	require := require.New(t)
	cfg := adaptive.TimeoutConfig{
		BaseTimeout: 5 * time.Second,
		Percentile:  99,
		Multiplier:  2,
		MinTimeout:  500 * time.Millisecond,
		MaxTimeout:  2 * time.Second,
		MaxSamples:  100,
		MinSamples:  10,
	}
	tr := adaptive.NewTimeoutTracker(cfg)

	for i := 0; i < 20; i++ {
		tr.RecordLatency("peer1", 10*time.Millisecond)
	}

	require.Equal(500*time.Millisecond, tr.Timeout("peer1"))
}

func TestTimeoutClampedToMax(t *testing.T) {
	require := require.New(t)
	cfg := adaptive.TimeoutConfig{
		BaseTimeout: 5 * time.Second,
		Percentile:  99,
		Multiplier:  2,
		MinTimeout:  500 * time.Millisecond,
		MaxTimeout:  2 * time.Second,
		MaxSamples:  100,
		MinSamples:  10,
	}
	tr := adaptive.NewTimeoutTracker(cfg)

	for i := 0; i < 20; i++ {
		tr.RecordLatency("peer2", 10*time.Second)
	}

	require.Equal(2*time.Second, tr.Timeout("peer2"))
}

func TestTimeoutStatsAndClear(t *testing.T) {
	require := require.New(t)
	tr := adaptive.NewTimeoutTracker(adaptive.DefaultTimeoutConfig())

	for i := 1; i <= 100; i++ {
		tr.RecordLatency("peer1", time.Duration(i)*time.Millisecond)
	}

	stats, ok := tr.Stats("peer1")
	require.True(ok)
	require.Equal(100, stats.SampleCount)
	require.InDelta(50.5, stats.MeanMs, 1.0)

	tr.ClearPeer("peer1")
	_, ok = tr.Stats("peer1")
	require.False(ok)
}

func TestTimeoutClearAll(t *testing.T) {
	require := require.New(t)
	tr := adaptive.NewTimeoutTracker(adaptive.DefaultTimeoutConfig())

	tr.RecordLatency("peer1", 100*time.Millisecond)
	tr.RecordLatency("peer2", 100*time.Millisecond)

	tr.Clear()
	_, ok1 := tr.Stats("peer1")
	_, ok2 := tr.Stats("peer2")
	require.False(ok1)
	require.False(ok2)
}

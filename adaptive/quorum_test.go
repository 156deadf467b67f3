// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package adaptive_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/pqconsensus/adaptive"
)

func TestQuorumStartsAtBase(t *testing.T) {
	q := adaptive.NewQuorumController(adaptive.DefaultQuorumConfig())
	require.Equal(t, 0.67, q.Alpha())
}

func TestQuorumIncreasesWithByzantineFraction(t *testing.T) {
	require := require.New(t)
	q := adaptive.NewQuorumController(adaptive.DefaultQuorumConfig())

	got := q.Observe(time.Unix(0, 0), 0.15)
	require.InDelta(0.745, got, 0.0001)
}

func TestQuorumCapsAtMax(t *testing.T) {
	require := require.New(t)
	q := adaptive.NewQuorumController(adaptive.DefaultQuorumConfig())

	got := q.Observe(time.Unix(0, 0), 1.0)
	require.Equal(0.95, got)
}

func TestQuorumRateLimited(t *testing.T) {
	require := require.New(t)
	cfg := adaptive.DefaultQuorumConfig()
	cfg.Cooldown = time.Minute
	q := adaptive.NewQuorumController(cfg)

	t0 := time.Unix(0, 0)
	first := q.Observe(t0, 0.3)
	second := q.Observe(t0.Add(time.Second), 0.9) // within cooldown, ignored

	require.Equal(first, second)
}

func TestQuorumAdjustsAfterCooldownElapses(t *testing.T) {
	require := require.New(t)
	cfg := adaptive.DefaultQuorumConfig()
	cfg.Cooldown = time.Second
	q := adaptive.NewQuorumController(cfg)

	t0 := time.Unix(0, 0)
	q.Observe(t0, 0.1)
	second := q.Observe(t0.Add(2*time.Second), 0.3)

	require.InDelta(0.67+0.5*0.3, second, 0.0001)
}

func TestQuorumRelaxStepsTowardBase(t *testing.T) {
	require := require.New(t)
	cfg := adaptive.DefaultQuorumConfig()
	cfg.Cooldown = 0
	cfg.DecayStep = 0.05
	q := adaptive.NewQuorumController(cfg)

	t0 := time.Unix(0, 0)
	q.Observe(t0, 0.4) // alpha -> 0.87

	relaxed := q.Relax(t0.Add(time.Millisecond))
	require.InDelta(0.82, relaxed, 0.0001)
}

func TestQuorumRelaxNeverGoesBelowBase(t *testing.T) {
	require := require.New(t)
	cfg := adaptive.DefaultQuorumConfig()
	cfg.Cooldown = 0
	q := adaptive.NewQuorumController(cfg)

	relaxed := q.Relax(time.Unix(0, 0))
	require.Equal(cfg.BaseAlpha, relaxed)
}

func TestQuorumHistoryTracksAdjustments(t *testing.T) {
	require := require.New(t)
	cfg := adaptive.DefaultQuorumConfig()
	cfg.Cooldown = 0
	q := adaptive.NewQuorumController(cfg)

	q.Observe(time.Unix(0, 0), 0.2)
	q.Observe(time.Unix(1, 0), 0.4)

	require.Len(q.History(), 2)
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package adaptive

import (
	"sync"
	"time"
)

// QuorumConfig parameterizes threat-responsive quorum adjustment
// (§4.9), grounded on the original adaptive-quorum test suite's
// threshold formula and bounds (rust-core/tests/consensus/adaptive_quorum_tests.rs).
type QuorumConfig struct {
	// BaseAlpha is the quorum fraction used absent any observed threat.
	BaseAlpha float64
	// ByzantineWeight scales the observed Byzantine node fraction's
	// contribution to the adjusted threshold.
	ByzantineWeight float64
	// MinAlpha and MaxAlpha bound the adjusted threshold.
	MinAlpha float64
	MaxAlpha float64
	// Cooldown is the minimum interval between two successive
	// adjustments, preventing oscillation under fluctuating threat
	// signals.
	Cooldown time.Duration
	// DecayStep is how far the threshold relaxes toward BaseAlpha on each
	// Relax call once the cooldown has elapsed and no threat persists.
	DecayStep float64
}

// DefaultQuorumConfig mirrors the original implementation's constants:
// base 0.67, weight 0.5, bounds [0.51, 0.95].
func DefaultQuorumConfig() QuorumConfig {
	return QuorumConfig{
		BaseAlpha:       0.67,
		ByzantineWeight: 0.5,
		MinAlpha:        0.51,
		MaxAlpha:        0.95,
		Cooldown:        5 * time.Second,
		DecayStep:       0.03,
	}
}

// QuorumController tracks the live quorum alpha and adjusts it in
// response to observed Byzantine activity, rate-limited by Cooldown.
type QuorumController struct {
	cfg QuorumConfig

	mu          sync.Mutex
	alpha       float64
	lastAdjust  time.Time
	history     []float64
}

// NewQuorumController returns a controller starting at cfg.BaseAlpha.
func NewQuorumController(cfg QuorumConfig) *QuorumController {
	return &QuorumController{cfg: cfg, alpha: cfg.BaseAlpha}
}

// Alpha returns the currently active quorum fraction.
func (q *QuorumController) Alpha() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.alpha
}

// History returns every alpha value the controller has adjusted to, in
// chronological order. The starting BaseAlpha is not included.
func (q *QuorumController) History() []float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]float64, len(q.history))
	copy(out, q.history)
	return out
}

// clamp restricts alpha to [MinAlpha, MaxAlpha].
func (q *QuorumController) clamp(alpha float64) float64 {
	if alpha < q.cfg.MinAlpha {
		return q.cfg.MinAlpha
	}
	if alpha > q.cfg.MaxAlpha {
		return q.cfg.MaxAlpha
	}
	return alpha
}

// Observe reports a fresh Byzantine-fraction reading (0.0-1.0) and
// recomputes alpha = clamp(BaseAlpha + ByzantineWeight*byzantineFraction).
// Adjustments are rate-limited to at most one per Cooldown; a call inside
// the cooldown window is a no-op and returns the unchanged alpha.
func (q *QuorumController) Observe(now time.Time, byzantineFraction float64) float64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.lastAdjust.IsZero() && now.Sub(q.lastAdjust) < q.cfg.Cooldown {
		return q.alpha
	}

	target := q.clamp(q.cfg.BaseAlpha + q.cfg.ByzantineWeight*byzantineFraction)
	if target == q.alpha {
		return q.alpha
	}

	q.alpha = target
	q.lastAdjust = now
	q.history = append(q.history, target)
	return q.alpha
}

// Relax steps alpha one DecayStep back toward BaseAlpha, subject to the
// same cooldown as Observe. Call this periodically when no threat is
// currently observed so an elevated threshold doesn't persist forever.
func (q *QuorumController) Relax(now time.Time) float64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.lastAdjust.IsZero() && now.Sub(q.lastAdjust) < q.cfg.Cooldown {
		return q.alpha
	}
	if q.alpha <= q.cfg.BaseAlpha {
		return q.alpha
	}

	next := q.alpha - q.cfg.DecayStep
	if next < q.cfg.BaseAlpha {
		next = q.cfg.BaseAlpha
	}

	q.alpha = next
	q.lastAdjust = now
	q.history = append(q.history, next)
	return q.alpha
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package adaptive implements the per-peer adaptive query timeout,
// three-state circuit breaker, and threat-responsive quorum adjustment
// described in §4.9. The percentile tracker is grounded on the original
// Rust PercentileTracker (rust-core/src/consensus/src/adaptive_timeout.rs);
// percentile computation itself is delegated to montanaflynn/stats rather
// than hand-rolled, since the teacher's go.mod already carries it for this
// purpose.
package adaptive

import (
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// TimeoutConfig parameterizes per-peer adaptive timeout calculation.
type TimeoutConfig struct {
	// BaseTimeout is used until a peer has at least MinSamples recorded.
	BaseTimeout time.Duration
	// Percentile selects which latency percentile drives the timeout
	// (e.g. 99 for P99).
	Percentile float64
	// Multiplier scales the chosen percentile latency.
	Multiplier float64
	// MinTimeout and MaxTimeout clamp the computed timeout.
	MinTimeout time.Duration
	MaxTimeout time.Duration
	// MaxSamples bounds the ring buffer of recent latencies kept per peer.
	MaxSamples int
	// MinSamples is the minimum sample count before the percentile is
	// trusted over BaseTimeout.
	MinSamples int
}

// DefaultTimeoutConfig mirrors the original implementation's defaults:
// P99 latency, 2x multiplier, [100ms, 30s] clamp, 100-sample ring buffer,
// 10-sample warm-up.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		BaseTimeout: 10 * time.Second,
		Percentile:  99.0,
		Multiplier:  2.0,
		MinTimeout:  100 * time.Millisecond,
		MaxTimeout:  30 * time.Second,
		MaxSamples:  100,
		MinSamples:  10,
	}
}

// percentileTracker is a fixed-capacity ring buffer of latency samples in
// milliseconds, used to compute a percentile on demand.
type percentileTracker struct {
	samples []float64
	cap     int
}

func newPercentileTracker(capacity int) *percentileTracker {
	return &percentileTracker{samples: make([]float64, 0, capacity), cap: capacity}
}

func (t *percentileTracker) record(latencyMs float64) {
	if len(t.samples) >= t.cap {
		t.samples = t.samples[1:]
	}
	t.samples = append(t.samples, latencyMs)
}

func (t *percentileTracker) count() int {
	return len(t.samples)
}

func (t *percentileTracker) percentile(p float64) float64 {
	if len(t.samples) == 0 {
		return 0
	}
	v, err := stats.Percentile(append([]float64(nil), t.samples...), p)
	if err != nil {
		return 0
	}
	return v
}

func (t *percentileTracker) mean() float64 {
	if len(t.samples) == 0 {
		return 0
	}
	v, err := stats.Mean(append([]float64(nil), t.samples...))
	if err != nil {
		return 0
	}
	return v
}

// LatencyStats is an observability snapshot of a peer's recorded
// latencies.
type LatencyStats struct {
	MeanMs      float64
	P50Ms       float64
	P95Ms       float64
	P99Ms       float64
	SampleCount int
}

// TimeoutTracker computes an adaptive per-peer query timeout from
// observed round-trip latencies (§4.9).
type TimeoutTracker struct {
	cfg TimeoutConfig

	mu       sync.Mutex
	trackers map[string]*percentileTracker
}

// NewTimeoutTracker returns a TimeoutTracker using cfg.
func NewTimeoutTracker(cfg TimeoutConfig) *TimeoutTracker {
	return &TimeoutTracker{cfg: cfg, trackers: make(map[string]*percentileTracker)}
}

// RecordLatency records a single observed round-trip latency for peerID.
func (t *TimeoutTracker) RecordLatency(peerID string, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.trackers[peerID]
	if !ok {
		tr = newPercentileTracker(t.cfg.MaxSamples)
		t.trackers[peerID] = tr
	}
	tr.record(float64(latency.Milliseconds()))
}

// Timeout returns the current adaptive timeout for peerID: BaseTimeout
// until MinSamples have been recorded, thereafter Multiplier times the
// configured Percentile of recorded latencies, clamped to
// [MinTimeout, MaxTimeout].
func (t *TimeoutTracker) Timeout(peerID string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.trackers[peerID]
	if !ok || tr.count() < t.cfg.MinSamples {
		return t.cfg.BaseTimeout
	}

	ms := tr.percentile(t.cfg.Percentile) * t.cfg.Multiplier
	timeout := time.Duration(ms) * time.Millisecond
	return t.clamp(timeout)
}

func (t *TimeoutTracker) clamp(d time.Duration) time.Duration {
	if d < t.cfg.MinTimeout {
		return t.cfg.MinTimeout
	}
	if d > t.cfg.MaxTimeout {
		return t.cfg.MaxTimeout
	}
	return d
}

// Stats returns the current latency statistics for peerID, or false if no
// samples have been recorded.
func (t *TimeoutTracker) Stats(peerID string) (LatencyStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.trackers[peerID]
	if !ok || tr.count() == 0 {
		return LatencyStats{}, false
	}
	return LatencyStats{
		MeanMs:      tr.mean(),
		P50Ms:       tr.percentile(50),
		P95Ms:       tr.percentile(95),
		P99Ms:       tr.percentile(99),
		SampleCount: tr.count(),
	}, true
}

// ClearPeer discards all recorded latencies for peerID.
func (t *TimeoutTracker) ClearPeer(peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.trackers, peerID)
}

// Clear discards all recorded latencies for every peer.
func (t *TimeoutTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trackers = make(map[string]*percentileTracker)
}

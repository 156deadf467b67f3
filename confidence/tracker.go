// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package confidence implements Snowball/Avalanche-style per-vertex
// confidence accumulation and finality decisions (§4.5). It is grounded
// on the teacher's confidence/threshold.go binaryThreshold: a
// consecutive-success counter plus an array of termination conditions,
// generalized here to the spec's single (alpha, beta) pair per vertex.
package confidence

import (
	"sync"

	"github.com/luxfi/pqconsensus/vertex"
)

// State is an observability snapshot of one vertex's confidence record.
type State struct {
	Confidence           float64
	ConsecutiveSuccesses int
	LastChit             bool
	IsFinalized          bool
}

// record is the tracker's mutable per-vertex state.
type record struct {
	consecutiveSuccesses int
	lastChit             bool
	finalized            bool
}

// Config parameterizes a Tracker.
type Config struct {
	// Alpha is the quorum fraction: a round's accept fraction must meet
	// or exceed this for the round to count as a success. Default 0.67.
	Alpha float64
	// Beta is the number of consecutive successful rounds required to
	// finalize. Default 15.
	Beta int
	// MaxRounds bounds the denominator used to compute the normalized
	// Confidence observability value; it does not gate finalization,
	// only the reported confidence metric.
	MaxRounds int
}

// DefaultConfig returns the spec's default parameters.
func DefaultConfig() Config {
	return Config{Alpha: 0.67, Beta: 15, MaxRounds: 30}
}

// Tracker maintains confidence state for every vertex it has been asked to
// track, keyed by vertex id.
type Tracker struct {
	cfg Config

	mu      sync.RWMutex
	records map[vertex.ID]*record
}

// New returns a Tracker using cfg.
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg, records: make(map[vertex.ID]*record)}
}

// Init begins tracking id with zero confidence. Calling Init again for an
// already-tracked id is a no-op.
func (t *Tracker) Init(id vertex.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.records[id]; ok {
		return
	}
	t.records[id] = &record{}
}

// Update applies the outcome of one decisive sampling round: accepts out of
// total responses, judged against the Tracker's configured Alpha. It is
// equivalent to UpdateWithAlpha(id, accepts, total, t.cfg.Alpha).
func (t *Tracker) Update(id vertex.ID, accepts, total int) error {
	return t.UpdateWithAlpha(id, accepts, total, t.cfg.Alpha)
}

// UpdateWithAlpha applies the outcome of one decisive sampling round against
// a caller-supplied quorum fraction rather than the Tracker's fixed Config
// value, so a live adaptive alpha (§4.9's QuorumController) governs the
// actual round decision instead of only being computed for observability.
// If the accept fraction meets or exceeds alpha, the consecutive-success
// counter increments; otherwise it resets to zero. LastChit is set to
// whether accepts reached a simple majority of total. UpdateWithAlpha has
// no effect once the vertex is finalized.
func (t *Tracker) UpdateWithAlpha(id vertex.ID, accepts, total int, alpha float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[id]
	if !ok {
		return ErrUnknownVertex
	}
	if r.finalized || total == 0 {
		return nil
	}

	fraction := float64(accepts) / float64(total)
	if fraction >= alpha {
		r.consecutiveSuccesses++
	} else {
		r.consecutiveSuccesses = 0
	}
	r.lastChit = accepts*2 >= total

	if r.consecutiveSuccesses >= t.cfg.Beta {
		r.finalized = true
	}
	return nil
}

// IsFinalized reports whether id has reached the finality threshold.
func (t *Tracker) IsFinalized(id vertex.ID) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[id]
	if !ok {
		return false, ErrUnknownVertex
	}
	return r.finalized, nil
}

// LastChit returns id's current preferred outcome: true if not yet
// initialized (per §4.8's QueryVertex handler, an uninitialized-but-valid
// vertex defaults to accept).
func (t *Tracker) LastChit(id vertex.ID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[id]
	if !ok {
		return true
	}
	return r.lastChit
}

// GetState returns an observability snapshot for id.
func (t *Tracker) GetState(id vertex.ID) (State, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[id]
	if !ok {
		return State{}, ErrUnknownVertex
	}

	maxRounds := t.cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = t.cfg.Beta
	}
	confidenceValue := float64(r.consecutiveSuccesses) / float64(maxRounds)
	if confidenceValue > 1 {
		confidenceValue = 1
	}

	return State{
		Confidence:           confidenceValue,
		ConsecutiveSuccesses: r.consecutiveSuccesses,
		LastChit:             r.lastChit,
		IsFinalized:          r.finalized,
	}, nil
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package adaptive

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Call when the breaker is Open and
// rejecting calls, or when HalfOpen has already admitted its max probe
// calls.
var ErrCircuitOpen = errors.New("adaptive: circuit breaker open")

// CircuitState is one of the three states a breaker may be in.
type CircuitState uint8

const (
	// Closed admits all calls and counts failures toward OpenThreshold.
	Closed CircuitState = iota
	// Open rejects all calls until Timeout has elapsed since it tripped.
	Open
	// HalfOpen admits up to HalfOpenMaxCalls probe calls; a single failure
	// sends it back to Open, SuccessThreshold successes close it.
	HalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig parameterizes a CircuitBreaker, extending the teacher's
// benchlist.Config (failure threshold + benching duration) with the
// HalfOpen probing behavior the teacher's benchlist manager does not have.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures in Closed
	// that trips the breaker to Open.
	FailureThreshold int
	// SuccessThreshold is the number of consecutive successes in HalfOpen
	// required to close the breaker.
	SuccessThreshold int
	// Timeout is how long the breaker stays Open before admitting a probe
	// call and moving to HalfOpen.
	Timeout time.Duration
	// HalfOpenMaxCalls bounds how many probe calls HalfOpen admits in
	// total, counted from entering HalfOpen, before rejecting further
	// calls.
	HalfOpenMaxCalls int
	// RequestTimeout bounds an individual Call invocation; exceeding it
	// counts as a failure.
	RequestTimeout time.Duration
}

// DefaultBreakerConfig mirrors the original implementation's defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 3,
		RequestTimeout:   5 * time.Second,
	}
}

// BreakerStats is an observability snapshot of a breaker's counters.
type BreakerStats struct {
	State           CircuitState
	FailureCount    int
	TotalSuccesses  uint64
	TotalFailures   uint64
}

// SuccessRate returns TotalSuccesses / (TotalSuccesses + TotalFailures),
// or 0 if neither has been recorded.
func (s BreakerStats) SuccessRate() float64 {
	total := s.TotalSuccesses + s.TotalFailures
	if total == 0 {
		return 0
	}
	return float64(s.TotalSuccesses) / float64(total)
}

// FailureRate returns TotalFailures / (TotalSuccesses + TotalFailures),
// or 0 if neither has been recorded.
func (s BreakerStats) FailureRate() float64 {
	total := s.TotalSuccesses + s.TotalFailures
	if total == 0 {
		return 0
	}
	return float64(s.TotalFailures) / float64(total)
}

// CircuitBreaker is a per-peer three-state breaker guarding calls to that
// peer (§4.9). Unlike the teacher's benchlist.Manager, which only ever
// benches or unbenches a node (Closed/Open), this adds the HalfOpen
// probing state the spec requires.
type CircuitBreaker struct {
	peerID string
	cfg    BreakerConfig

	mu               sync.Mutex
	state            CircuitState
	failureCount     int
	successCount     int
	halfOpenCalls    int
	openedAt         time.Time
	totalSuccesses   uint64
	totalFailures    uint64
}

// NewCircuitBreaker returns a breaker for peerID in the Closed state.
func NewCircuitBreaker(peerID string, cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{peerID: peerID, cfg: cfg, state: Closed}
}

// State returns the breaker's current state. Reading it does not resolve
// an elapsed Open timeout: the move to HalfOpen happens when the next
// Call is admitted.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a snapshot of the breaker's counters.
func (b *CircuitBreaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		State:          b.state,
		FailureCount:   b.failureCount,
		TotalSuccesses: b.totalSuccesses,
		TotalFailures:  b.totalFailures,
	}
}

// RecordSuccess records a successful call outside of Call's own
// bookkeeping, e.g. when the caller observed success through another
// path.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordSuccessLocked()
}

func (b *CircuitBreaker) recordSuccessLocked() {
	b.totalSuccesses++
	switch b.state {
	case HalfOpen:
		b.successCount++
		if b.successCount >= b.cfg.SuccessThreshold {
			b.closeLocked()
		}
	case Closed:
		b.failureCount = 0
	}
}

// RecordFailure records a failed call outside of Call's own bookkeeping.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordFailureLocked()
}

func (b *CircuitBreaker) recordFailureLocked() {
	b.totalFailures++
	switch b.state {
	case HalfOpen:
		b.openLocked()
	case Closed:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			b.openLocked()
		}
	}
}

func (b *CircuitBreaker) openLocked() {
	b.state = Open
	b.openedAt = time.Now()
	b.failureCount = 0
	b.successCount = 0
	b.halfOpenCalls = 0
}

func (b *CircuitBreaker) closeLocked() {
	b.state = Closed
	b.failureCount = 0
	b.successCount = 0
	b.halfOpenCalls = 0
}

// admit decides whether a call may proceed right now, transitioning Open
// to HalfOpen once Timeout has elapsed.
func (b *CircuitBreaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return nil
	case Open:
		if time.Since(b.openedAt) < b.cfg.Timeout {
			return ErrCircuitOpen
		}
		b.state = HalfOpen
		b.successCount = 0
		b.halfOpenCalls = 0
		fallthrough
	case HalfOpen:
		if b.halfOpenCalls >= b.cfg.HalfOpenMaxCalls {
			return ErrCircuitOpen
		}
		b.halfOpenCalls++
		return nil
	}
	return nil
}

// Call runs fn if the breaker currently admits calls, recording its
// outcome. A context deadline derived from RequestTimeout bounds fn; a
// timed-out fn counts as a failure.
func (b *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if b.cfg.RequestTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, b.cfg.RequestTimeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// ForceOpen immediately trips the breaker to Open regardless of its
// current failure count.
func (b *CircuitBreaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openLocked()
}

// ForceClose immediately resets the breaker to Closed.
func (b *CircuitBreaker) ForceClose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeLocked()
}

// Reset clears all counters and returns the breaker to Closed.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeLocked()
	b.totalSuccesses = 0
	b.totalFailures = 0
}

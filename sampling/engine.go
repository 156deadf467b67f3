// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sampling implements k-of-n peer sampling and response
// aggregation (§4.6), grounded on the teacher's utils/sampler uniform
// sampler (sample-without-replacement over an index space) generalized
// here to draw from the trusted peer set.
package sampling

import (
	"sync"
	"time"

	"github.com/luxfi/pqconsensus/utils/sampler"
	"github.com/luxfi/pqconsensus/vertex"
)

// Config parameterizes the sampling engine.
type Config struct {
	// K is the number of peers sampled per round. Default 20-30.
	K int
	// QuorumAlpha is the accept fraction required for a round to be a
	// success. Default 0.67.
	QuorumAlpha float64
	// MinNetworkSize is the minimum number of trusted peers that must be
	// available before a round can be started at all.
	MinNetworkSize int
	// QueryTimeout bounds how long a round waits for responses before
	// tallying whatever has arrived.
	QueryTimeout time.Duration
}

// DefaultConfig returns the spec's default sampling parameters.
func DefaultConfig() Config {
	return Config{K: 20, QuorumAlpha: 0.67, MinNetworkSize: 20, QueryTimeout: 2 * time.Second}
}

// Outcome is the decisive-or-not result of a completed round.
type Outcome int

const (
	// Decisive means accepts/total may be compared against alpha.
	Decisive Outcome = iota
	// Inconclusive means too few responses arrived (r < k/2) to trust the
	// tally; the round neither advances nor resets confidence.
	Inconclusive
)

// Tally is the result of resolving a Round.
type Tally struct {
	Accepts int
	Total   int
	Outcome Outcome
}

// Round is a single in-flight k-of-n sampling round for one vertex.
type Round struct {
	VertexID vertex.ID
	Number   uint64
	QueryID  vertex.ID
	Peers    []vertex.ID
	Deadline time.Time

	mu       sync.Mutex
	accepts  int
	rejects  int
	voted    map[vertex.ID]struct{}
	k        int
	alpha    float64
}

// RecordResponse records peer's vote for this round. Responses from peers
// not in Peers, or a second response from the same peer, are ignored —
// equivocation across rounds is the Byzantine detector's concern, not
// this engine's.
func (r *Round) RecordResponse(peer vertex.ID, accept bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	member := false
	for _, p := range r.Peers {
		if p == peer {
			member = true
			break
		}
	}
	if !member {
		return
	}
	if _, dup := r.voted[peer]; dup {
		return
	}
	r.voted[peer] = struct{}{}

	if accept {
		r.accepts++
	} else {
		r.rejects++
	}
}

// responded returns the total number of distinct responses recorded.
func (r *Round) responded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.voted)
}

// decided reports whether enough responses have arrived that the outcome
// is mathematically fixed regardless of remaining responses: either an
// accept-supermajority is already guaranteed, or it is already impossible.
func (r *Round) decided() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accepts+r.rejects >= r.k {
		return true
	}
	remaining := r.k - r.accepts - r.rejects
	// If even every remaining response accepting couldn't reach alpha, or
	// every remaining response rejecting still can't drop below alpha,
	// the round's eventual accept-fraction relative to alpha is settled.
	bestCase := float64(r.accepts+remaining) / float64(r.k)
	worstCase := float64(r.accepts) / float64(r.k)
	return bestCase < r.alpha || worstCase >= r.alpha
}

// resolve tallies the round's current responses per the §4.6
// partial-response rule: at r < k responses, the tally is decisive only if
// r >= k/2; otherwise it is Inconclusive.
func (r *Round) resolve() Tally {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := r.accepts + r.rejects
	if total < r.k && total*2 < r.k {
		return Tally{Accepts: r.accepts, Total: total, Outcome: Inconclusive}
	}
	return Tally{Accepts: r.accepts, Total: total, Outcome: Decisive}
}

// Engine runs sampling rounds over a caller-supplied trusted peer set.
type Engine struct {
	cfg Config
	rng sampler.Uniform

	mu     sync.Mutex
	rounds map[vertex.ID]*Round
}

// New returns an Engine using cfg.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, rng: sampler.NewUniform(), rounds: make(map[vertex.ID]*Round)}
}

// SelectPeers draws K distinct peers uniformly at random from trusted. It
// fails with ErrNetworkTooSmall if trusted has fewer members than
// MinNetworkSize or than K, before any sampling is attempted.
func (e *Engine) SelectPeers(trusted []vertex.ID) ([]vertex.ID, error) {
	if len(trusted) < e.cfg.MinNetworkSize || len(trusted) < e.cfg.K {
		return nil, ErrNetworkTooSmall
	}

	k := e.cfg.K

	if err := e.rng.Initialize(len(trusted)); err != nil {
		return nil, err
	}
	indices, ok := e.rng.Sample(k)
	if !ok {
		return nil, ErrNetworkTooSmall
	}

	peers := make([]vertex.ID, k)
	for i, idx := range indices {
		peers[i] = trusted[idx]
	}
	return peers, nil
}

// StartRound begins a new sampling round for vertexID over peers and
// registers it under queryID for response routing. The caller is
// responsible for dispatching QueryVertex messages to peers.
func (e *Engine) StartRound(vertexID, queryID vertex.ID, roundNumber uint64, peers []vertex.ID) *Round {
	round := &Round{
		VertexID: vertexID,
		Number:   roundNumber,
		QueryID:  queryID,
		Peers:    peers,
		Deadline: time.Now().Add(e.cfg.QueryTimeout),
		voted:    make(map[vertex.ID]struct{}),
		k:        len(peers),
		alpha:    e.cfg.QuorumAlpha,
	}

	e.mu.Lock()
	e.rounds[queryID] = round
	e.mu.Unlock()
	return round
}

// RecordResponse routes a vote to the round registered under queryID. It
// is a no-op if no such round is outstanding (e.g. it already resolved).
func (e *Engine) RecordResponse(queryID, peer vertex.ID, accept bool) {
	e.mu.Lock()
	round, ok := e.rounds[queryID]
	e.mu.Unlock()
	if !ok {
		return
	}
	round.RecordResponse(peer, accept)
}

// Ready reports whether queryID's round may be resolved now: either every
// peer has responded, the outcome is already mathematically fixed, or the
// round's deadline has passed.
func (e *Engine) Ready(queryID vertex.ID) bool {
	e.mu.Lock()
	round, ok := e.rounds[queryID]
	e.mu.Unlock()
	if !ok {
		return true
	}
	return round.responded() >= round.k || round.decided() || time.Now().After(round.Deadline)
}

// Resolve tallies and forgets the round registered under queryID.
func (e *Engine) Resolve(queryID vertex.ID) (Tally, bool) {
	e.mu.Lock()
	round, ok := e.rounds[queryID]
	if ok {
		delete(e.rounds, queryID)
	}
	e.mu.Unlock()
	if !ok {
		return Tally{}, false
	}
	return round.resolve(), true
}

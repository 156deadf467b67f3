// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package byzantine maintains per-peer reputation, equivocation detection,
// and trust evaluation (§4.4). It is grounded on the original Rust
// ByzantineDetector (rust-core/src/network/src/consensus/byzantine.rs),
// re-expressed with the teacher's mutex-protected-map idiom used by
// networking/benchlist.
package byzantine

import (
	"bytes"
	"sync"

	"github.com/luxfi/pqconsensus/vertex"
)

// TrustThreshold separates peers eligible to be sampled from those
// excluded. A peer with reputation strictly above this value is trusted.
const TrustThreshold = 0.5

// equivocationDamage is the multiplicative reputation penalty applied when
// a peer is caught voting two different ways for the same vertex.
const equivocationDamage = 0.5

// invalidSignatureDamage is the multiplicative reputation penalty applied
// for each invalid signature observed from a peer.
const invalidSignatureDamage = 0.7

// peerState is the mutable per-peer record. Reputation starts at 1.0
// (fully honest) for any peer not yet observed.
type peerState struct {
	reputation        float64
	invalidSignatures uint32
	equivocations     uint32
	votes             map[vertex.ID][]byte
}

// Detector tracks Byzantine behavior across all known peers.
type Detector struct {
	mu    sync.RWMutex
	peers map[vertex.ID]*peerState
}

// NewDetector returns an empty Detector.
func NewDetector() *Detector {
	return &Detector{peers: make(map[vertex.ID]*peerState)}
}

func (d *Detector) stateLocked(peer vertex.ID) *peerState {
	s, ok := d.peers[peer]
	if !ok {
		s = &peerState{reputation: 1.0, votes: make(map[vertex.ID][]byte)}
		d.peers[peer] = s
	}
	return s
}

// RecordVote records that peer cast voteBytes for vertexID. If peer has
// already recorded a different voteBytes for the same vertex, this is an
// equivocation: reputation is halved and ErrEquivocation is returned. The
// first and any subsequent identical votes are not an error.
func (d *Detector) RecordVote(peer, vertexID vertex.ID, voteBytes []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stateLocked(peer)
	if existing, ok := s.votes[vertexID]; ok {
		if !bytes.Equal(existing, voteBytes) {
			s.equivocations++
			s.reputation = clamp(s.reputation * equivocationDamage)
			return ErrEquivocation
		}
		return nil
	}

	s.votes[vertexID] = append([]byte(nil), voteBytes...)
	return nil
}

// RecordInvalidSignature penalizes peer for producing a signature that
// failed verification.
func (d *Detector) RecordInvalidSignature(peer vertex.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stateLocked(peer)
	s.invalidSignatures++
	s.reputation = clamp(s.reputation * invalidSignatureDamage)
}

// IsTrusted reports whether peer's reputation exceeds TrustThreshold. An
// unobserved peer is trusted (default reputation 1.0).
func (d *Detector) IsTrusted(peer vertex.ID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.peers[peer]
	if !ok {
		return true
	}
	return s.reputation > TrustThreshold
}

// Reputation returns peer's current reputation score, 1.0 for an
// unobserved peer.
func (d *Detector) Reputation(peer vertex.ID) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.peers[peer]
	if !ok {
		return 1.0
	}
	return s.reputation
}

// GetUntrusted returns a snapshot of every peer with reputation at or
// below TrustThreshold.
func (d *Detector) GetUntrusted() []vertex.ID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []vertex.ID
	for peer, s := range d.peers {
		if s.reputation <= TrustThreshold {
			out = append(out, peer)
		}
	}
	return out
}

// Reward saturating-increments peer's reputation by delta, capped at 1.0.
func (d *Detector) Reward(peer vertex.ID, delta float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stateLocked(peer)
	s.reputation = clamp(s.reputation + delta)
}

// Reset restores peer to its initial, never-observed state.
func (d *Detector) Reset(peer vertex.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.peers, peer)
}

// Stats is an observability snapshot of one peer's Byzantine-behavior
// record.
type Stats struct {
	Reputation        float64
	InvalidSignatures uint32
	Equivocations     uint32
	Trusted           bool
}

// PeerStats returns an observability snapshot for peer.
func (d *Detector) PeerStats(peer vertex.ID) Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.peers[peer]
	if !ok {
		return Stats{Reputation: 1.0, Trusted: true}
	}
	return Stats{
		Reputation:        s.reputation,
		InvalidSignatures: s.invalidSignatures,
		Equivocations:     s.equivocations,
		Trusted:           s.reputation > TrustThreshold,
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

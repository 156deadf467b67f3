// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package propagation

import (
	"sync"
	"time"

	"github.com/luxfi/pqconsensus/vertex"
)

// DefaultPendingCapacity bounds the pending-parents waiting set.
const DefaultPendingCapacity = 1_000

// DefaultPendingTTL is how long a vertex may wait for its parents before
// Sweep drops it.
const DefaultPendingTTL = 30 * time.Second

// pendingEntry holds a vertex parked awaiting unresolved parents.
type pendingEntry struct {
	vertex    *vertex.Vertex
	missing   map[vertex.ID]struct{}
	deadline  time.Time
}

// PendingSet is the bounded waiting set for vertices received with
// parents not yet in the store (§4.7: "a bounded waiting set ... ultimately
// dropped if parents remain unresolved for too long").
type PendingSet struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[vertex.ID]*pendingEntry
}

// NewPendingSet returns an empty PendingSet bounded by capacity entries
// and ttl per entry.
func NewPendingSet(capacity int, ttl time.Duration) *PendingSet {
	if capacity <= 0 {
		capacity = DefaultPendingCapacity
	}
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &PendingSet{capacity: capacity, ttl: ttl, entries: make(map[vertex.ID]*pendingEntry)}
}

// Park records v as waiting on missingParents. If the set is already at
// capacity, Park drops v and returns false.
func (p *PendingSet) Park(v *vertex.Vertex, missingParents []vertex.ID, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := v.ID()
	if _, exists := p.entries[id]; !exists && len(p.entries) >= p.capacity {
		return false
	}

	missing := make(map[vertex.ID]struct{}, len(missingParents))
	for _, m := range missingParents {
		missing[m] = struct{}{}
	}

	p.entries[id] = &pendingEntry{vertex: v, missing: missing, deadline: now.Add(p.ttl)}
	return true
}

// Resolve marks parentID as fetched for every parked vertex waiting on it
// and returns the vertices whose full parent set is now satisfied —
// these are ready to be stored and processed.
func (p *PendingSet) Resolve(parentID vertex.ID) []*vertex.Vertex {
	p.mu.Lock()
	defer p.mu.Unlock()

	var ready []*vertex.Vertex
	for id, entry := range p.entries {
		if _, waiting := entry.missing[parentID]; !waiting {
			continue
		}
		delete(entry.missing, parentID)
		if len(entry.missing) == 0 {
			ready = append(ready, entry.vertex)
			delete(p.entries, id)
		}
	}
	return ready
}

// Sweep removes and returns vertices whose deadline has passed, relative
// to now.
func (p *PendingSet) Sweep(now time.Time) []*vertex.Vertex {
	p.mu.Lock()
	defer p.mu.Unlock()

	var expired []*vertex.Vertex
	for id, entry := range p.entries {
		if now.After(entry.deadline) {
			expired = append(expired, entry.vertex)
			delete(p.entries, id)
		}
	}
	return expired
}

// Len returns the current number of parked vertices.
func (p *PendingSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

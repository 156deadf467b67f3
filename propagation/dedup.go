// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package propagation implements vertex broadcast deduplication and
// missing-parent fetch retry (§4.7). The dedup cache is grounded on the
// original Rust LRUCache (rust-core/src/network/src/lru_cache.rs); Go's
// container/list gives the same O(1) map+doubly-linked-list shape the
// teacher repo has no direct equivalent for.
package propagation

import (
	"container/list"
	"sync"

	"github.com/luxfi/pqconsensus/vertex"
)

// DedupMetrics is an observability snapshot of the dedup cache.
type DedupMetrics struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	Capacity  int
}

// HitRate returns Hits / (Hits + Misses), or 0 if there have been no
// lookups yet.
func (m DedupMetrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total)
}

// DefaultDedupCapacity is the default bound on recently-seen vertex ids
// (§4.7: "bounded by configurable capacity, default 10,000").
const DefaultDedupCapacity = 10_000

// Dedup is a bounded LRU of recently seen vertex ids. Seen vertices are
// silently dropped by callers; this cache only tracks membership.
type Dedup struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[vertex.ID]*list.Element

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewDedup returns an empty Dedup bounded at capacity entries.
func NewDedup(capacity int) *Dedup {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &Dedup{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[vertex.ID]*list.Element),
	}
}

// Seen reports whether id has been recorded before, and records it as
// most-recently-seen either way. This matches the broadcast path's usage:
// call once per received vertex; a true result means drop it.
func (d *Dedup) Seen(id vertex.ID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if elem, ok := d.index[id]; ok {
		d.order.MoveToFront(elem)
		d.hits++
		return true
	}

	d.misses++
	elem := d.order.PushFront(id)
	d.index[id] = elem

	if d.order.Len() > d.capacity {
		d.evictOldest()
	}
	return false
}

func (d *Dedup) evictOldest() {
	oldest := d.order.Back()
	if oldest == nil {
		return
	}
	d.order.Remove(oldest)
	delete(d.index, oldest.Value.(vertex.ID))
	d.evictions++
}

// Metrics returns a snapshot of cache performance counters.
func (d *Dedup) Metrics() DedupMetrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DedupMetrics{
		Hits:      d.hits,
		Misses:    d.misses,
		Evictions: d.evictions,
		Size:      d.order.Len(),
		Capacity:  d.capacity,
	}
}

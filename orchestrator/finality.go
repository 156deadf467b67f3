// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"github.com/luxfi/pqconsensus/confidence"
	"github.com/luxfi/pqconsensus/vertex"
)

// SubscriberBuffer bounds each finalization subscriber's channel.
const SubscriberBuffer = 256

// Subscribe returns a channel of finalizations in sequence order,
// delivered at least once (§6's subscribe_finalizations stream). The
// channel is closed when the Orchestrator is closed.
func (o *Orchestrator) Subscribe() <-chan FinalizedVertex {
	ch := make(chan FinalizedVertex, SubscriberBuffer)

	o.subsMu.Lock()
	o.subs = append(o.subs, ch)
	o.subsMu.Unlock()

	return ch
}

// runDispatcher serializes finalization delivery to every subscriber so
// the sequence order observed by each subscriber matches assignment
// order. A subscriber that never drains its channel stalls delivery to
// every subscriber registered after it; callers needing isolation should
// drain promptly or buffer on their own side.
func (o *Orchestrator) runDispatcher() {
	defer close(o.dispatcherDone)

	for fv := range o.finalizeCh {
		o.subsMu.Lock()
		subs := make([]chan FinalizedVertex, len(o.subs))
		copy(subs, o.subs)
		o.subsMu.Unlock()

		for _, ch := range subs {
			select {
			case ch <- fv:
			case <-o.ctx.Done():
				return
			}
		}
	}
}

// publishFinalization enqueues fv for delivery to all subscribers. It
// never blocks the caller beyond the dispatcher's queue filling up, and
// gives up silently if the Orchestrator is shutting down.
func (o *Orchestrator) publishFinalization(fv FinalizedVertex) {
	select {
	case o.finalizeCh <- fv:
	case <-o.ctx.Done():
	}
}

// Query returns an observability snapshot of id's consensus state (§6's
// query(vertex_id) operation), or ok=false if id has never been stored.
func (o *Orchestrator) Query(id vertex.ID) (VertexState, bool, error) {
	_, ok, err := o.store.GetVertex(id)
	if err != nil {
		return VertexState{}, false, err
	}
	if !ok {
		return VertexState{}, false, nil
	}

	state, err := o.confTrack.GetState(id)
	if err != nil {
		// A vertex can be stored (e.g. as another vertex's parent) before
		// this peer ever initializes tracking for it, if it arrived only
		// as part of a backfill. Report it as freshly pending rather
		// than erroring.
		state = confidence.State{LastChit: true}
	}

	status := vertex.Pending
	switch {
	case state.IsFinalized:
		status = vertex.Finalized
	case state.ConsecutiveSuccesses > 0:
		status = vertex.Accepted
	}

	result := VertexState{Status: status, Confidence: state}

	o.seqMu.RLock()
	seq, hasSeq := o.seqOf[id]
	o.seqMu.RUnlock()
	if hasSeq {
		result.Sequence = seq
		result.HasSeq = true
	}

	return result, true, nil
}

// recordSequence remembers id's finalization sequence number for later
// Query calls.
func (o *Orchestrator) recordSequence(id vertex.ID, seq uint64) {
	o.seqMu.Lock()
	o.seqOf[id] = seq
	o.seqMu.Unlock()
}

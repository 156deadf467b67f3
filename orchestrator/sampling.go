// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"
	"time"

	"github.com/luxfi/pqconsensus/crypto/hash"
	"github.com/luxfi/pqconsensus/propagation"
	"github.com/luxfi/pqconsensus/sampling"
	"github.com/luxfi/pqconsensus/vertex"
	"github.com/luxfi/pqconsensus/wire"
)

// pollInterval is how often an in-flight round's readiness is
// re-checked while waiting for peer responses.
const pollInterval = 10 * time.Millisecond

// runSampling drives v through successive sampling rounds until it
// finalizes or exhausts MaxRounds (§4.8, §7). resultCh, if non-nil,
// receives exactly one ProposeResult before the loop returns; it is never
// blocked on if nobody reads it, since it is always created with a
// buffer of one.
func (o *Orchestrator) runSampling(v *vertex.Vertex, resultCh chan<- ProposeResult) {
	defer o.wg.Done()

	maxRounds := o.cfg.Consensus.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 1
	}

	for round := uint64(1); round <= uint64(maxRounds); round++ {
		select {
		case <-o.ctx.Done():
			return
		default:
		}

		trusted := o.trustedPeers()
		peers, err := o.sampler.SelectPeers(trusted)
		if err != nil {
			// Not enough trusted peers yet to sample; wait and retry the
			// same round rather than burning through MaxRounds on a
			// network that simply hasn't reached MinNetworkSize.
			round--
			select {
			case <-time.After(o.cfg.Consensus.QueryTimeout):
			case <-o.ctx.Done():
				return
			}
			continue
		}

		queryID := roundQueryID(v.ID(), round)
		rnd := o.sampler.StartRound(v.ID(), queryID, round, peers)

		o.dispatchQueries(queryID, v.ID(), round, peers)

		o.awaitRound(rnd)

		tally, ok := o.sampler.Resolve(queryID)
		if !ok {
			continue
		}

		byzantineFraction := o.byzantineFraction(trusted)
		alpha := o.quorum.Observe(time.Now(), byzantineFraction)

		if tally.Outcome == sampling.Inconclusive {
			continue
		}

		if err := o.confTrack.UpdateWithAlpha(v.ID(), tally.Accepts, tally.Total, alpha); err != nil {
			continue
		}

		finalized, err := o.confTrack.IsFinalized(v.ID())
		if err != nil || !finalized {
			continue
		}

		o.finalize(v, resultCh)
		return
	}

	incr(o.cfg.Metrics.VerticesTimedOut)
	sendResult(resultCh, ProposeResult{Err: ErrConsensusTimeout})
}

// dispatchQueries sends a QueryVertex to every sampled peer, routed
// through that peer's circuit breaker so a peer already known to be
// failing does not stall the round.
func (o *Orchestrator) dispatchQueries(queryID, vertexID vertex.ID, round uint64, peers []vertex.ID) {
	if o.cfg.Transport == nil {
		return
	}

	msg := wire.QueryVertex{QueryID: queryID, VertexID: vertexID, RoundNumber: round}
	env, err := msg.Encode()
	if err != nil {
		return
	}

	for _, peer := range peers {
		peer := peer
		breaker := o.breakerFor(peer)
		timeout := o.adaptiveQueryTimeout(peer)
		_ = breaker.Call(o.ctx, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			start := time.Now()
			err := o.cfg.Transport.Send(ctx, peer, propagation.TopicConsensus, env)
			if err == nil {
				o.timeouts.RecordLatency(peer.String(), time.Since(start))
			}
			return err
		})
	}
}

// awaitRound blocks until rnd is ready to resolve: every peer has
// responded, the outcome is already mathematically decided, the round's
// deadline has passed, or the Orchestrator is shutting down.
func (o *Orchestrator) awaitRound(rnd *sampling.Round) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if o.sampler.Ready(rnd.QueryID) {
			return
		}
		select {
		case <-ticker.C:
		case <-o.ctx.Done():
			return
		}
	}
}

// byzantineFraction estimates the fraction of known peers the detector
// currently considers untrusted (untrusted / (untrusted + trusted)),
// feeding the adaptive quorum controller.
func (o *Orchestrator) byzantineFraction(trusted []vertex.ID) float64 {
	untrusted := o.detector.GetUntrusted()
	total := len(trusted) + len(untrusted)
	if total == 0 {
		return 0
	}
	return float64(len(untrusted)) / float64(total)
}

// finalize allocates a sequence number, durably marks v finalized,
// publishes the finalization, and reports success to resultCh. It first
// waits for every one of v's parents to be finalized, since sampling
// rounds for distinct vertices run concurrently and a child can
// otherwise reach beta before its parent: without this gate the
// sequence numbers would not satisfy "if a is an ancestor of b, then
// seq_a < seq_b" (§3/§8).
func (o *Orchestrator) finalize(v *vertex.Vertex, resultCh chan<- ProposeResult) {
	if !o.awaitParentsFinalized(v) {
		sendResult(resultCh, ProposeResult{Err: ErrConsensusTimeout})
		return
	}

	seq, err := o.store.AllocateSequence()
	if err != nil {
		sendResult(resultCh, ProposeResult{Err: err})
		return
	}
	if err := o.store.MarkFinalized(v.ID(), seq); err != nil {
		sendResult(resultCh, ProposeResult{Err: err})
		return
	}

	o.recordSequence(v.ID(), seq)
	incr(o.cfg.Metrics.VerticesFinalized)
	o.publishFinalization(FinalizedVertex{Sequence: seq, VertexID: v.ID(), Payload: v.Payload()})
	sendResult(resultCh, ProposeResult{Sequence: seq})
}

// awaitParentsFinalized blocks until every parent of v has a recorded
// finalization sequence number, polling at pollInterval. It returns
// false only if the Orchestrator shuts down first.
func (o *Orchestrator) awaitParentsFinalized(v *vertex.Vertex) bool {
	parents := v.ParentIDs()
	if len(parents) == 0 {
		return true
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if o.allParentsFinalized(parents) {
			return true
		}
		select {
		case <-ticker.C:
		case <-o.ctx.Done():
			return false
		}
	}
}

// allParentsFinalized reports whether every id in parents already has a
// recorded finalization sequence.
func (o *Orchestrator) allParentsFinalized(parents []vertex.ID) bool {
	o.seqMu.RLock()
	defer o.seqMu.RUnlock()
	for _, p := range parents {
		if _, ok := o.seqOf[p]; !ok {
			return false
		}
	}
	return true
}

// roundQueryID derives a unique query id for (vertexID, round). It need
// not be unpredictable, only collision-free across rounds and vertices,
// so a content hash is sufficient; no randomness is required.
func roundQueryID(vertexID vertex.ID, round uint64) vertex.ID {
	buf := make([]byte, hash.Size+8)
	copy(buf, vertexID[:])
	for i := 0; i < 8; i++ {
		buf[hash.Size+i] = byte(round >> (56 - 8*i))
	}
	return hash.Sum(buf)
}

// sendResult delivers r to resultCh without blocking if resultCh is nil
// or already has a result (it is always created with a buffer of one).
func sendResult(resultCh chan<- ProposeResult, r ProposeResult) {
	if resultCh == nil {
		return
	}
	select {
	case resultCh <- r:
	default:
	}
}

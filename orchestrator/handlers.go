// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/luxfi/pqconsensus/byzantine"
	"github.com/luxfi/pqconsensus/crypto/sig"
	"github.com/luxfi/pqconsensus/propagation"
	"github.com/luxfi/pqconsensus/vertex"
	"github.com/luxfi/pqconsensus/wire"
)

// HandleEnvelope dispatches an incoming wire envelope from peer to the
// appropriate handler, returning a response envelope when the message
// expects one (QueryVertex) and ok=true, or ok=false when there is
// nothing to send back.
func (o *Orchestrator) HandleEnvelope(ctx context.Context, peer vertex.ID, env wire.Envelope) (wire.Envelope, bool, error) {
	switch env.Kind {
	case wire.KindProposeVertex:
		return wire.Envelope{}, false, o.handleProposeVertex(ctx, peer, env)
	case wire.KindQueryVertex:
		resp, err := o.handleQueryVertex(peer, env)
		if err != nil {
			return wire.Envelope{}, false, err
		}
		return resp, true, nil
	case wire.KindVoteAccept:
		return wire.Envelope{}, false, o.handleVoteAccept(peer, env)
	case wire.KindVoteReject:
		return wire.Envelope{}, false, o.handleVoteReject(peer, env)
	default:
		return wire.Envelope{}, false, wire.ErrUnknownKind
	}
}

// handleProposeVertex ingests a remotely-proposed vertex (§4.8): verify
// hash and signature, deduplicate, check parent availability, then store
// and begin sampling, or park pending missing parents.
func (o *Orchestrator) handleProposeVertex(ctx context.Context, peer vertex.ID, env wire.Envelope) error {
	msg, err := wire.DecodeProposeVertex(env)
	if err != nil {
		return err
	}
	v := msg.Vertex

	if o.dedup.Seen(v.ID()) {
		return nil
	}

	if err := o.verifyVertex(peer, v); err != nil {
		return err
	}

	return o.ingest(ctx, v)
}

// verifyVertex checks v's content hash and creator signature, recording
// an invalid-signature strike against peer on failure.
func (o *Orchestrator) verifyVertex(peer vertex.ID, v *vertex.Vertex) error {
	if o.cfg.Keys == nil {
		return ErrUnknownCreator
	}
	pub, ok := o.cfg.Keys.PublicKey(v.Creator())
	if !ok {
		return ErrUnknownCreator
	}
	if err := vertex.Verify(v, pub); err != nil {
		o.detector.RecordInvalidSignature(peer)
		incr(o.cfg.Metrics.InvalidSignatures)
		return err
	}
	return nil
}

// ingest stores v if its parents are all known, rebroadcasts it, and
// begins sampling; otherwise it parks v in the pending set and schedules
// parent fetches. Any vertex that becomes ready as a side effect of a
// fetch completing is recursively ingested the same way.
func (o *Orchestrator) ingest(ctx context.Context, v *vertex.Vertex) error {
	missing, err := o.missingParents(v)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		o.pending.Park(v, missing, time.Now())
		o.scheduleFetches(ctx, v, missing)
		return nil
	}

	if err := o.store.StoreVertex(v); err != nil {
		return err
	}
	o.confTrack.Init(v.ID())
	incr(o.cfg.Metrics.VerticesReceived)

	if env, err := (wire.ProposeVertex{Vertex: v}).Encode(); err == nil {
		o.broadcast(ctx, propagation.TopicConsensus, env)
	}

	o.wg.Add(1)
	go o.runSampling(v, nil)

	for _, ready := range o.pending.Resolve(v.ID()) {
		if err := o.ingest(ctx, ready); err != nil {
			return err
		}
	}
	return nil
}

// scheduleFetches attempts to recover each of v's missing parents from
// whichever peer is available, retrying with the fetcher's bounded
// back-off. A fetch that succeeds re-enters this peer's pipeline through
// the pending set's Resolve once the parent is stored.
func (o *Orchestrator) scheduleFetches(ctx context.Context, v *vertex.Vertex, missing []vertex.ID) {
	if o.fetcher == nil || o.cfg.Peers == nil {
		return
	}
	peers := o.cfg.Peers.Peers()
	if len(peers) == 0 {
		return
	}

	for _, parentID := range missing {
		parentID := parentID
		source := peers[0]
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			parent, err := o.fetcher.FetchParent(o.ctx, source, parentID)
			if err != nil || parent == nil {
				return
			}
			if err := o.verifyVertex(source, parent); err != nil {
				return
			}
			if err := o.ingest(ctx, parent); err != nil {
				return
			}
		}()
	}
}

// handleQueryVertex answers a sampling query with this peer's current
// preference for the named vertex, signed over (queryID, vertexID,
// selfID).
func (o *Orchestrator) handleQueryVertex(peer vertex.ID, env wire.Envelope) (wire.Envelope, error) {
	if o.cfg.PrivateKey == nil {
		return wire.Envelope{}, ErrNoPrivateKey
	}

	q, err := wire.DecodeQueryVertex(env)
	if err != nil {
		return wire.Envelope{}, err
	}

	accept := o.confTrack.LastChit(q.VertexID)

	payload := votePayload(q.QueryID, q.VertexID, o.cfg.SelfID)
	signature, err := sig.Sign(o.cfg.PrivateKey, payload)
	if err != nil {
		return wire.Envelope{}, err
	}

	if accept {
		return (wire.VoteAccept{QueryID: q.QueryID, VertexID: q.VertexID, Voter: o.cfg.SelfID, Signature: []byte(signature)}).Encode()
	}
	return (wire.VoteReject{QueryID: q.QueryID, VertexID: q.VertexID, Voter: o.cfg.SelfID, Signature: []byte(signature)}).Encode()
}

// handleVoteAccept verifies and routes an affirmative sampling response.
func (o *Orchestrator) handleVoteAccept(peer vertex.ID, env wire.Envelope) error {
	msg, err := wire.DecodeVoteAccept(env)
	if err != nil {
		return err
	}
	return o.handleVote(msg.QueryID, msg.VertexID, msg.Voter, msg.Signature, true)
}

// handleVoteReject verifies and routes a negative sampling response.
func (o *Orchestrator) handleVoteReject(peer vertex.ID, env wire.Envelope) error {
	msg, err := wire.DecodeVoteReject(env)
	if err != nil {
		return err
	}
	return o.handleVote(msg.QueryID, msg.VertexID, msg.Voter, msg.Signature, false)
}

// handleVote is the shared accept/reject response path: verify the
// voter's signature, guard against equivocation within the same query,
// and forward the vote to the sampling engine.
func (o *Orchestrator) handleVote(queryID, vertexID, voter vertex.ID, signature []byte, accept bool) error {
	if o.cfg.Keys != nil {
		pub, ok := o.cfg.Keys.PublicKey(voter)
		if !ok {
			return ErrUnknownCreator
		}
		payload := votePayload(queryID, vertexID, voter)
		if !sig.Verify(pub, payload, sig.Signature(signature)) {
			o.detector.RecordInvalidSignature(voter)
			incr(o.cfg.Metrics.InvalidSignatures)
			return vertex.ErrInvalidSignature
		}
	}

	voteTag := []byte{0}
	if accept {
		voteTag[0] = 1
	}
	// Keying the equivocation check on queryID rather than vertexID
	// confines it to "did this voter answer the same query twice
	// differently"; a legitimate change of opinion across rounds uses a
	// distinct queryID and is never flagged.
	if err := o.detector.RecordVote(voter, queryID, voteTag); err != nil {
		incr(o.cfg.Metrics.Equivocations)
		if errors.Is(err, byzantine.ErrEquivocation) {
			return nil
		}
		return err
	}

	o.sampler.RecordResponse(queryID, voter, accept)
	return nil
}

// votePayload is the canonical signed content of a QueryVertex response:
// queryID || vertexID || voter, concatenated big-endian fixed width.
func votePayload(queryID, vertexID, voter vertex.ID) []byte {
	buf := make([]byte, 0, len(queryID)*3)
	buf = append(buf, queryID[:]...)
	buf = append(buf, vertexID[:]...)
	buf = append(buf, voter[:]...)
	return buf
}

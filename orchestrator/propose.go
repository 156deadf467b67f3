// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"
	"time"

	"github.com/luxfi/pqconsensus/propagation"
	"github.com/luxfi/pqconsensus/vertex"
	"github.com/luxfi/pqconsensus/wire"
)

// ProposeResult is delivered once to the channel returned by Propose:
// either the sequence number assigned at finalization, or the error that
// ended sampling (typically ErrConsensusTimeout).
type ProposeResult struct {
	Sequence uint64
	Err      error
}

// Propose builds a new vertex over the current DAG frontier, signs it
// with the local key, stores and broadcasts it, and begins sampling
// (§6's propose(payload) → (vertex_id, future<(seq, id)>)). The returned
// channel receives exactly one ProposeResult once the vertex finalizes
// or its sampling rounds are exhausted.
func (o *Orchestrator) Propose(ctx context.Context, payload []byte) (vertex.ID, <-chan ProposeResult, error) {
	if o.cfg.PrivateKey == nil {
		return vertex.ID{}, nil, ErrNoPrivateKey
	}

	tips, err := o.selectTips()
	if err != nil {
		return vertex.ID{}, nil, err
	}

	v, err := vertex.Build(o.cfg.SelfID, tips, payload, o.cfg.PrivateKey, time.Now())
	if err != nil {
		return vertex.ID{}, nil, err
	}

	if err := o.store.StoreVertex(v); err != nil {
		return vertex.ID{}, nil, err
	}
	o.confTrack.Init(v.ID())
	o.dedup.Seen(v.ID())

	msg := wire.ProposeVertex{Vertex: v}
	if env, err := msg.Encode(); err == nil {
		o.broadcast(ctx, propagation.TopicConsensus, env)
	}

	incr(o.cfg.Metrics.VerticesProposed)

	resultCh := make(chan ProposeResult, 1)
	o.wg.Add(1)
	go o.runSampling(v, resultCh)

	return v.ID(), resultCh, nil
}

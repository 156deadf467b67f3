// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package orchestrator binds the vertex, store, byzantine, confidence,
// sampling, propagation, adaptive, and wire packages into the consensus
// state machine described in §4.8: local proposal, remote vertex
// ingestion, per-vertex sampling rounds, and finalization dispatch. It is
// grounded on the teacher's engine/dag/consensus_real.go DAGConsensus —
// frontier tracking via a mutex-protected map, deterministic sorted tip
// selection, and vote routing — generalized from that file's UTXO
// conflict-set/double-spend machinery to this spec's opaque-payload DAG,
// which has no double-spend concept, only parent/child finality.
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/luxfi/pqconsensus/adaptive"
	"github.com/luxfi/pqconsensus/byzantine"
	"github.com/luxfi/pqconsensus/confidence"
	"github.com/luxfi/pqconsensus/config"
	"github.com/luxfi/pqconsensus/crypto/sig"
	"github.com/luxfi/pqconsensus/propagation"
	"github.com/luxfi/pqconsensus/sampling"
	"github.com/luxfi/pqconsensus/store"
	"github.com/luxfi/pqconsensus/vertex"
	"github.com/luxfi/pqconsensus/wire"
)

// KeyResolver maps a peer or creator identity to the public key needed to
// verify its signatures. The orchestrator never custodies keys itself —
// that is the out-of-scope Vault collaborator's job (§6) — it only needs
// a lookup.
type KeyResolver interface {
	PublicKey(id vertex.ID) (*sig.PublicKey, bool)
}

// PeerSource supplies the current set of peers the sampling engine may
// draw from. Membership and stake-weighted trust live outside this
// module (§6's ReputationLedger collaborator); the orchestrator only
// reads the current snapshot.
type PeerSource interface {
	Peers() []vertex.ID
}

// Broadcaster sends a wire envelope to every known peer on topic. A
// concrete Transport collaborator (§6) implements this over the real
// network; tests use an in-memory fake.
type Broadcaster interface {
	Broadcast(ctx context.Context, topic propagation.Topic, env wire.Envelope) error
	Send(ctx context.Context, peer vertex.ID, topic propagation.Topic, env wire.Envelope) error
}

// FinalizedVertex is delivered to subscribers once a vertex crosses the
// finality threshold (§6's subscribe_finalizations stream).
type FinalizedVertex struct {
	Sequence uint64
	VertexID vertex.ID
	Payload  []byte
}

// VertexState is an observability snapshot returned by Query (§6's
// query(vertex_id) operation).
type VertexState struct {
	Status     vertex.Status
	Confidence confidence.State
	Sequence   uint64
	HasSeq     bool
}

// Config parameterizes an Orchestrator, built from a config.Config plus
// the identity and collaborator wiring config.Config itself cannot
// express.
type Config struct {
	Consensus   config.Config
	SelfID      vertex.ID
	PrivateKey  *sig.PrivateKey
	Keys        KeyResolver
	Peers       PeerSource
	Transport   Broadcaster
	FetchPeer   propagation.FetchFunc
	Metrics     Metrics
}

// Metrics is the narrow slice of observability counters the orchestrator
// emits through; nil fields are simply skipped, so a caller wiring only
// some of them is safe.
type Metrics struct {
	VerticesProposed  Counter
	VerticesReceived  Counter
	VerticesFinalized Counter
	VerticesTimedOut  Counter
	InvalidSignatures Counter
	Equivocations     Counter
}

// Counter is satisfied by metrics.Counter, kept narrow so this package
// does not need to import the prometheus registration machinery.
type Counter interface {
	Inc()
}

func incr(c Counter) {
	if c != nil {
		c.Inc()
	}
}

// Orchestrator is the consensus engine for one local peer.
type Orchestrator struct {
	cfg Config

	store     store.VertexStore
	detector  *byzantine.Detector
	confTrack *confidence.Tracker
	sampler   *sampling.Engine

	dedup   *propagation.Dedup
	pending *propagation.PendingSet
	fetcher *propagation.Fetcher

	quorum   *adaptive.QuorumController
	timeouts *adaptive.TimeoutTracker

	breakersMu sync.Mutex
	breakers   map[vertex.ID]*adaptive.CircuitBreaker

	subsMu sync.Mutex
	subs   []chan FinalizedVertex

	seqMu sync.RWMutex
	seqOf map[vertex.ID]uint64

	finalizeCh     chan FinalizedVertex
	dispatcherDone chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an Orchestrator from cfg and the component instances it
// binds together. s, detector, confTrack, and sampler are constructed by
// the caller (so tests can substitute an in-memory store) and owned by
// the returned Orchestrator from this point on.
func New(cfg Config, s store.VertexStore, detector *byzantine.Detector, confTrack *confidence.Tracker, sampler *sampling.Engine) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	fetchCfg := propagation.DefaultFetchConfig()
	var fetcher *propagation.Fetcher
	if cfg.FetchPeer != nil {
		fetcher = propagation.NewFetcher(fetchCfg, cfg.FetchPeer)
	}

	timeoutCfg := adaptive.DefaultTimeoutConfig()
	if cfg.Consensus.QueryTimeout > 0 {
		timeoutCfg.BaseTimeout = cfg.Consensus.QueryTimeout
	}

	o := &Orchestrator{
		cfg:            cfg,
		store:          s,
		detector:       detector,
		confTrack:      confTrack,
		sampler:        sampler,
		dedup:          propagation.NewDedup(cfg.Consensus.DedupCapacity),
		pending:        propagation.NewPendingSet(propagation.DefaultPendingCapacity, propagation.DefaultPendingTTL),
		fetcher:        fetcher,
		quorum:         adaptive.NewQuorumController(adaptive.DefaultQuorumConfig()),
		timeouts:       adaptive.NewTimeoutTracker(timeoutCfg),
		breakers:       make(map[vertex.ID]*adaptive.CircuitBreaker),
		seqOf:          make(map[vertex.ID]uint64),
		finalizeCh:     make(chan FinalizedVertex, 1024),
		dispatcherDone: make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
	go o.runDispatcher()
	return o
}

// Close stops all in-flight sampling loops, drains the finalization
// dispatcher, and closes every subscriber channel.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()

	close(o.finalizeCh)
	<-o.dispatcherDone

	o.subsMu.Lock()
	for _, ch := range o.subs {
		close(ch)
	}
	o.subs = nil
	o.subsMu.Unlock()
}

// breakerFor returns the CircuitBreaker tracking peer, creating one with
// the default config on first use.
func (o *Orchestrator) breakerFor(peer vertex.ID) *adaptive.CircuitBreaker {
	o.breakersMu.Lock()
	defer o.breakersMu.Unlock()

	b, ok := o.breakers[peer]
	if !ok {
		b = adaptive.NewCircuitBreaker(peer.String(), adaptive.DefaultBreakerConfig())
		o.breakers[peer] = b
	}
	return b
}

// trustedPeers returns the current trusted subset of the configured peer
// source, or nil if no PeerSource was wired.
func (o *Orchestrator) trustedPeers() []vertex.ID {
	if o.cfg.Peers == nil {
		return nil
	}
	all := o.cfg.Peers.Peers()
	trusted := make([]vertex.ID, 0, len(all))
	for _, p := range all {
		if o.detector.IsTrusted(p) {
			trusted = append(trusted, p)
		}
	}
	return trusted
}

// selectTips returns the current DAG frontier as deterministically
// sorted vertex.ParentRef values, so two honest peers proposing at the
// same moment from the same store state always compute the same parent
// set. Byte comparison on the fixed-size digest generalizes the
// teacher's ids.ID.Compare, which this module's vertex.ID does not
// implement directly.
func (o *Orchestrator) selectTips() ([]vertex.ParentRef, error) {
	tips, err := o.store.GetDAGTip()
	if err != nil {
		return nil, fmt.Errorf("orchestrator: select tips: %w", err)
	}

	slices.SortFunc(tips, func(a, b vertex.ID) int {
		return bytes.Compare(a[:], b[:])
	})

	refs := make([]vertex.ParentRef, 0, len(tips))
	for _, id := range tips {
		v, ok, err := o.store.GetVertex(id)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: load tip %s: %w", id, err)
		}
		if !ok {
			continue
		}
		refs = append(refs, vertex.ParentRef{ID: id, Height: v.Height()})
	}
	return refs, nil
}

// missingParents returns the subset of v's declared parents not yet
// present in the store.
func (o *Orchestrator) missingParents(v *vertex.Vertex) ([]vertex.ID, error) {
	var missing []vertex.ID
	for _, p := range v.ParentIDs() {
		_, ok, err := o.store.GetVertex(p)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, p)
		}
	}
	return missing, nil
}

// broadcast publishes env on topic via the wired Transport, if any. It is
// a best-effort operation: propagation failures are logged by the
// transport itself and never block the caller's local state transition.
func (o *Orchestrator) broadcast(ctx context.Context, topic propagation.Topic, env wire.Envelope) {
	if o.cfg.Transport == nil {
		return
	}
	_ = o.cfg.Transport.Broadcast(ctx, topic, env)
}

// adaptiveQueryTimeout returns the configured query timeout for peer,
// deferring to the adaptive tracker once it has enough samples and
// falling back to the static config value otherwise.
func (o *Orchestrator) adaptiveQueryTimeout(peer vertex.ID) time.Duration {
	if d := o.timeouts.Timeout(peer.String()); d > 0 {
		return d
	}
	return o.cfg.Consensus.QueryTimeout
}

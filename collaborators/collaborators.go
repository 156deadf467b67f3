// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package collaborators declares the contracts the consensus core expects
// from components explicitly out of scope for this module (§1, §6):
// authorization/policy, the MCP/agent RPC surface, the concrete network
// transport, the secret vault, reputation/stake accounting, and the HTTP
// API. No concrete implementation lives here — only the interface each
// collaborator must satisfy, following the teacher's pattern of declaring
// thin interfaces at package boundaries (e.g. core/common, engine/core/common).
package collaborators

import (
	"context"

	"github.com/luxfi/pqconsensus/vertex"
	"github.com/luxfi/pqconsensus/wire"
)

// Authorizer evaluates whether an actor may perform an action against a
// resource, e.g. via CEL policy evaluation and derived-role resolution.
// The core calls this before accepting externally-submitted vertices, but
// implements no policy logic itself.
type Authorizer interface {
	Authorize(ctx context.Context, actor string, action string, resource string) (bool, error)
}

// AgentRPC is the out-of-scope MCP/agent surface. The core never
// implements this; it only needs a place to route agent-originated
// payloads once received, which this interface exists to document.
type AgentRPC interface {
	HandleAgentRequest(ctx context.Context, method string, params []byte) ([]byte, error)
}

// Transport is the concrete network layer (QUIC, libp2p, NAT traversal)
// the orchestrator dispatches wire envelopes through. The transport is
// responsible for authenticating peer identity at connection time; the
// core only deals in already-authenticated peer ids.
type Transport interface {
	// Send delivers env to peer on the given topic.
	Send(ctx context.Context, peer vertex.ID, topic string, env wire.Envelope) error
	// Dispatch is called by the transport for each received message; the
	// core registers a handler via SetDispatchHandler.
	SetDispatchHandler(handler func(peer vertex.ID, topic string, env wire.Envelope))
}

// Vault is the secret manager responsible for long-term key custody and
// at-rest encryption. The core's crypto/kem and crypto/hash keyed-stream
// mode supply the primitives a vault implementation would use, but key
// storage and rotation policy live entirely outside this module.
type Vault interface {
	Seal(ctx context.Context, keyID string, plaintext []byte) (ciphertext []byte, err error)
	Open(ctx context.Context, keyID string, ciphertext []byte) (plaintext []byte, err error)
}

// ReputationLedger is the stake/validator-weight accounting system. The
// byzantine package tracks per-peer reputation purely for sampling and
// trust decisions inside this module; converting that into staking
// rewards/slashing is this collaborator's job.
type ReputationLedger interface {
	StakeWeight(ctx context.Context, peer vertex.ID) (float64, error)
}

// HTTPAPI is the external-facing REST/gRPC surface that would expose
// vertex submission and query operations to clients. The core exposes
// only the orchestrator's Go API; an HTTPAPI implementation adapts that
// to wire formats like JSON or protobuf over HTTP.
type HTTPAPI interface {
	Start(ctx context.Context, addr string) error
	Stop(ctx context.Context) error
}

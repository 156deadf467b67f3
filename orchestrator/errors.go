// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import "errors"

var (
	// ErrNoPrivateKey is returned by Propose when the orchestrator was
	// constructed without a signing key.
	ErrNoPrivateKey = errors.New("orchestrator: no local private key configured")
	// ErrUnknownVertex names an id the store has never seen. Query does
	// not return it; it reports that case as ok=false with a nil error.
	ErrUnknownVertex = errors.New("orchestrator: unknown vertex")
	// ErrUnknownCreator is returned when a received vertex's creator has
	// no registered public key, so its signature cannot be checked.
	ErrUnknownCreator = errors.New("orchestrator: unknown creator, cannot verify signature")
	// ErrConsensusTimeout is surfaced to a Propose caller's result future
	// when a vertex's sampling rounds are exhausted without reaching the
	// finality threshold (§7). The vertex remains Accepted and may be
	// resampled by a later round of the same loop elsewhere in the
	// network; it is not retried automatically by this peer.
	ErrConsensusTimeout = errors.New("orchestrator: consensus timeout, vertex not finalized")
)

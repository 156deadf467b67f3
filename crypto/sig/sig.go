// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sig wraps ML-DSA-87 signing and batched verification for vertex
// authentication.
package sig

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/luxfi/crypto/mldsa"
	"golang.org/x/sync/errgroup"
)

// Mode is the ML-DSA parameter set used by this package. The spec calls for
// ML-DSA-87, the highest NIST security level; the teacher's quasar package
// uses MLDSA65 for its validator handshakes, a lower level appropriate to a
// different trust model, so we use a higher parameter set rather than a
// different library.
const Mode = mldsa.MLDSA87

// PrivateKey and PublicKey alias the underlying library types so callers
// never need to import mldsa directly.
type (
	PrivateKey = mldsa.PrivateKey
	PublicKey  = mldsa.PublicKey
)

// Signature is a detached ML-DSA-87 signature.
type Signature []byte

// Generate returns a fresh ML-DSA-87 key pair, following the teacher's
// quasar.Hybrid.AddValidator: GenerateKey returns only the private key,
// which in turn carries its PublicKey as a field.
func Generate() (*PublicKey, *PrivateKey, error) {
	priv, err := mldsa.GenerateKey(rand.Reader, Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("generate ml-dsa-87 key: %w", err)
	}
	return priv.PublicKey, priv, nil
}

// Sign produces a detached signature over msg. Passing nil opts selects
// ML-DSA's pure (deterministic) signing mode rather than its hedged
// variant, as the teacher's quasar package does for Ringtail signing —
// this package's equivocation detection (§4.6) depends on the same
// (key, message) pair always producing the same signature.
func Sign(priv *PrivateKey, msg []byte) (Signature, error) {
	sig, err := priv.Sign(rand.Reader, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return Signature(sig), nil
}

// Verify checks sig against msg under pub.
func Verify(pub *PublicKey, msg []byte, sig Signature) bool {
	return pub.Verify(msg, []byte(sig), nil)
}

// BatchItem is one entry in a batch verification request.
type BatchItem struct {
	PublicKey *PublicKey
	Message   []byte
	Signature Signature
}

// BatchResult is the per-item outcome of a batch verification, indexed
// identically to the input slice so callers can correlate failures back to
// their originating vertex without re-walking the batch.
type BatchResult struct {
	Index int
	Valid bool
}

// defaultWorkers bounds the fan-out for BatchVerify when the caller does not
// override it. ML-DSA verification is CPU-bound; this is a fixed count
// and does not follow GOMAXPROCS.
const defaultWorkers = 8

// BatchVerify verifies every item in items concurrently across a bounded
// worker pool and returns one BatchResult per item, in input order. The
// per-item outcome is bit-identical to calling Verify sequentially on each
// item; only the wall-clock cost changes.
func BatchVerify(ctx context.Context, items []BatchItem, workers int) ([]BatchResult, error) {
	if workers <= 0 {
		workers = defaultWorkers
	}
	results := make([]BatchResult, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = BatchResult{
				Index: i,
				Valid: Verify(item.PublicKey, item.Message, item.Signature),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch verify: %w", err)
	}
	return results, nil
}

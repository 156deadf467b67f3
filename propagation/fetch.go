// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package propagation

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/luxfi/pqconsensus/vertex"
)

// FetchFunc requests missing from peer and returns it, or an error if the
// peer could not supply it this attempt.
type FetchFunc func(ctx context.Context, peer vertex.ID, missing vertex.ID) (*vertex.Vertex, error)

// FetchConfig bounds the retry effort spent recovering a missing parent
// (§4.7, §7 "Retries": "fetches for missing parents retry up to a small
// fixed bound with exponential back-off").
type FetchConfig struct {
	MaxRetries uint64
}

// DefaultFetchConfig returns a conservative small retry bound.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{MaxRetries: 5}
}

// Fetcher retries a FetchFunc with exponential back-off up to a fixed
// retry bound, per §4.7's missing-parent recovery contract.
type Fetcher struct {
	cfg FetchConfig
	do  FetchFunc
}

// NewFetcher returns a Fetcher that uses do to perform each attempt.
func NewFetcher(cfg FetchConfig, do FetchFunc) *Fetcher {
	return &Fetcher{cfg: cfg, do: do}
}

// FetchParent attempts to retrieve missing from peer, retrying with
// exponential back-off up to MaxRetries times after the first attempt
// (MaxRetries+1 attempts in all).
func (f *Fetcher) FetchParent(ctx context.Context, peer, missing vertex.ID) (*vertex.Vertex, error) {
	var result *vertex.Vertex

	operation := func() error {
		v, err := f.do(ctx, peer, missing)
		if err != nil {
			return err
		}
		result = v
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.cfg.MaxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, fmt.Errorf("fetch parent %s from %s: %w", missing, peer, err)
	}
	return result, nil
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "fmt"

// Builder provides a fluent interface for constructing a Config,
// following the teacher's config.Builder pattern (config/builder.go).
type Builder struct {
	cfg *Config
	err error
}

// NewBuilder returns a Builder seeded from the Local preset.
func NewBuilder() *Builder {
	cfg := LocalConfig
	return &Builder{cfg: &cfg}
}

// FromPreset replaces the builder's working config with a copy of the
// named preset.
func (b *Builder) FromPreset(preset NetworkType) *Builder {
	if b.err != nil {
		return b
	}
	cfg, ok := Preset(preset)
	if !ok {
		b.err = fmt.Errorf("config: unknown preset %q", preset)
		return b
	}
	b.cfg = &cfg
	return b
}

// WithSampleSize sets SampleSize and, when MinNetworkSize would no longer
// dominate it, raises MinNetworkSize to match.
func (b *Builder) WithSampleSize(k int) *Builder {
	if b.err != nil {
		return b
	}
	if k < 1 {
		b.err = fmt.Errorf("%w: got %d", ErrSampleSizeTooLow, k)
		return b
	}
	b.cfg.SampleSize = k
	if b.cfg.MinNetworkSize < k {
		b.cfg.MinNetworkSize = k
	}
	return b
}

// WithQuorumAlpha sets QuorumAlpha.
func (b *Builder) WithQuorumAlpha(alpha float64) *Builder {
	if b.err != nil {
		return b
	}
	if alpha < 0.51 || alpha > 0.95 {
		b.err = fmt.Errorf("%w: got %f", ErrQuorumAlphaOutOfRange, alpha)
		return b
	}
	b.cfg.QuorumAlpha = alpha
	return b
}

// WithFinalityBeta sets FinalityBeta.
func (b *Builder) WithFinalityBeta(beta int) *Builder {
	if b.err != nil {
		return b
	}
	if beta < 1 {
		b.err = fmt.Errorf("%w: got %d", ErrFinalityBetaTooLow, beta)
		return b
	}
	b.cfg.FinalityBeta = beta
	return b
}

// WithCircuitBreaker overrides the CircuitBreaker option group.
func (b *Builder) WithCircuitBreaker(cb CircuitBreakerConfig) *Builder {
	if b.err != nil {
		return b
	}
	b.cfg.CircuitBreaker = cb
	return b
}

// WithAdaptiveTimeout overrides the AdaptiveTimeout option group.
func (b *Builder) WithAdaptiveTimeout(at AdaptiveTimeoutConfig) *Builder {
	if b.err != nil {
		return b
	}
	b.cfg.AdaptiveTimeout = at
	return b
}

// Build validates and returns the final Config.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := Validate(b.cfg); err != nil {
		return nil, err
	}
	return b.cfg, nil
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"fmt"
)

// Validation errors, mirroring the teacher's per-field sentinel style
// (config/validator.go).
var (
	ErrSampleSizeTooLow     = errors.New("config: sample size must be at least 1")
	ErrQuorumAlphaOutOfRange = errors.New("config: quorum alpha must be in [0.51, 0.95]")
	ErrFinalityBetaTooLow   = errors.New("config: finality beta must be at least 1")
	ErrMaxRoundsTooLow      = errors.New("config: max rounds must be at least 1")
	ErrMinNetworkSizeTooLow = errors.New("config: min network size must be at least sample size")
	ErrDedupCapacityTooLow  = errors.New("config: dedup capacity must be positive")
	ErrBlockCacheTooLow     = errors.New("config: block cache bytes must be positive")
)

// Validate checks cfg against spec §6's recognized-option constraints.
func Validate(cfg *Config) error {
	if cfg.SampleSize < 1 {
		return fmt.Errorf("%w: got %d", ErrSampleSizeTooLow, cfg.SampleSize)
	}
	if cfg.QuorumAlpha < 0.51 || cfg.QuorumAlpha > 0.95 {
		return fmt.Errorf("%w: got %f", ErrQuorumAlphaOutOfRange, cfg.QuorumAlpha)
	}
	if cfg.FinalityBeta < 1 {
		return fmt.Errorf("%w: got %d", ErrFinalityBetaTooLow, cfg.FinalityBeta)
	}
	if cfg.MaxRounds < 1 {
		return fmt.Errorf("%w: got %d", ErrMaxRoundsTooLow, cfg.MaxRounds)
	}
	if cfg.MinNetworkSize < cfg.SampleSize {
		return fmt.Errorf("%w: min_network_size=%d < sample_size=%d", ErrMinNetworkSizeTooLow, cfg.MinNetworkSize, cfg.SampleSize)
	}
	if cfg.DedupCapacity < 1 {
		return fmt.Errorf("%w: got %d", ErrDedupCapacityTooLow, cfg.DedupCapacity)
	}
	if cfg.BlockCacheBytes < 1 {
		return fmt.Errorf("%w: got %d", ErrBlockCacheTooLow, cfg.BlockCacheBytes)
	}
	return nil
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the recognized configuration options (§6) for a
// consensus instance, following the teacher's Builder/preset pattern
// (config/builder.go) generalized from the Snowball K/AlphaPreference/Beta
// shape to this spec's sampling/quorum/finality parameters.
package config

import "time"

// NetworkType selects a built-in parameter preset.
type NetworkType string

const (
	MainnetNetwork NetworkType = "mainnet"
	TestnetNetwork NetworkType = "testnet"
	LocalNetwork   NetworkType = "local"
)

// CircuitBreakerConfig is the §6 circuit_breaker option group.
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failureThreshold" yaml:"failureThreshold"`
	OpenTimeout      time.Duration `json:"openTimeout" yaml:"openTimeout"`
	SuccessThreshold int           `json:"successThreshold" yaml:"successThreshold"`
	HalfOpenMaxCalls int           `json:"halfOpenMaxCalls" yaml:"halfOpenMaxCalls"`
	RequestTimeout   time.Duration `json:"requestTimeout" yaml:"requestTimeout"`
}

// AdaptiveTimeoutConfig is the §6 adaptive_timeout option group.
type AdaptiveTimeoutConfig struct {
	Percentile float64       `json:"percentile" yaml:"percentile"`
	Multiplier float64       `json:"multiplier" yaml:"multiplier"`
	Min        time.Duration `json:"min" yaml:"min"`
	Max        time.Duration `json:"max" yaml:"max"`
	MaxSamples int           `json:"maxSamples" yaml:"maxSamples"`
}

// Config holds every recognized consensus option from spec §6.
type Config struct {
	SampleSize      int           `json:"sampleSize" yaml:"sampleSize"`
	QuorumAlpha     float64       `json:"quorumAlpha" yaml:"quorumAlpha"`
	FinalityBeta    int           `json:"finalityBeta" yaml:"finalityBeta"`
	MaxRounds       int           `json:"maxRounds" yaml:"maxRounds"`
	QueryTimeout    time.Duration `json:"queryTimeout" yaml:"queryTimeout"`
	MinNetworkSize  int           `json:"minNetworkSize" yaml:"minNetworkSize"`
	BlockCacheBytes int64         `json:"blockCacheBytes" yaml:"blockCacheBytes"`
	DedupCapacity   int           `json:"dedupCapacity" yaml:"dedupCapacity"`

	CircuitBreaker  CircuitBreakerConfig  `json:"circuitBreaker" yaml:"circuitBreaker"`
	AdaptiveTimeout AdaptiveTimeoutConfig `json:"adaptiveTimeout" yaml:"adaptiveTimeout"`
}

// Preset configurations, mirroring the teacher's Mainnet/Testnet/Local
// shape scaled to this spec's parameters.
var (
	MainnetConfig = Config{
		SampleSize:      20,
		QuorumAlpha:     0.67,
		FinalityBeta:    20,
		MaxRounds:       256,
		QueryTimeout:    2 * time.Second,
		MinNetworkSize:  20,
		BlockCacheBytes: 512 << 20,
		DedupCapacity:   10_000,
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
			SuccessThreshold: 2,
			HalfOpenMaxCalls: 1,
			RequestTimeout:   10 * time.Second,
		},
		AdaptiveTimeout: AdaptiveTimeoutConfig{
			Percentile: 99,
			Multiplier: 2,
			Min:        100 * time.Millisecond,
			Max:        30 * time.Second,
			MaxSamples: 100,
		},
	}

	TestnetConfig = Config{
		SampleSize:      11,
		QuorumAlpha:     0.67,
		FinalityBeta:    10,
		MaxRounds:       128,
		QueryTimeout:    2 * time.Second,
		MinNetworkSize:  11,
		BlockCacheBytes: 128 << 20,
		DedupCapacity:   5_000,
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 4,
			OpenTimeout:      15 * time.Second,
			SuccessThreshold: 2,
			HalfOpenMaxCalls: 1,
			RequestTimeout:   5 * time.Second,
		},
		AdaptiveTimeout: AdaptiveTimeoutConfig{
			Percentile: 99,
			Multiplier: 2,
			Min:        100 * time.Millisecond,
			Max:        15 * time.Second,
			MaxSamples: 100,
		},
	}

	LocalConfig = Config{
		SampleSize:      5,
		QuorumAlpha:     0.67,
		FinalityBeta:    4,
		MaxRounds:       32,
		QueryTimeout:    500 * time.Millisecond,
		MinNetworkSize:  5,
		BlockCacheBytes: 16 << 20,
		DedupCapacity:   1_000,
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 3,
			OpenTimeout:      2 * time.Second,
			SuccessThreshold: 1,
			HalfOpenMaxCalls: 1,
			RequestTimeout:   1 * time.Second,
		},
		AdaptiveTimeout: AdaptiveTimeoutConfig{
			Percentile: 95,
			Multiplier: 2,
			Min:        10 * time.Millisecond,
			Max:        2 * time.Second,
			MaxSamples: 50,
		},
	}
)

// Preset returns a copy of the named built-in configuration.
func Preset(t NetworkType) (Config, bool) {
	switch t {
	case MainnetNetwork:
		return MainnetConfig, true
	case TestnetNetwork:
		return TestnetConfig, true
	case LocalNetwork:
		return LocalConfig, true
	default:
		return Config{}, false
	}
}

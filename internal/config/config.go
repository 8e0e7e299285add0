// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package config provides layered configuration loading for Podscale.
//
// Configuration is resolved in three layers with clear precedence:
//
//	ENV > config file (YAML) > built-in defaults
//
// Environment variables use the PODSCALE_ prefix with underscores mapping to
// nesting, e.g. PODSCALE_SERVER_PORT -> server.port.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Podscale server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Logging  LoggingConfig  `koanf:"logging"`
	Feed     FeedConfig     `koanf:"feed"`
	Modeling ModelingConfig `koanf:"modeling"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig controls the embedded badger store.
type StorageConfig struct {
	// Path is the badger data directory.
	Path string `koanf:"path"`

	// RetryAttempts bounds transaction retries (transient failures only).
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryInitialDelay is the first backoff delay; it doubles per attempt.
	RetryInitialDelay time.Duration `koanf:"retry_initial_delay"`
}

// LoggingConfig mirrors logging.Config for koanf unmarshaling.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// FeedConfig controls outbound CSV/RSS fetching.
type FeedConfig struct {
	Timeout           time.Duration `koanf:"timeout"`
	RetryAttempts     int           `koanf:"retry_attempts"`
	RetryInitialDelay time.Duration `koanf:"retry_initial_delay"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`

	// Timezone is the IANA zone used to assign episode publication
	// timestamps to calendar days.
	Timezone string `koanf:"timezone"`
}

// ModelingConfig holds the statistical pipeline knobs. The defaults match
// the documented pipeline behavior; they are exposed for experimentation,
// not routinely changed.
type ModelingConfig struct {
	// MedianGapThreshold is the maximum median day-gap accepted as a
	// daily series before validation fails or resampling kicks in.
	MedianGapThreshold float64 `koanf:"median_gap_threshold"`

	// MinRows is the minimum series length after cleaning.
	MinRows int `koanf:"min_rows"`

	// SpikeWindow is the trailing rolling window for spike statistics.
	SpikeWindow int `koanf:"spike_window"`

	// MaxClusters bounds the k-means elbow search.
	MaxClusters int `koanf:"max_clusters"`

	// ForecastHorizon is the default number of simulated days.
	ForecastHorizon int `koanf:"forecast_horizon"`
}

// Validate checks cross-field constraints after loading.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}
	if c.Modeling.MedianGapThreshold <= 0 {
		return fmt.Errorf("modeling.median_gap_threshold must be positive")
	}
	if c.Modeling.MinRows < 1 {
		return fmt.Errorf("modeling.min_rows must be at least 1")
	}
	if c.Modeling.SpikeWindow < 2 {
		return fmt.Errorf("modeling.spike_window must be at least 2")
	}
	if c.Modeling.MaxClusters < 1 {
		return fmt.Errorf("modeling.max_clusters must be at least 1")
	}
	if c.Modeling.ForecastHorizon < 1 {
		return fmt.Errorf("modeling.forecast_horizon must be at least 1")
	}
	if c.Feed.Timezone != "" {
		if _, err := time.LoadLocation(c.Feed.Timezone); err != nil {
			return fmt.Errorf("feed.timezone: %w", err)
		}
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

// Package config loads and validates the server-core configuration.
// Values are read once at startup and handed to the core as read-only
// parameters; nothing here is reloaded at runtime.
package config

import (
	"time"

	"github.com/samber/oops"
)

// Config is the full server-core configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Tables   TablesConfig   `koanf:"tables"`
	Throttle ThrottleConfig `koanf:"throttle"`
}

// ServerConfig identifies this server instance.
type ServerConfig struct {
	// Name is the server's network-visible name.
	Name string `koanf:"name"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	// Format is "json" or "text".
	Format string `koanf:"format"`
}

// MetricsConfig controls the observability endpoint.
type MetricsConfig struct {
	// Addr is the metrics/health listen address; empty disables it.
	Addr string `koanf:"addr"`
}

// TablesConfig fixes the hash-table bucket counts. Tables never resize;
// these are capacity-planning knobs, not limits.
type TablesConfig struct {
	ClientBuckets   int `koanf:"client_buckets"`
	ChannelBuckets  int `koanf:"channel_buckets"`
	WatchBuckets    int `koanf:"watch_buckets"`
	ThrottleBuckets int `koanf:"throttle_buckets"`
}

// ThrottleConfig tunes connection-attempt admission control.
type ThrottleConfig struct {
	// PeriodSeconds is the rolling window in seconds. Zero disables
	// throttling.
	PeriodSeconds int `koanf:"period"`
	// Limit is the attempts allowed per window before denial. Zero
	// disables throttling.
	Limit int `koanf:"limit"`
	// Exceptions are address masks exempt from denial.
	Exceptions []string `koanf:"exceptions"`
}

// Period returns the rolling window as a duration.
func (t ThrottleConfig) Period() time.Duration {
	return time.Duration(t.PeriodSeconds) * time.Second
}

// Default returns the configuration used when no file or flag says
// otherwise. Table sizes follow the long-standing production defaults.
func Default() Config {
	return Config{
		Server:  ServerConfig{Name: "irc.localhost"},
		Log:     LogConfig{Format: "json"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Tables: TablesConfig{
			ClientBuckets:   32768,
			ChannelBuckets:  16384,
			WatchBuckets:    32768,
			ThrottleBuckets: 8192,
		},
		Throttle: ThrottleConfig{
			PeriodSeconds: 60,
			Limit:         3,
		},
	}
}

// Validate rejects configurations the core cannot run with.
func (c Config) Validate() error {
	errb := oops.Code("BAD_CONFIG")

	if c.Server.Name == "" {
		return errb.Errorf("server.name must not be empty")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return errb.With("format", c.Log.Format).
			Errorf("log.format must be \"json\" or \"text\"")
	}
	if c.Tables.ClientBuckets <= 0 || c.Tables.ChannelBuckets <= 0 ||
		c.Tables.WatchBuckets <= 0 || c.Tables.ThrottleBuckets <= 0 {
		return errb.With("tables", c.Tables).
			Errorf("table bucket counts must be positive")
	}
	if c.Throttle.PeriodSeconds < 0 {
		return errb.With("period", c.Throttle.PeriodSeconds).
			Errorf("throttle.period must not be negative")
	}
	if c.Throttle.Limit < 0 {
		return errb.With("limit", c.Throttle.Limit).
			Errorf("throttle.limit must not be negative")
	}
	return nil
}

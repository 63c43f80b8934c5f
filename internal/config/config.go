// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Loading order (Koanf v2):
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables
type Config struct {
	Archive   ArchiveConfig   `koanf:"archive"`
	Sync      SyncConfig      `koanf:"sync"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Mapping   MappingConfig   `koanf:"mapping"`
	Database  DatabaseConfig  `koanf:"database"`
	Ledger    LedgerConfig    `koanf:"ledger"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Schedule  ScheduleConfig  `koanf:"schedule"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ArchiveConfig describes the remote filing archive and how politely to talk to it.
type ArchiveConfig struct {
	// FullIndexURL is the base of the quarterly index tree, e.g.
	// https://www.sec.gov/Archives/edgar/full-index
	FullIndexURL string `koanf:"full_index_url"`

	// DocumentBaseURL is prefixed to an index record's filename to fetch the document.
	DocumentBaseURL string `koanf:"document_base_url"`

	// UserAgent is sent on every request. The archive rejects anonymous agents.
	UserAgent string `koanf:"user_agent"`

	MaxAttempts       int           `koanf:"max_attempts"`
	RetryDelay        time.Duration `koanf:"retry_delay"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes"`

	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// CircuitBreakerConfig configures the breaker wrapped around each fetch attempt.
type CircuitBreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests"` // probes allowed while half-open
	Interval     time.Duration `koanf:"interval"`     // closed-state counter reset period
	Timeout      time.Duration `koanf:"timeout"`      // open-state duration
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// SyncConfig controls index synchronization.
type SyncConfig struct {
	BatchSize          int    `koanf:"batch_size"`
	SkipFutureQuarters bool   `koanf:"skip_future_quarters"`
	SkipUnchanged      bool   `koanf:"skip_unchanged"`
	Epoch              string `koanf:"epoch"` // cursor used when the store is empty, YYYY-MM-DD
}

// EpochTime parses Epoch.
func (s SyncConfig) EpochTime() (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s.Epoch)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid sync epoch %q: %w", s.Epoch, err)
	}
	return t, nil
}

// RetrievalConfig controls filing document retrieval.
type RetrievalConfig struct {
	FilingsDir string `koanf:"filings_dir"`
	Workers    int    `koanf:"workers"` // 1 = sequential
}

// MappingConfig controls identifier mapping builds.
type MappingConfig struct {
	ExportDir string `koanf:"export_dir"`
}

// Database drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects and configures the index store.
type DatabaseConfig struct {
	Driver      string `koanf:"driver"`
	Path        string `koanf:"path"`
	MaxMemory   string `koanf:"max_memory"`
	Threads     int    `koanf:"threads"` // 0 = DuckDB default
	PostgresURL string `koanf:"postgres_url"`
	MaxConns    int32  `koanf:"max_conns"`
}

// LedgerConfig configures the Badger run ledger.
type LedgerConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// PipelineConfig configures the combined process and freshness operations.
type PipelineConfig struct {
	StaleAfter time.Duration `koanf:"stale_after"`
	FormTypes  []string      `koanf:"form_types"`
}

// Scheduled jobs.
const (
	JobSync    = "sync"
	JobProcess = "process"
)

// ScheduleConfig configures the optional periodic trigger used by serve.
type ScheduleConfig struct {
	Interval time.Duration `koanf:"interval"` // 0 disables the trigger
	Job      string        `koanf:"job"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	CheckFreshness    bool          `koanf:"check_freshness"` // run EnsureFresh when serve starts
	CacheTTL          time.Duration `koanf:"cache_ttl"`       // 0 disables the read cache
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

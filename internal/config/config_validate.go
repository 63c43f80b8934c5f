// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/filingsync/internal/logging"
)

// ConfigurationError reports an invalid or missing setting. It is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateRetrieval(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateArchive() error {
	a := c.Archive
	if err := validateHTTPURL(a.FullIndexURL, "archive.full_index_url"); err != nil {
		return err
	}
	if err := validateHTTPURL(a.DocumentBaseURL, "archive.document_base_url"); err != nil {
		return err
	}
	if strings.TrimSpace(a.UserAgent) == "" {
		return invalid("archive.user_agent", "required, the archive rejects requests without a contact User-Agent")
	}
	if a.MaxAttempts < 1 {
		return invalid("archive.max_attempts", "must be at least 1, got %d", a.MaxAttempts)
	}
	if a.RetryDelay < 0 {
		return invalid("archive.retry_delay", "must not be negative, got %s", a.RetryDelay)
	}
	if a.RequestTimeout <= 0 {
		return invalid("archive.request_timeout", "must be positive, got %s", a.RequestTimeout)
	}
	if a.RequestsPerSecond < 0 {
		return invalid("archive.requests_per_second", "must not be negative, got %v", a.RequestsPerSecond)
	}
	if a.MaxBodyBytes <= 0 {
		return invalid("archive.max_body_bytes", "must be positive, got %d", a.MaxBodyBytes)
	}
	cb := a.CircuitBreaker
	if cb.Enabled && (cb.FailureRatio <= 0 || cb.FailureRatio > 1) {
		return invalid("archive.circuit_breaker.failure_ratio", "must be in (0, 1], got %v", cb.FailureRatio)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.BatchSize < 1 {
		return invalid("sync.batch_size", "must be at least 1, got %d", c.Sync.BatchSize)
	}
	if _, err := c.Sync.EpochTime(); err != nil {
		return invalid("sync.epoch", "must be a YYYY-MM-DD date, got %q", c.Sync.Epoch)
	}
	return nil
}

func (c *Config) validateRetrieval() error {
	if strings.TrimSpace(c.Retrieval.FilingsDir) == "" {
		return invalid("retrieval.filings_dir", "required")
	}
	if c.Retrieval.Workers < 1 {
		return invalid("retrieval.workers", "must be at least 1, got %d", c.Retrieval.Workers)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverDuckDB:
		if c.Database.Path == "" {
			return invalid("database.path", "required for the duckdb driver")
		}
	case DriverPostgres:
		if c.Database.PostgresURL == "" {
			return invalid("database.postgres_url", "required for the postgres driver")
		}
	default:
		return invalid("database.driver", "must be %q or %q, got %q", DriverDuckDB, DriverPostgres, c.Database.Driver)
	}
	return nil
}

func (c *Config) validateLedger() error {
	if !c.Ledger.InMemory && c.Ledger.Path == "" {
		return invalid("ledger.path", "required unless ledger.in_memory is set")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if c.Schedule.Interval < 0 {
		return invalid("schedule.interval", "must not be negative, got %s", c.Schedule.Interval)
	}
	if c.Schedule.Job != JobSync && c.Schedule.Job != JobProcess {
		return invalid("schedule.job", "must be %q or %q, got %q", JobSync, JobProcess, c.Schedule.Job)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !c.Server.RateLimitDisabled && c.Server.RateLimitRequests < 1 {
		return invalid("server.rate_limit_requests", "must be at least 1, got %d", c.Server.RateLimitRequests)
	}
	if c.Server.CacheTTL < 0 {
		return invalid("server.cache_ttl", "must not be negative, got %s", c.Server.CacheTTL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return invalid("logging.level", "unknown level %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return invalid("logging.format", "must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

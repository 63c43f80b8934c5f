// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file locations searched in order. The first found wins.
var DefaultConfigPaths = []string{
	"filingsync.yaml",
	"config.yaml",
	"/etc/filingsync/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Archive: ArchiveConfig{
			FullIndexURL:      "https://www.sec.gov/Archives/edgar/full-index",
			DocumentBaseURL:   "https://www.sec.gov/Archives",
			UserAgent:         "filingsync/1.0 (admin@example.com)",
			MaxAttempts:       3,
			RetryDelay:        5 * time.Second,
			RequestTimeout:    60 * time.Second,
			RequestsPerSecond: 10,
			Burst:             1,
			MaxBodyBytes:      256 << 20, // 256MB
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Sync: SyncConfig{
			BatchSize:          1000,
			SkipFutureQuarters: true,
			SkipUnchanged:      true,
			Epoch:              "1994-01-01",
		},
		Retrieval: RetrievalConfig{
			FilingsDir: "./filings",
			Workers:    1,
		},
		Mapping: MappingConfig{
			ExportDir: "./exports",
		},
		Database: DatabaseConfig{
			Driver:    DriverDuckDB,
			Path:      "./data/filingsync.duckdb",
			MaxMemory: "2GB",
			Threads:   0,
			MaxConns:  8,
		},
		Ledger: LedgerConfig{
			Path: "./data/ledger",
		},
		Pipeline: PipelineConfig{
			StaleAfter: 720 * time.Hour,
			FormTypes:  []string{"13F-HR"},
		},
		Schedule: ScheduleConfig{
			Interval: 0,
			Job:      JobProcess,
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8086,
			Timeout:           30 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{},
			CheckFreshness:    true,
			CacheTTL:          time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration from defaults, the first config file found, and the environment.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file path. An empty path searches
// $CONFIG_PATH and DefaultConfigPaths. An explicit path must exist.
func LoadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath == "" {
		configPath = findConfigFile()
	} else if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// ARCHIVE_USER_AGENT -> archive.user_agent
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they come from the environment.
var sliceConfigPaths = []string{
	"pipeline.form_types",
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"archive_full_index_url":      "archive.full_index_url",
	"archive_document_base_url":   "archive.document_base_url",
	"archive_user_agent":          "archive.user_agent",
	"archive_max_attempts":        "archive.max_attempts",
	"archive_retry_delay":         "archive.retry_delay",
	"archive_request_timeout":     "archive.request_timeout",
	"archive_requests_per_second": "archive.requests_per_second",
	"archive_burst":               "archive.burst",
	"archive_max_body_bytes":      "archive.max_body_bytes",
	"circuit_breaker_enabled":     "archive.circuit_breaker.enabled",
	"circuit_breaker_timeout":     "archive.circuit_breaker.timeout",

	"sync_batch_size":           "sync.batch_size",
	"sync_skip_future_quarters": "sync.skip_future_quarters",
	"sync_skip_unchanged":       "sync.skip_unchanged",
	"sync_epoch":                "sync.epoch",

	"filings_dir":       "retrieval.filings_dir",
	"retrieval_workers": "retrieval.workers",

	"mapping_export_dir": "mapping.export_dir",

	"database_driver":       "database.driver",
	"duckdb_path":           "database.path",
	"duckdb_max_memory":     "database.max_memory",
	"duckdb_threads":        "database.threads",
	"database_url":          "database.postgres_url",
	"database_max_conns":    "database.max_conns",
	"ledger_path":           "ledger.path",
	"ledger_in_memory":      "ledger.in_memory",
	"pipeline_stale_after":  "pipeline.stale_after",
	"pipeline_form_types":   "pipeline.form_types",
	"schedule_interval":     "schedule.interval",
	"schedule_job":          "schedule.job",
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",
	"cors_origins":          "server.cors_origins",
	"check_freshness":       "server.check_freshness",
	"api_cache_ttl":         "server.cache_ttl",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path, or "" to skip it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

/*
Package config loads and validates filingsync configuration.

# Configuration Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:
  - Built-in defaults (defaultConfig)
  - An optional YAML file: $CONFIG_PATH, filingsync.yaml, config.yaml, /etc/filingsync/config.yaml
  - Environment variables, mapped explicitly in envTransformFunc

The CLI loads a .env file into the process environment before Load runs, so
.env values behave exactly like exported variables.

# Sections

  - archive: index and document URLs, User-Agent, retry, rate limit, circuit breaker
  - sync: batch size, future-quarter clamping, unchanged-period skipping, epoch
  - retrieval: filings directory and worker count
  - mapping: directory holding {formType}.csv exports
  - database: duckdb (default) or postgres
  - ledger: Badger directory for run records and period digests
  - pipeline: staleness window and default form types
  - schedule: optional periodic trigger for serve
  - server: HTTP API listener, CORS and rate limiting
  - logging: zerolog level and format

# Example

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	fetcher := fetch.New(cfg.Archive)

Validation failures are returned as *ConfigurationError naming the field.
*/
package config

// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/filingsync/internal/logging"
)

type migration struct {
	version    int
	name       string
	statements []string
}

// migrations are append-only and mirror the DuckDB schema.
var migrations = []migration{
	{
		version: 1,
		name:    "create_filing_index",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS filing_index (
				id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
				subject_id BIGINT NOT NULL,
				subject_name TEXT NOT NULL,
				form_type TEXT NOT NULL,
				date_filed TEXT NOT NULL,
				filename TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				CONSTRAINT filing_index_natural_key UNIQUE (subject_id, form_type, date_filed, filename)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_filing_index_form_type ON filing_index (form_type)`,
		},
	},
	{
		version: 2,
		name:    "create_identifier_mappings",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS identifier_mappings (
				id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
				subject_id BIGINT NOT NULL,
				short_key VARCHAR(6) NOT NULL,
				long_key VARCHAR(8),
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_identifier_mappings_subject ON identifier_mappings (subject_id)`,
		},
	},
}

// runMigrations applies pending migrations under an advisory lock so that
// two processes starting together do not race.
func (s *Store) runMigrations(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	const lockKey = 0x66696c696e67 // "filing"
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, lockKey); err != nil {
		return fmt.Errorf("failed to take migration lock: %w", err)
	}
	defer func() { _, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, lockKey) }()

	if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		var exists bool
		if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check migration v%d: %w", m.version, err)
		}
		if exists {
			continue
		}
		err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration v%d (%s): %w", m.version, m.name, err)
		}
		applied++
	}

	if applied > 0 {
		logging.Info().Int("count", applied).Msg("Applied database migrations")
	}
	return nil
}

// CurrentSchemaVersion returns the highest applied migration version.
func (s *Store) CurrentSchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}

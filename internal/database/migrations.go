// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/filingsync/internal/logging"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     int
	Name        string
	Description string
	Statements  []string
	AppliedAt   time.Time
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMP NOT NULL DEFAULT current_timestamp
)`

// migrations are append-only. Never edit or remove one that has shipped.
var migrations = []Migration{
	{
		Version:     1,
		Name:        "create_filing_index",
		Description: "Quarterly master index records keyed by their natural key",
		Statements: []string{
			`CREATE SEQUENCE IF NOT EXISTS filing_index_id_seq START 1`,
			`CREATE TABLE IF NOT EXISTS filing_index (
				id BIGINT PRIMARY KEY DEFAULT nextval('filing_index_id_seq'),
				subject_id BIGINT NOT NULL,
				subject_name TEXT NOT NULL,
				form_type TEXT NOT NULL,
				date_filed TEXT NOT NULL,
				filename TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
				UNIQUE (subject_id, form_type, date_filed, filename)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_filing_index_form_type ON filing_index (form_type)`,
		},
	},
	{
		Version:     2,
		Name:        "create_identifier_mappings",
		Description: "Subject to security identifier mappings, one row per build",
		Statements: []string{
			`CREATE SEQUENCE IF NOT EXISTS identifier_mappings_id_seq START 1`,
			`CREATE TABLE IF NOT EXISTS identifier_mappings (
				id BIGINT PRIMARY KEY DEFAULT nextval('identifier_mappings_id_seq'),
				subject_id BIGINT NOT NULL,
				short_key TEXT NOT NULL,
				long_key TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
			)`,
			`CREATE INDEX IF NOT EXISTS idx_identifier_mappings_subject ON identifier_mappings (subject_id)`,
		},
	},
}

func (db *DB) getAppliedMigrations(ctx context.Context) (map[int]Migration, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT version, name, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer closeWithLog(rows, "migration rows")

	applied := make(map[int]Migration)
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.Name, &m.Description, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[m.Version] = m
	}
	return applied, rows.Err()
}

// runVersionedMigrations applies every migration not yet recorded, each in
// its own transaction together with its schema_migrations row.
func (db *DB) runVersionedMigrations() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	newMigrations := 0
	for _, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return err
		}
		newMigrations++
	}

	if newMigrations > 0 {
		logging.Info().Int("count", newMigrations).Msg("Applied database migrations")
	}
	return nil
}

func (db *DB) applyMigration(ctx context.Context, m Migration) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration v%d: %w", m.Version, err)
	}
	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, description) VALUES (?, ?, ?)`,
		m.Version, m.Name, m.Description); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration v%d: %w", m.Version, err)
	}
	return nil
}

// CurrentSchemaVersion returns the highest applied migration version.
func (db *DB) CurrentSchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var version int
	if err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

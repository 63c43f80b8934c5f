// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/filingsync/internal/metrics"
	"github.com/tomtom215/filingsync/internal/models"
)

// InsertMappings appends mappings in one transaction. An empty LongKey is
// stored as NULL.
func (db *DB) InsertMappings(ctx context.Context, mappings []models.IdentifierMapping) (int, error) {
	if len(mappings) == 0 {
		return 0, nil
	}
	start := time.Now()
	n, err := db.insertMappingsTx(ctx, mappings)
	metrics.RecordDBQuery(driverName, "insert_mappings", time.Since(start), err)
	return n, err
}

func (db *DB) insertMappingsTx(ctx context.Context, mappings []models.IdentifierMapping) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO identifier_mappings (subject_id, short_key, long_key) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer closeWithLog(stmt, "insert statement")

	for _, m := range mappings {
		longKey := sql.NullString{String: m.LongKey, Valid: m.LongKey != ""}
		if _, err := stmt.ExecContext(ctx, m.SubjectID, m.ShortKey, longKey); err != nil {
			return 0, fmt.Errorf("failed to insert mapping for subject %d: %w", m.SubjectID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit mappings: %w", err)
	}
	return len(mappings), nil
}

// MappingsForSubject returns the stored mappings of one subject in insertion order.
func (db *DB) MappingsForSubject(ctx context.Context, subjectID int64) ([]models.IdentifierMapping, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT subject_id, short_key, long_key FROM identifier_mappings WHERE subject_id = ? ORDER BY id`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer closeWithLog(rows, "mapping rows")

	var out []models.IdentifierMapping
	for rows.Next() {
		var m models.IdentifierMapping
		var longKey sql.NullString
		if err := rows.Scan(&m.SubjectID, &m.ShortKey, &longKey); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		m.LongKey = longKey.String
		out = append(out, m)
	}
	return out, rows.Err()
}

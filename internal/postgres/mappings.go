// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/filingsync/internal/metrics"
	"github.com/tomtom215/filingsync/internal/models"
)

// InsertMappings appends mappings with COPY. An empty LongKey is stored as NULL.
func (s *Store) InsertMappings(ctx context.Context, mappings []models.IdentifierMapping) (int, error) {
	if len(mappings) == 0 {
		return 0, nil
	}
	start := time.Now()

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"identifier_mappings"},
		[]string{"subject_id", "short_key", "long_key"},
		pgx.CopyFromSlice(len(mappings), func(i int) ([]any, error) {
			m := mappings[i]
			var longKey *string
			if m.LongKey != "" {
				longKey = &m.LongKey
			}
			return []any{m.SubjectID, m.ShortKey, longKey}, nil
		}),
	)
	metrics.RecordDBQuery(driverName, "insert_mappings", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("unable to copy mappings: %w", err)
	}
	return int(n), nil
}

// MappingsForSubject returns the stored mappings of one subject in insertion order.
func (s *Store) MappingsForSubject(ctx context.Context, subjectID int64) ([]models.IdentifierMapping, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT subject_id, short_key, COALESCE(long_key, '') FROM identifier_mappings WHERE subject_id = $1 ORDER BY id`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.IdentifierMapping, error) {
		var m models.IdentifierMapping
		err := row.Scan(&m.SubjectID, &m.ShortKey, &m.LongKey)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan mappings: %w", err)
	}
	return out, nil
}

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

	"github.com/tomtom215/filingsync/internal/database/query"
	"github.com/tomtom215/filingsync/internal/metrics"
	"github.com/tomtom215/filingsync/internal/models"
)

const (
	createStagingSQL = `CREATE TEMP TABLE filing_index_staging (
		ord INTEGER NOT NULL,
		subject_id BIGINT NOT NULL,
		subject_name TEXT NOT NULL,
		form_type TEXT NOT NULL,
		date_filed TEXT NOT NULL,
		filename TEXT NOT NULL
	) ON COMMIT DROP`

	insertByExclusionSQL = `INSERT INTO filing_index (subject_id, subject_name, form_type, date_filed, filename)
		SELECT s.subject_id, s.subject_name, s.form_type, s.date_filed, s.filename
		FROM filing_index_staging s
		WHERE NOT EXISTS (
			SELECT 1 FROM filing_index f
			WHERE f.subject_id = s.subject_id
			  AND f.form_type = s.form_type
			  AND f.date_filed = s.date_filed
			  AND f.filename = s.filename
		)
		ORDER BY s.ord
		ON CONFLICT ON CONSTRAINT filing_index_natural_key DO NOTHING`

	filingColumns = `subject_id, subject_name, form_type, date_filed, filename`
)

var stagingColumns = []string{"ord", "subject_id", "subject_name", "form_type", "date_filed", "filename"}

// InsertFilings stores records and returns how many were new.
func (s *Store) InsertFilings(ctx context.Context, records []models.FilingIndexRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	start := time.Now()

	var inserted int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createStagingSQL); err != nil {
			return fmt.Errorf("failed to create staging table: %w", err)
		}

		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"filing_index_staging"},
			stagingColumns,
			pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
				r := records[i]
				return []any{int32(i), r.SubjectID, r.SubjectName, r.FormType, r.DateFiled, r.Filename}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("unable to copy filings to staging table: %w", err)
		}

		tag, err := tx.Exec(ctx, insertByExclusionSQL)
		if err != nil {
			return fmt.Errorf("failed to insert from staging table: %w", err)
		}
		inserted = tag.RowsAffected()
		return nil
	})

	metrics.RecordDBQuery(driverName, "insert_filings", time.Since(start), err)
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// MaxDateFiled returns the latest date_filed that is a real YYYY-MM-DD date.
// ISO dates sort lexically, so the text column is walked downwards and
// values such as 2024-13-40 are skipped, matching TRY_CAST on DuckDB.
func (s *Store) MaxDateFiled(ctx context.Context) (time.Time, bool, error) {
	start := time.Now()

	var (
		below  *string
		latest time.Time
		found  bool
		err    error
	)
	for !found {
		var candidate *string
		err = s.pool.QueryRow(ctx, `SELECT MAX(date_filed) FROM filing_index
			WHERE date_filed ~ '^[0-9]{4}-[0-9]{2}-[0-9]{2}$' AND ($1::text IS NULL OR date_filed < $1)`, below).Scan(&candidate)
		if err != nil || candidate == nil {
			break
		}
		if t, perr := time.Parse(time.DateOnly, *candidate); perr == nil {
			latest, found = t, true
		} else {
			below = candidate
		}
	}
	metrics.RecordDBQuery(driverName, "max_date_filed", time.Since(start), err)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read latest filing date: %w", err)
	}
	return latest, found, nil
}

// FindByFormType returns every record of formType in insertion order.
func (s *Store) FindByFormType(ctx context.Context, formType string) ([]models.FilingIndexRecord, error) {
	return s.QueryFilings(ctx, models.FilingFilter{FormTypes: []string{formType}})
}

// QueryFilings lists records matching f in insertion order.
func (s *Store) QueryFilings(ctx context.Context, f models.FilingFilter) ([]models.FilingIndexRecord, error) {
	start := time.Now()

	wb := query.FilingWhere(query.Dollar, f)
	where, _ := wb.BuildWithPrefix()
	sqlText := "SELECT " + filingColumns + " FROM filing_index " + where + " ORDER BY id" + wb.Paginate(f.Limit, f.Offset)

	rows, err := s.pool.Query(ctx, sqlText, wb.Args()...)
	if err != nil {
		metrics.RecordDBQuery(driverName, "query_filings", time.Since(start), err)
		return nil, fmt.Errorf("failed to query filings: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.FilingIndexRecord, error) {
		var r models.FilingIndexRecord
		err := row.Scan(&r.SubjectID, &r.SubjectName, &r.FormType, &r.DateFiled, &r.Filename)
		return r, err
	})
	metrics.RecordDBQuery(driverName, "query_filings", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to scan filings: %w", err)
	}
	return out, nil
}

// DistinctFormTypes returns every stored form type, sorted.
func (s *Store) DistinctFormTypes(ctx context.Context) ([]string, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx, `SELECT DISTINCT form_type FROM filing_index ORDER BY form_type`)
	if err != nil {
		metrics.RecordDBQuery(driverName, "distinct_form_types", time.Since(start), err)
		return nil, fmt.Errorf("failed to list form types: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	metrics.RecordDBQuery(driverName, "distinct_form_types", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to scan form types: %w", err)
	}
	return out, nil
}

// CountFilings returns the number of stored records.
func (s *Store) CountFilings(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM filing_index`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count filings: %w", err)
	}
	return n, nil
}

// CountFilingsBetween counts records whose date_filed lies in [from, to].
func (s *Store) CountFilingsBetween(ctx context.Context, from, to string) (int64, error) {
	start := time.Now()

	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM filing_index WHERE date_filed >= $1 AND date_filed <= $2`, from, to).Scan(&n)
	metrics.RecordDBQuery(driverName, "count_filings_between", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to count filings between %s and %s: %w", from, to, err)
	}
	return n, nil
}

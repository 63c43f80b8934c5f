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

	"github.com/tomtom215/filingsync/internal/database/query"
	"github.com/tomtom215/filingsync/internal/metrics"
	"github.com/tomtom215/filingsync/internal/models"
)

const (
	insertFilingSQL = `INSERT INTO filing_index (subject_id, subject_name, form_type, date_filed, filename)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`

	filingColumns = `subject_id, subject_name, form_type, date_filed, filename`

	maxInsertAttempts = 3
)

// InsertFilings stores records and returns how many were new. Records whose
// natural key is already present are skipped. The batch commits atomically;
// a transaction conflict with a concurrent writer retries the whole batch.
func (db *DB) InsertFilings(ctx context.Context, records []models.FilingIndexRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	start := time.Now()

	var inserted int
	var err error
	for attempt := 1; ; attempt++ {
		inserted, err = db.insertFilingsTx(ctx, records)
		if err == nil || !isTransactionConflict(err) || attempt == maxInsertAttempts {
			break
		}
		if werr := wait(ctx, time.Duration(attempt)*50*time.Millisecond); werr != nil {
			err = werr
			break
		}
	}

	metrics.RecordDBQuery(driverName, "insert_filings", time.Since(start), err)
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (db *DB) insertFilingsTx(ctx context.Context, records []models.FilingIndexRecord) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertFilingSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer closeWithLog(stmt, "insert statement")

	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx, r.SubjectID, r.SubjectName, r.FormType, r.DateFiled, r.Filename)
		if err != nil {
			return 0, fmt.Errorf("failed to insert filing %s: %w", r.Key(), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit filings: %w", err)
	}
	return inserted, nil
}

// MaxDateFiled returns the latest parseable date_filed. ok is false when the
// table holds no parseable date.
func (db *DB) MaxDateFiled(ctx context.Context) (time.Time, bool, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	start := time.Now()

	var latest sql.NullTime
	err := db.conn.QueryRowContext(ctx, `SELECT MAX(TRY_CAST(date_filed AS DATE)) FROM filing_index`).Scan(&latest)
	metrics.RecordDBQuery(driverName, "max_date_filed", time.Since(start), err)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read latest filing date: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return latest.Time.UTC(), true, nil
}

// FindByFormType returns every record of formType in insertion order.
func (db *DB) FindByFormType(ctx context.Context, formType string) ([]models.FilingIndexRecord, error) {
	return db.QueryFilings(ctx, models.FilingFilter{FormTypes: []string{formType}})
}

// QueryFilings lists records matching f in insertion order.
func (db *DB) QueryFilings(ctx context.Context, f models.FilingFilter) ([]models.FilingIndexRecord, error) {
	start := time.Now()

	wb := query.FilingWhere(query.Question, f)
	where, _ := wb.BuildWithPrefix()
	sqlText := "SELECT " + filingColumns + " FROM filing_index " + where + " ORDER BY id" + wb.Paginate(f.Limit, f.Offset)

	rows, err := db.conn.QueryContext(ctx, sqlText, wb.Args()...)
	if err != nil {
		metrics.RecordDBQuery(driverName, "query_filings", time.Since(start), err)
		return nil, fmt.Errorf("failed to query filings: %w", err)
	}
	defer closeWithLog(rows, "filing rows")

	var out []models.FilingIndexRecord
	for rows.Next() {
		var r models.FilingIndexRecord
		if err := rows.Scan(&r.SubjectID, &r.SubjectName, &r.FormType, &r.DateFiled, &r.Filename); err != nil {
			return nil, fmt.Errorf("failed to scan filing: %w", err)
		}
		out = append(out, r)
	}
	err = rows.Err()
	metrics.RecordDBQuery(driverName, "query_filings", time.Since(start), err)
	return out, err
}

// DistinctFormTypes returns every stored form type, sorted.
func (db *DB) DistinctFormTypes(ctx context.Context) ([]string, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT form_type FROM filing_index ORDER BY form_type`)
	if err != nil {
		metrics.RecordDBQuery(driverName, "distinct_form_types", time.Since(start), err)
		return nil, fmt.Errorf("failed to list form types: %w", err)
	}
	defer closeWithLog(rows, "form type rows")

	var out []string
	for rows.Next() {
		var ft string
		if err := rows.Scan(&ft); err != nil {
			return nil, fmt.Errorf("failed to scan form type: %w", err)
		}
		out = append(out, ft)
	}
	err = rows.Err()
	metrics.RecordDBQuery(driverName, "distinct_form_types", time.Since(start), err)
	return out, err
}

// CountFilings returns the number of stored records.
func (db *DB) CountFilings(ctx context.Context) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM filing_index`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count filings: %w", err)
	}
	return n, nil
}

// CountFilingsBetween counts records whose date_filed lies in [from, to].
func (db *DB) CountFilingsBetween(ctx context.Context, from, to string) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	start := time.Now()

	var n int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM filing_index WHERE date_filed >= ? AND date_filed <= ?`, from, to).Scan(&n)
	metrics.RecordDBQuery(driverName, "count_filings_between", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to count filings between %s and %s: %w", from, to, err)
	}
	return n, nil
}

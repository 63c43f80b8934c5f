// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package models

import (
	"fmt"
	"time"
)

// RetrievalCounts tallies one retrieval batch.
type RetrievalCounts struct {
	FormType string `json:"form_type"`
	New      int    `json:"new"`
	Existing int    `json:"existing"`
	Failed   int    `json:"failed"`
}

// Add returns the element-wise sum. FormType is kept from c unless it is empty.
func (c RetrievalCounts) Add(other RetrievalCounts) RetrievalCounts {
	out := RetrievalCounts{
		FormType: c.FormType,
		New:      c.New + other.New,
		Existing: c.Existing + other.Existing,
		Failed:   c.Failed + other.Failed,
	}
	if out.FormType == "" {
		out.FormType = other.FormType
	}
	return out
}

// Total is the number of records the batch looked at.
func (c RetrievalCounts) Total() int {
	return c.New + c.Existing + c.Failed
}

// String matches the operator-facing summary line.
func (c RetrievalCounts) String() string {
	return fmt.Sprintf("Downloaded %d new filings and found %d existing filings for %s (%d failed).",
		c.New, c.Existing, c.FormType, c.Failed)
}

// PeriodResult is the outcome of syncing one period.
type PeriodResult struct {
	Period    Period `json:"period"`
	Records   int    `json:"records"`
	Inserted  int    `json:"inserted"`
	RowErrors int    `json:"row_errors"`
	Unchanged bool   `json:"unchanged"`
	Digest    string `json:"digest,omitempty"`
}

// PeriodFailure records a period that could not be synced.
type PeriodFailure struct {
	Period Period `json:"period"`
	Error  string `json:"error"`
}

// SyncSummary describes a SyncAll run. It is returned even when the run is cut short.
type SyncSummary struct {
	Cursor           string          `json:"cursor"`
	PlannedPeriods   int             `json:"planned_periods"`
	SyncedPeriods    int             `json:"synced_periods"`
	UnchangedPeriods int             `json:"unchanged_periods"`
	FailedPeriods    []PeriodFailure `json:"failed_periods,omitempty"`
	RecordsParsed    int             `json:"records_parsed"`
	RecordsInserted  int             `json:"records_inserted"`
	RowErrors        int             `json:"row_errors"`
	StartedAt        time.Time       `json:"started_at"`
	Duration         time.Duration   `json:"duration"`
}

// AddPeriod folds a successful period result into the summary.
func (s *SyncSummary) AddPeriod(r *PeriodResult) {
	if r.Unchanged {
		s.UnchangedPeriods++
		return
	}
	s.SyncedPeriods++
	s.RecordsParsed += r.Records
	s.RecordsInserted += r.Inserted
	s.RowErrors += r.RowErrors
}

// MappingSummary describes one mapping build.
type MappingSummary struct {
	Source     string `json:"source"`
	RowsRead   int    `json:"rows_read"`
	Accepted   int    `json:"accepted"`
	Filtered   int    `json:"filtered"`
	Duplicates int    `json:"duplicates"`
	Inserted   int    `json:"inserted"`
}

// ProcessSummary is the combined result of ProcessFilings.
type ProcessSummary struct {
	Sync      *SyncSummary      `json:"sync,omitempty"`
	Retrieval []RetrievalCounts `json:"retrieval"`
	Mappings  []MappingSummary  `json:"mappings"`
}

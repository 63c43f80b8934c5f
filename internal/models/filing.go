// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package models

import (
	"fmt"
	"time"
)

// FilingIndexRecord is one row of a quarterly master index.
//
// (SubjectID, FormType, DateFiled, Filename) identifies a distinct filing.
// DateFiled is kept as the archive wrote it (normally YYYY-MM-DD) and is not
// validated at parse time.
type FilingIndexRecord struct {
	SubjectID   int64  `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	FormType    string `json:"form_type"`
	DateFiled   string `json:"date_filed"`
	Filename    string `json:"filename"`
}

// Key returns the natural key used for duplicate suppression.
func (r FilingIndexRecord) Key() string {
	return fmt.Sprintf("%d|%s|%s|%s", r.SubjectID, r.FormType, r.DateFiled, r.Filename)
}

// Period is one (year, quarter) of the archive index.
type Period struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
}

// String renders the period the way the archive lays out directories, e.g. "2024/QTR1".
func (p Period) String() string {
	return fmt.Sprintf("%d/QTR%d", p.Year, p.Quarter)
}

// Before reports whether p is chronologically earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Quarter < other.Quarter
}

// Start returns midnight UTC on the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month((p.Quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
}

// DateRange returns the first and last day of the period as inclusive
// YYYY-MM-DD bounds, the form FilingFilter and the stores compare DateFiled in.
func (p Period) DateRange() (from, to string) {
	start := p.Start()
	return start.Format(time.DateOnly), start.AddDate(0, 3, -1).Format(time.DateOnly)
}

// IdentifierMapping links a subject id to the short and long forms of a
// security identifier. LongKey is empty when the source candidate only had
// six characters.
type IdentifierMapping struct {
	SubjectID int64  `json:"subject_id"`
	ShortKey  string `json:"short_key"`
	LongKey   string `json:"long_key"`
}

// RunRecord is a ledger entry for the last completion of a named process.
type RunRecord struct {
	Process     string    `json:"process"`
	CompletedAt time.Time `json:"completed_at"`
	Detail      string    `json:"detail,omitempty"`
}

// Ledger process names.
const (
	ProcessFullIndex = "full_index"
	ProcessFilings   = "process_filings"
)

// FilingFilter narrows a filing listing. Zero fields do not filter.
// From and To are inclusive YYYY-MM-DD bounds on DateFiled.
type FilingFilter struct {
	FormTypes []string `json:"form_types,omitempty"`
	SubjectID int64    `json:"subject_id,omitempty"`
	From      string   `json:"from,omitempty"`
	To        string   `json:"to,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Offset    int      `json:"offset,omitempty"`
}

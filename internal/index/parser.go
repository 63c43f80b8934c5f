// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package index

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/tomtom215/filingsync/internal/models"
)

const (
	headerDelimiter = "-----"
	dataRowMarker   = ".txt"
	fieldSeparator  = "|"
	fieldCount      = 5
)

// ErrMalformedRow is wrapped by every *RowError.
var ErrMalformedRow = errors.New("malformed index row")

// RowError describes a data row that could not be turned into a record.
type RowError struct {
	Line   int // 1-based line number in the file
	Reason string
	Raw    string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("index line %d: %s", e.Line, e.Reason)
}

func (e *RowError) Unwrap() error {
	return ErrMalformedRow
}

// Parse lazily yields one record per data row of a master index. A malformed
// row yields a zero record and a *RowError; iteration continues afterwards.
// The sequence holds no state between iterations, so ranging over it twice
// produces the same output.
func Parse(raw []byte) iter.Seq2[models.FilingIndexRecord, error] {
	return func(yield func(models.FilingIndexRecord, error) bool) {
		inData := false
		lineNo := 0
		for line := range bytes.Lines(raw) {
			lineNo++
			text := strings.TrimRight(string(line), "\r\n")
			if !inData {
				inData = strings.Contains(text, headerDelimiter)
				continue
			}
			if !strings.Contains(text, dataRowMarker) {
				continue
			}
			rec, err := parseRow(lineNo, text)
			if !yield(rec, err) {
				return
			}
		}
	}
}

// ParseAll drains Parse, separating good records from row errors.
func ParseAll(raw []byte) ([]models.FilingIndexRecord, []*RowError) {
	var (
		records []models.FilingIndexRecord
		rowErrs []*RowError
	)
	for rec, err := range Parse(raw) {
		if err != nil {
			var rowErr *RowError
			if errors.As(err, &rowErr) {
				rowErrs = append(rowErrs, rowErr)
			}
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs
}

func parseRow(lineNo int, text string) (models.FilingIndexRecord, error) {
	fields := strings.Split(strings.TrimSpace(text), fieldSeparator)
	if len(fields) != fieldCount {
		return models.FilingIndexRecord{}, &RowError{
			Line:   lineNo,
			Reason: fmt.Sprintf("expected %d fields, got %d", fieldCount, len(fields)),
			Raw:    text,
		}
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	subjectID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return models.FilingIndexRecord{}, &RowError{
			Line:   lineNo,
			Reason: fmt.Sprintf("non-numeric subject id %q", fields[0]),
			Raw:    text,
		}
	}

	return models.FilingIndexRecord{
		SubjectID:   subjectID,
		SubjectName: fields[1],
		FormType:    fields[2],
		DateFiled:   fields[3],
		Filename:    fields[4],
	}, nil
}

// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ReadExport reads comma-separated rows and drops the header line. Rows may
// have any number of fields.
func ReadExport(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	header := true
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read export: %w", err)
		}
		if header {
			header = false
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

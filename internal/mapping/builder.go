// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package mapping

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tomtom215/filingsync/internal/models"
)

const (
	subjectColumn   = 1
	candidateColumn = 2

	shortKeyLen = 6
	longKeyLen  = 8
)

// Placeholder prefixes found in exports instead of real identifiers.
var placeholderPrefixes = []string{"000000", "0001pt"}

// BuildStats counts what Build did with its input.
type BuildStats struct {
	RowsRead   int
	Accepted   int
	Filtered   int
	Duplicates int
}

// Build filters and transforms export rows into mappings. Identical
// (SubjectID, ShortKey, LongKey) tuples are kept once, in first-seen order.
func Build(rows [][]string) []models.IdentifierMapping {
	out, _ := BuildWithStats(rows)
	return out
}

// BuildWithStats is Build plus counts of filtered and duplicate rows.
func BuildWithStats(rows [][]string) ([]models.IdentifierMapping, BuildStats) {
	stats := BuildStats{RowsRead: len(rows)}
	seen := make(map[models.IdentifierMapping]struct{}, len(rows))
	out := make([]models.IdentifierMapping, 0, len(rows))

	for _, row := range rows {
		m, ok := transform(row)
		if !ok {
			stats.Filtered++
			continue
		}
		if _, dup := seen[m]; dup {
			stats.Duplicates++
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	stats.Accepted = len(out)
	return out, stats
}

func transform(row []string) (models.IdentifierMapping, bool) {
	if len(row) <= candidateColumn {
		return models.IdentifierMapping{}, false
	}
	candidate := strings.TrimSpace(row[candidateColumn])
	if !validCandidate(candidate) {
		return models.IdentifierMapping{}, false
	}
	subjectID, err := strconv.ParseInt(strings.TrimSpace(row[subjectColumn]), 10, 64)
	if err != nil {
		return models.IdentifierMapping{}, false
	}

	m := models.IdentifierMapping{
		SubjectID: subjectID,
		ShortKey:  candidate[:shortKeyLen],
	}
	if len(candidate) >= longKeyLen {
		m.LongKey = candidate[:longKeyLen]
	}
	return m, true
}

// validCandidate accepts ASCII candidates of 6, 8 or 9 characters that are
// not placeholders. Keys are cut by byte offset, so multibyte text is refused.
func validCandidate(c string) bool {
	switch len(c) {
	case 6, 8, 9:
	default:
		return false
	}
	for i := 0; i < len(c); i++ {
		if c[i] >= utf8.RuneSelf {
			return false
		}
	}
	for _, p := range placeholderPrefixes {
		if strings.HasPrefix(c, p) {
			return false
		}
	}
	return true
}

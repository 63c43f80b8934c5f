// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package query

import (
	"strconv"
	"strings"

	"github.com/tomtom215/filingsync/internal/models"
)

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Question is the DuckDB style.
func Question(int) string { return "?" }

// Dollar is the PostgreSQL style.
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
type WhereBuilder struct {
	ph      Placeholder
	clauses []string
	args    []any
}

// NewWhereBuilder creates a builder using the given placeholder style.
func NewWhereBuilder(ph Placeholder) *WhereBuilder {
	if ph == nil {
		ph = Question
	}
	return &WhereBuilder{ph: ph}
}

// next reserves a placeholder for arg.
func (wb *WhereBuilder) next(arg any) string {
	wb.args = append(wb.args, arg)
	return wb.ph(len(wb.args))
}

// AddEqual adds "column = ?".
func (wb *WhereBuilder) AddEqual(column string, value any) *WhereBuilder {
	wb.clauses = append(wb.clauses, column+" = "+wb.next(value))
	return wb
}

// AddRange adds inclusive bounds on column. Empty bounds are skipped.
func (wb *WhereBuilder) AddRange(column, from, to string) *WhereBuilder {
	if from != "" {
		wb.clauses = append(wb.clauses, column+" >= "+wb.next(from))
	}
	if to != "" {
		wb.clauses = append(wb.clauses, column+" <= "+wb.next(to))
	}
	return wb
}

// AddIn adds "column IN (...)". An empty list is skipped.
func (wb *WhereBuilder) AddIn(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = wb.next(v)
	}
	wb.clauses = append(wb.clauses, column+" IN ("+strings.Join(placeholders, ", ")+")")
	return wb
}

// Build joins the clauses with AND. It returns ("1=1", nil) when nothing was added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the clause with a leading "WHERE ".
func (wb *WhereBuilder) BuildWithPrefix() (string, []any) {
	clause, args := wb.Build()
	return "WHERE " + clause, args
}

// Count returns the number of clauses added.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty reports whether no clause has been added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}

// Paginate appends LIMIT/OFFSET placeholders for a non-zero limit and
// returns the suffix with the extended argument list.
func (wb *WhereBuilder) Paginate(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	suffix := " LIMIT " + wb.next(limit)
	if offset > 0 {
		suffix += " OFFSET " + wb.next(offset)
	}
	return suffix
}

// Args returns the arguments collected so far, including pagination.
func (wb *WhereBuilder) Args() []any {
	return wb.args
}

// FilingWhere applies f to a new builder over the filing_index columns.
func FilingWhere(ph Placeholder, f models.FilingFilter) *WhereBuilder {
	wb := NewWhereBuilder(ph)
	wb.AddIn("form_type", f.FormTypes)
	if f.SubjectID != 0 {
		wb.AddEqual("subject_id", f.SubjectID)
	}
	wb.AddRange("date_filed", f.From, f.To)
	return wb
}

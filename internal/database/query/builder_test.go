// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package query

import (
	"reflect"
	"testing"

	"github.com/tomtom215/filingsync/internal/models"
)

func TestWhereBuilder_Empty(t *testing.T) {
	t.Parallel()

	wb := NewWhereBuilder(nil)
	if !wb.IsEmpty() || wb.Count() != 0 {
		t.Error("expected new builder to be empty")
	}
	clause, args := wb.Build()
	if clause != "1=1" || len(args) != 0 {
		t.Errorf("Build() = %q, %v", clause, args)
	}
	if prefixed, _ := wb.BuildWithPrefix(); prefixed != "WHERE 1=1" {
		t.Errorf("BuildWithPrefix() = %q", prefixed)
	}
}

func TestFilingWhere(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ph         Placeholder
		filter     models.FilingFilter
		wantClause string
		wantArgs   []any
	}{
		{
			name:       "no filter",
			ph:         Question,
			wantClause: "1=1",
		},
		{
			name:       "form types",
			ph:         Question,
			filter:     models.FilingFilter{FormTypes: []string{"10-K", "10-K/A"}},
			wantClause: "form_type IN (?, ?)",
			wantArgs:   []any{"10-K", "10-K/A"},
		},
		{
			name:       "all filters dollar style",
			ph:         Dollar,
			filter:     models.FilingFilter{FormTypes: []string{"13F-HR"}, SubjectID: 1067983, From: "2024-01-01", To: "2024-03-31"},
			wantClause: "form_type IN ($1) AND subject_id = $2 AND date_filed >= $3 AND date_filed <= $4",
			wantArgs:   []any{"13F-HR", int64(1067983), "2024-01-01", "2024-03-31"},
		},
		{
			name:       "open ended range",
			ph:         Dollar,
			filter:     models.FilingFilter{From: "2023-07-01"},
			wantClause: "date_filed >= $1",
			wantArgs:   []any{"2023-07-01"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clause, args := FilingWhere(tt.ph, tt.filter).Build()
			if clause != tt.wantClause {
				t.Errorf("clause = %q, want %q", clause, tt.wantClause)
			}
			if len(args) != len(tt.wantArgs) || (len(args) > 0 && !reflect.DeepEqual(args, tt.wantArgs)) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		limit, offset int
		want          string
		wantArgs      int
	}{
		{"no limit", 0, 10, "", 1},
		{"limit only", 50, 0, " LIMIT $2", 2},
		{"limit and offset", 50, 100, " LIMIT $2 OFFSET $3", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wb := NewWhereBuilder(Dollar).AddEqual("subject_id", int64(7))
			if got := wb.Paginate(tt.limit, tt.offset); got != tt.want {
				t.Errorf("Paginate() = %q, want %q", got, tt.want)
			}
			if len(wb.Args()) != tt.wantArgs {
				t.Errorf("Args() = %v", wb.Args())
			}
		})
	}
}

// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package index

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/filingsync/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestQuarterOf(t *testing.T) {
	t.Parallel()

	want := map[time.Month]int{
		time.January: 1, time.March: 1, time.April: 2, time.June: 2,
		time.July: 3, time.September: 3, time.October: 4, time.December: 4,
	}
	for m, q := range want {
		if got := QuarterOf(m); got != q {
			t.Errorf("QuarterOf(%v) = %d, want %d", m, got, q)
		}
	}
}

func TestPlanQuarters(t *testing.T) {
	t.Parallel()

	plan, err := PlanQuarters(date(2023, time.November, 15), 2024)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.Period{{2023, 4}, {2024, 1}, {2024, 2}, {2024, 3}, {2024, 4}}
	if !reflect.DeepEqual(plan, want) {
		t.Errorf("plan = %v, want %v", plan, want)
	}
}

func TestPlanQuartersFromEpoch(t *testing.T) {
	t.Parallel()

	plan, err := PlanQuarters(date(1994, time.January, 1), 2024)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != (2024-1994+1)*4 {
		t.Fatalf("len(plan) = %d", len(plan))
	}
	if plan[0] != (models.Period{Year: 1994, Quarter: 1}) {
		t.Errorf("first = %v", plan[0])
	}
	for i := 1; i < len(plan); i++ {
		if !plan[i-1].Before(plan[i]) {
			t.Fatalf("plan not strictly chronological at %d: %v then %v", i, plan[i-1], plan[i])
		}
	}
}

func TestPlanQuartersEdges(t *testing.T) {
	t.Parallel()

	plan, err := PlanQuarters(date(2025, time.February, 1), 2024)
	if err != nil || len(plan) != 0 {
		t.Errorf("future latest date: plan=%v err=%v, want empty", plan, err)
	}

	if _, err := PlanQuarters(date(2024, time.January, 1), -1); !errors.Is(err, ErrInvalidYear) {
		t.Errorf("negative current year: err = %v, want ErrInvalidYear", err)
	}
	if _, err := PlanQuarters(date(-5, time.January, 1), 2024); !errors.Is(err, ErrInvalidYear) {
		t.Errorf("negative latest year: err = %v, want ErrInvalidYear", err)
	}
}

func TestClampToNow(t *testing.T) {
	t.Parallel()

	plan, _ := PlanQuarters(date(2024, time.January, 1), 2024)
	got := ClampToNow(plan, date(2024, time.May, 20))
	want := []models.Period{{2024, 1}, {2024, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ClampToNow = %v, want %v", got, want)
	}
	if len(plan) != 4 {
		t.Error("ClampToNow must not modify its input")
	}
}

func TestBuildIndexURL(t *testing.T) {
	t.Parallel()

	for q := 1; q <= 4; q++ {
		got, err := BuildIndexURL("https://www.sec.gov/Archives/edgar/full-index", 2024, q)
		if err != nil {
			t.Fatal(err)
		}
		want := "https://www.sec.gov/Archives/edgar/full-index/2024/QTR" + string(rune('0'+q)) + "/master.idx"
		if got != want {
			t.Errorf("BuildIndexURL(q=%d) = %q, want %q", q, got, want)
		}
	}

	got, _ := BuildIndexURL("http://archive.test/full-index/", 1994, 1)
	if got != "http://archive.test/full-index/1994/QTR1/master.idx" {
		t.Errorf("trailing slash not tolerated: %q", got)
	}

	for _, q := range []int{0, 5, -1} {
		if _, err := BuildIndexURL("http://archive.test", 2024, q); !errors.Is(err, ErrInvalidQuarter) {
			t.Errorf("quarter %d: err = %v, want ErrInvalidQuarter", q, err)
		}
	}
}

func TestParseDateFiled(t *testing.T) {
	t.Parallel()

	got, err := ParseDateFiled(" 2024-02-14 ")
	if err != nil || !got.Equal(date(2024, time.February, 14)) {
		t.Errorf("ParseDateFiled = %v, %v", got, err)
	}
	if _, err := ParseDateFiled("14/02/2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

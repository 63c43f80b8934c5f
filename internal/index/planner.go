// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package index

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/filingsync/internal/models"
)

var (
	// ErrInvalidYear is returned for a negative year.
	ErrInvalidYear = errors.New("invalid year")

	// ErrInvalidQuarter is returned for a quarter outside 1-4.
	ErrInvalidQuarter = errors.New("quarter must be between 1 and 4")
)

// QuarterOf returns the quarter (1-4) containing month.
func QuarterOf(month time.Month) int {
	return (int(month)-1)/3 + 1
}

// PlanQuarters lists every period from the quarter containing latest through
// Q4 of currentYear, oldest first. A latest date after currentYear yields an
// empty plan.
//
//	PlanQuarters(2023-11-15, 2024) => 2023/QTR4, 2024/QTR1 ... 2024/QTR4
func PlanQuarters(latest time.Time, currentYear int) ([]models.Period, error) {
	if currentYear < 0 {
		return nil, fmt.Errorf("%w: current year %d", ErrInvalidYear, currentYear)
	}
	if latest.Year() < 0 {
		return nil, fmt.Errorf("%w: latest date year %d", ErrInvalidYear, latest.Year())
	}

	startYear := latest.Year()
	if startYear > currentYear {
		return []models.Period{}, nil
	}
	startQuarter := QuarterOf(latest.Month())

	plan := make([]models.Period, 0, (currentYear-startYear+1)*4)
	for year := startYear; year <= currentYear; year++ {
		first := 1
		if year == startYear {
			first = startQuarter
		}
		for q := first; q <= 4; q++ {
			plan = append(plan, models.Period{Year: year, Quarter: q})
		}
	}
	return plan, nil
}

// ClampToNow drops periods that start after now.
func ClampToNow(plan []models.Period, now time.Time) []models.Period {
	current := models.Period{Year: now.Year(), Quarter: QuarterOf(now.Month())}
	out := plan[:0:0]
	for _, p := range plan {
		if current.Before(p) {
			break
		}
		out = append(out, p)
	}
	return out
}

// BuildIndexURL renders the master index URL for a period. One trailing slash on base is tolerated.
func BuildIndexURL(base string, year, quarter int) (string, error) {
	if year < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	if quarter < 1 || quarter > 4 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidQuarter, quarter)
	}
	return fmt.Sprintf("%s/%d/QTR%d/master.idx", strings.TrimSuffix(base, "/"), year, quarter), nil
}

// ParseDateFiled parses a record's DateFiled.
func ParseDateFiled(dateFiled string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(dateFiled))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date filed %q: %w", dateFiled, err)
	}
	return t, nil
}

// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

/*
Package index understands the archive's quarterly master index.

It has three pure pieces:

  - Parse turns master.idx bytes into FilingIndexRecords
  - PlanQuarters enumerates the periods a sync must visit
  - BuildIndexURL renders {base}/{year}/QTR{q}/master.idx

# File Format

A master index has a free-form header, a line of dashes, then one
pipe-delimited row per filing:

	Description:           Master Index of EDGAR Dissemination Feed
	...
	CIK|Company Name|Form Type|Date Filed|Filename
	--------------------------------------------------------------------------------
	1000045|NICHOLAS FINANCIAL INC|10-Q|2024-02-14|edgar/data/1000045/0000950170-24-014566.txt

Only lines containing ".txt" after the dash line are data rows. A malformed
row is reported as a *RowError and parsing carries on with the next line.
*/
package index

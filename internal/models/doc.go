// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

/*
Package models defines the data structures shared by filingsync packages.

Domain records:
  - FilingIndexRecord: one row of a quarterly master index
  - Period: a (year, quarter) of the archive
  - IdentifierMapping: subject id to short/long security identifier
  - RunRecord: last completion of a named process, kept in the ledger

Run summaries:
  - PeriodResult, SyncSummary: index synchronization
  - RetrievalCounts: filing retrieval (new / existing / failed)
  - MappingSummary: identifier mapping builds
  - ProcessSummary: the combined process operation

API types:
  - APIResponse, Metadata, APIError: the HTTP envelope
  - Job: background operations started over HTTP

Models carry JSON tags for the API and the ledger. They hold no behaviour
beyond small value helpers.
*/
package models

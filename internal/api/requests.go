// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package api

import "github.com/tomtom215/filingsync/internal/models"

// PeriodRequest holds the path parameters of POST /api/v1/sync/{year}/{quarter}.
type PeriodRequest struct {
	Year    int `json:"year" validate:"gte=1993,lte=2100"`
	Quarter int `json:"quarter" validate:"gte=1,lte=4"`
}

// RetrievalRequest selects either one exact form type or every stored form
// type containing a substring.
type RetrievalRequest struct {
	FormType string `json:"form_type" validate:"required_without=Contains,excluded_with=Contains,formtype"`
	Contains string `json:"contains" validate:"omitempty,formtype"`
}

// MappingRequest names the form type whose export is read.
type MappingRequest struct {
	FormType string `json:"form_type" validate:"required,formtype"`
}

// ProcessRequest overrides the configured pipeline form types.
type ProcessRequest struct {
	FormTypes []string `json:"form_types" validate:"omitempty,max=20,dive,required,formtype"`
}

// FilingsRequest is the query of GET /api/v1/filings.
type FilingsRequest struct {
	FormTypes []string `json:"form_type" validate:"omitempty,max=20,dive,required,formtype"`
	SubjectID int64    `json:"subject_id" validate:"gte=0"`
	From      string   `json:"from" validate:"omitempty,isodate"`
	To        string   `json:"to" validate:"omitempty,isodate"`
	Limit     int      `json:"limit" validate:"gte=1,lte=1000"`
	Offset    int      `json:"offset" validate:"gte=0,lte=1000000"`
}

// Filter converts the request to a store filter.
func (r FilingsRequest) Filter() models.FilingFilter {
	return models.FilingFilter{
		FormTypes: r.FormTypes,
		SubjectID: r.SubjectID,
		From:      r.From,
		To:        r.To,
		Limit:     r.Limit,
		Offset:    r.Offset,
	}
}

// FilingsPage is the data of GET /api/v1/filings.
type FilingsPage struct {
	Filings []models.FilingIndexRecord `json:"filings"`
	Count   int                        `json:"count"`
	Limit   int                        `json:"limit"`
	Offset  int                        `json:"offset"`
	HasMore bool                       `json:"has_more"`
}

// RetrievalResult is the job result of POST /api/v1/retrievals.
type RetrievalResult struct {
	Total   models.RetrievalCounts   `json:"total"`
	PerType []models.RetrievalCounts `json:"per_type,omitempty"`
	Message string                   `json:"message"`
}

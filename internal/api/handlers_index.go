// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/filingsync/internal/cache"
	"github.com/tomtom215/filingsync/internal/models"
)

const defaultFilingsLimit = 100

// FormTypes lists the distinct form types in the index store.
func (h *Handler) FormTypes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	types, err := h.cached("form-types", func() (interface{}, error) {
		types, err := h.deps.Store.DistinctFormTypes(r.Context())
		if types == nil {
			types = []string{}
		}
		return types, err
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to list form types", err)
		return
	}
	respondSuccess(w, http.StatusOK, types, start)
}

// Filings pages through stored index records.
func (h *Handler) Filings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	req := FilingsRequest{
		FormTypes: parseCommaSeparated(q.Get("form_type")),
		SubjectID: getInt64Param(r, "subject_id", 0),
		From:      q.Get("from"),
		To:        q.Get("to"),
		Limit:     getIntParam(r, "limit", defaultFilingsLimit),
		Offset:    getIntParam(r, "offset", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}
	if req.From != "" && req.To != "" && req.From > req.To {
		respondValidation(w, &models.APIError{Code: ErrCodeValidation, Message: "from must not be after to"})
		return
	}

	filter := req.Filter()
	page, err := h.cached(cache.GenerateKey("filings", filter), func() (interface{}, error) {
		filings, err := h.deps.Store.QueryFilings(r.Context(), filter)
		if err != nil {
			return nil, err
		}
		if filings == nil {
			filings = []models.FilingIndexRecord{}
		}
		return &FilingsPage{
			Filings: filings,
			Count:   len(filings),
			Limit:   req.Limit,
			Offset:  req.Offset,
			HasMore: len(filings) == req.Limit,
		}, nil
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to query filings", err)
		return
	}
	respondSuccess(w, http.StatusOK, page, start)
}

// SubjectMappings lists the identifier mappings recorded for one subject.
func (h *Handler) SubjectMappings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, err := strconv.ParseInt(chi.URLParam(r, "subject_id"), 10, 64)
	if err != nil || id < 0 {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "subject_id must be a non-negative integer", nil)
		return
	}

	mappings, err := h.cached(cache.GenerateKey("subject-mappings", id), func() (interface{}, error) {
		mappings, err := h.deps.Store.MappingsForSubject(r.Context(), id)
		if mappings == nil {
			mappings = []models.IdentifierMapping{}
		}
		return mappings, err
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load mappings", err)
		return
	}
	respondSuccess(w, http.StatusOK, mappings, start)
}

// Runs lists the recorded completions of every process.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.deps.Runs == nil {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Run history is not available", nil)
		return
	}
	runs, err := h.deps.Runs.Runs(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to read run history", err)
		return
	}
	if runs == nil {
		runs = []models.RunRecord{}
	}
	respondSuccess(w, http.StatusOK, runs, start)
}

func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		// Out of range for every validate tag, so the client gets a field error.
		return -1
	}
	return n
}

func getInt64Param(r *http.Request, key string, defaultValue int64) int64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

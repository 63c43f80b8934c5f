// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/filingsync/internal/models"
)

// Job kinds.
const (
	JobKindSync       = "sync"
	JobKindSyncPeriod = "sync_period"
	JobKindRetrieval  = "retrieval"
	JobKindMappings   = "mappings"
	JobKindProcess    = "process"
)

// StartSync starts a full index sync.
func (h *Handler) StartSync(w http.ResponseWriter, r *http.Request) {
	h.startJob(w, r, JobKindSync, []string{laneIndex}, h.invalidating(func(ctx context.Context) (interface{}, error) {
		return h.deps.Pipeline.Sync(ctx)
	}))
}

// StartSyncPeriod starts a sync of one quarter.
func (h *Handler) StartSyncPeriod(w http.ResponseWriter, r *http.Request) {
	req := PeriodRequest{
		Year:    atoiOrNegative(chi.URLParam(r, "year")),
		Quarter: atoiOrNegative(chi.URLParam(r, "quarter")),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	h.startJob(w, r, JobKindSyncPeriod, []string{laneIndex}, h.invalidating(func(ctx context.Context) (interface{}, error) {
		return h.deps.Periods.SyncPeriod(ctx, req.Year, req.Quarter)
	}))
}

// StartRetrieval starts document retrieval for one form type or a substring match.
func (h *Handler) StartRetrieval(w http.ResponseWriter, r *http.Request) {
	var req RetrievalRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.startJob(w, r, JobKindRetrieval, nil, func(ctx context.Context) (interface{}, error) {
		if req.Contains != "" {
			total, perType, err := h.deps.Retriever.RetrieveByFormTypeSubstring(ctx, req.Contains)
			return &RetrievalResult{Total: total, PerType: perType, Message: total.String()}, err
		}
		counts, err := h.deps.Retriever.Retrieve(ctx, req.FormType)
		return &RetrievalResult{Total: counts, Message: counts.String()}, err
	})
}

// StartMappings starts an identifier mapping build from a form type's export.
func (h *Handler) StartMappings(w http.ResponseWriter, r *http.Request) {
	var req MappingRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.startJob(w, r, JobKindMappings, []string{laneMappings}, h.invalidating(func(ctx context.Context) (interface{}, error) {
		return h.deps.Mappings.BuildForFormType(ctx, req.FormType)
	}))
}

// StartProcess starts the full process-filings pipeline.
func (h *Handler) StartProcess(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	h.startJob(w, r, JobKindProcess, []string{laneIndex, laneMappings}, h.invalidating(func(ctx context.Context) (interface{}, error) {
		return h.deps.Pipeline.ProcessFilings(ctx, req.FormTypes)
	}))
}

// GetJob returns the current state of a job.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	job, ok := h.deps.Jobs.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Job not found", nil)
		return
	}
	respondSuccess(w, http.StatusOK, job, start)
}

func (h *Handler) startJob(w http.ResponseWriter, r *http.Request, kind string, lanes []string, fn JobFunc) {
	start := time.Now()
	job, err := h.deps.Jobs.Start(kind, lanes, fn)
	switch {
	case errors.Is(err, ErrJobConflict):
		respondJSON(w, http.StatusConflict, &models.APIResponse{
			Status:   "error",
			Data:     job,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    &models.APIError{Code: ErrCodeConflict, Message: "A " + job.Kind + " job is already running"},
		})
		return
	case err != nil:
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Server is shutting down", err)
		return
	}

	w.Header().Set("Location", "/api/v1/jobs/"+job.ID)
	respondSuccess(w, http.StatusAccepted, job, start)
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeJSON(r, dst); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Request body must be a JSON object", nil)
		return false
	}
	if apiErr := validateRequest(dst); apiErr != nil {
		respondValidation(w, apiErr)
		return false
	}
	return true
}

func atoiOrNegative(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

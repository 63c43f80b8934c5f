// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/filingsync/internal/models"
)

// RunLookup is implemented by ledgers that can answer for one process.
type RunLookup interface {
	LastRun(ctx context.Context, process string) (models.RunRecord, bool, error)
}

// Health reports store connectivity, the archive breaker and the last full index sync.
// It answers 200 even when degraded; use /health/ready for a failing probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, http.StatusOK, h.healthStatus(r), start)
}

// HealthLive answers 200 while the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady answers 503 while the store is unreachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Store.Ping(r.Context()); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Index store is not reachable", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]bool{"ready": true}, time.Now())
}

func (h *Handler) healthStatus(r *http.Request) models.HealthStatus {
	ctx := r.Context()
	status := models.HealthStatus{
		Status:      "healthy",
		StoreDriver: h.config.Database.Driver,
		Uptime:      time.Since(h.startTime).Seconds(),
	}

	status.StoreConnected = h.deps.Store.Ping(ctx) == nil
	if status.StoreConnected {
		if n, err := h.deps.Store.CountFilings(ctx); err == nil {
			status.IndexedFilings = n
		}
	} else {
		status.Status = "degraded"
	}

	if h.deps.Breaker != nil {
		status.ArchiveBreaker = h.deps.Breaker.BreakerState()
		if status.ArchiveBreaker == "open" {
			status.Status = "degraded"
		}
	}

	if lookup, ok := h.deps.Runs.(RunLookup); ok {
		if rec, found, err := lookup.LastRun(ctx, models.ProcessFullIndex); err == nil && found {
			status.LastFullIndex = &rec
		}
	}
	return status
}

// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/filingsync/internal/logging"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// IntervalService calls job every interval. Runs never overlap: a tick that
// arrives while the job is still running is dropped.
type IntervalService struct {
	name     string
	interval time.Duration
	job      Job
}

// NewIntervalService creates the service. interval must be positive.
func NewIntervalService(name string, interval time.Duration, job Job) (*IntervalService, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval service %s: interval must be positive, got %v", name, interval)
	}
	if job == nil {
		return nil, fmt.Errorf("interval service %s: job is required", name)
	}
	return &IntervalService{name: name, interval: interval, job: job}, nil
}

// Serve implements suture.Service.
func (s *IntervalService) Serve(ctx context.Context) error {
	log := logging.WithComponent(s.name)
	log.Info().Dur("interval", s.interval).Msg("Interval trigger started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runCtx := logging.ContextWithRunID(ctx, logging.GenerateCorrelationID())
			start := time.Now()
			if err := s.job(runCtx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error().Err(err).Str("run_id", logging.RunIDFromContext(runCtx)).Msg("Scheduled run failed")
				continue
			}
			log.Info().Dur("duration", time.Since(start)).Msg("Scheduled run completed")
		}
	}
}

// String names the service in supervisor events.
func (s *IntervalService) String() string {
	return s.name
}

// OnceService runs job one time and is not restarted afterwards, whether
// or not the job succeeded.
type OnceService struct {
	name string
	job  Job
}

// NewOnceService creates a one-shot service.
func NewOnceService(name string, job Job) *OnceService {
	return &OnceService{name: name, job: job}
}

// Serve implements suture.Service.
func (s *OnceService) Serve(ctx context.Context) error {
	if err := s.job(ctx); err != nil && ctx.Err() == nil {
		logging.WithComponent(s.name).Error().Err(err).Msg("Startup job failed")
	}
	return suture.ErrDoNotRestart
}

// String names the service in supervisor events.
func (s *OnceService) String() string {
	return s.name
}

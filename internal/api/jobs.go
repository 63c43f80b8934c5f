// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/filingsync/internal/logging"
	"github.com/tomtom215/filingsync/internal/metrics"
	"github.com/tomtom215/filingsync/internal/models"
)

// Lanes name the tables a job writes. Two jobs sharing a lane never run together.
const (
	laneIndex    = "index"
	laneMappings = "mappings"
)

// ErrJobConflict is returned by Start when a job holding one of the
// requested lanes is still running.
var ErrJobConflict = errors.New("a conflicting job is already running")

// ErrJobsClosed is returned by Start after Shutdown.
var ErrJobsClosed = errors.New("job manager is shut down")

// JobFunc is the work of one job. Its result is stored on the job even
// when it also returns an error.
type JobFunc func(ctx context.Context) (interface{}, error)

// JobManager runs API jobs in the background and keeps the most recent ones
// for polling.
type JobManager struct {
	mu      sync.Mutex
	jobs    map[string]*models.Job
	order   []string
	lanes   map[string]string // lane -> running job id
	maxJobs int
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewJobManager creates a manager that remembers at most maxJobs jobs.
// Finished jobs are forgotten oldest first.
func NewJobManager(maxJobs int) *JobManager {
	if maxJobs < 1 {
		maxJobs = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobManager{
		jobs:    make(map[string]*models.Job),
		lanes:   make(map[string]string),
		maxJobs: maxJobs,
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
	}
}

// Start registers a job and runs fn in its own goroutine. The returned job
// is a snapshot taken before fn starts.
func (m *JobManager) Start(kind string, lanes []string, fn JobFunc) (models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return models.Job{}, ErrJobsClosed
	}
	for _, lane := range lanes {
		if id, busy := m.lanes[lane]; busy {
			return *m.jobs[id], ErrJobConflict
		}
	}

	job := &models.Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    models.JobPending,
		CreatedAt: m.now().UTC(),
	}
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	for _, lane := range lanes {
		m.lanes[lane] = job.ID
	}
	m.evictLocked()

	snapshot := *job
	m.wg.Add(1)
	go m.run(job, lanes, fn)
	return snapshot, nil
}

func (m *JobManager) run(job *models.Job, lanes []string, fn JobFunc) {
	defer m.wg.Done()

	ctx := logging.ContextWithRunID(m.ctx, job.ID)
	log := logging.Ctx(ctx).With().Str("job_kind", job.Kind).Logger()

	m.mu.Lock()
	started := m.now().UTC()
	job.Status = models.JobRunning
	job.StartedAt = &started
	m.mu.Unlock()
	log.Info().Msg("Job started")

	result, err := fn(ctx)

	m.mu.Lock()
	finished := m.now().UTC()
	job.FinishedAt = &finished
	job.Result = result
	if err != nil {
		job.Status = models.JobFailed
		job.Error = err.Error()
	} else {
		job.Status = models.JobSucceeded
	}
	for _, lane := range lanes {
		if m.lanes[lane] == job.ID {
			delete(m.lanes, lane)
		}
	}
	status := job.Status
	m.mu.Unlock()

	metrics.RecordAPIJob(job.Kind, status)
	if err != nil {
		log.Error().Err(err).Dur("duration", finished.Sub(started)).Msg("Job failed")
		return
	}
	log.Info().Dur("duration", finished.Sub(started)).Msg("Job finished")
}

// evictLocked drops the oldest finished jobs beyond maxJobs. Unfinished
// jobs are never dropped.
func (m *JobManager) evictLocked() {
	excess := len(m.order) - m.maxJobs
	if excess <= 0 {
		return
	}
	kept := m.order[:0]
	for _, id := range m.order {
		if excess > 0 && m.jobs[id].Done() {
			delete(m.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
}

// Get returns a snapshot of the job with the given id.
func (m *JobManager) Get(id string) (models.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return *job, true
}

// Shutdown cancels running jobs and waits for them to return or for ctx to end.
func (m *JobManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/filingsync/internal/api"
	"github.com/tomtom215/filingsync/internal/cache"
	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/logging"
	"github.com/tomtom215/filingsync/internal/supervisor"
	"github.com/tomtom215/filingsync/internal/supervisor/services"
	indexsync "github.com/tomtom215/filingsync/internal/sync"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the optional scheduled trigger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts.cfg, func(a *app) error {
				return serve(cmd.Context(), a)
			})
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	jobs := api.NewJobManager(0)
	readCache := cache.New(cfg.Server.CacheTTL)
	defer readCache.Close()
	handler := api.NewHandler(cfg, api.Deps{
		Store:     a.store,
		Periods:   a.sync,
		Retriever: a.retrieval,
		Mappings:  a.mapping,
		Pipeline:  a.runner,
		Runs:      a.ledger,
		Breaker:   a.fetcher,
		Jobs:      jobs,
		Cache:     readCache,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, api.NewChiMiddleware(api.MiddlewareConfigFromServer(cfg.Server))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	if cfg.Server.CheckFreshness {
		tree.AddPipelineService(services.NewOnceService("freshness-check", clearing(readCache, func(ctx context.Context) error {
			_, _, err := a.runner.EnsureFresh(ctx)
			return skipBusy(err)
		})))
	}

	if cfg.Schedule.Interval > 0 {
		job, err := scheduledJob(cfg, a)
		if err != nil {
			return err
		}
		svc, err := services.NewIntervalService("scheduled-"+cfg.Schedule.Job, cfg.Schedule.Interval, clearing(readCache, job))
		if err != nil {
			return err
		}
		tree.AddPipelineService(svc)
	}

	logging.Info().
		Str("addr", server.Addr).
		Str("driver", cfg.Database.Driver).
		Dur("schedule_interval", cfg.Schedule.Interval).
		Dur("cache_ttl", cfg.Server.CacheTTL).
		Msg("Starting supervisor tree")

	errCh := tree.ServeBackground(ctx)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree stopped")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("API jobs still running at shutdown")
	}

	logging.Info().Msg("Stopped")
	return nil
}

func scheduledJob(cfg *config.Config, a *app) (services.Job, error) {
	switch cfg.Schedule.Job {
	case config.JobSync:
		return func(ctx context.Context) error {
			_, err := a.runner.Sync(ctx)
			return skipBusy(err)
		}, nil
	case config.JobProcess:
		return func(ctx context.Context) error {
			_, err := a.runner.ProcessFilings(ctx, nil)
			return skipBusy(err)
		}, nil
	default:
		return nil, fmt.Errorf("unknown schedule.job %q", cfg.Schedule.Job)
	}
}

// clearing drops cached API reads after every run of a job that writes the index.
func clearing(c *cache.Cache, job services.Job) services.Job {
	return func(ctx context.Context) error {
		defer c.Clear()
		return job(ctx)
	}
}

// skipBusy treats a sync already running elsewhere as a skipped run.
func skipBusy(err error) error {
	if errors.Is(err, indexsync.ErrSyncInProgress) {
		logging.Info().Msg("Sync already in progress; skipping this run")
		return nil
	}
	return err
}

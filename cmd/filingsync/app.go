// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/filingsync/internal/api"
	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/database"
	"github.com/tomtom215/filingsync/internal/fetch"
	"github.com/tomtom215/filingsync/internal/ledger"
	"github.com/tomtom215/filingsync/internal/logging"
	"github.com/tomtom215/filingsync/internal/mapping"
	"github.com/tomtom215/filingsync/internal/pipeline"
	"github.com/tomtom215/filingsync/internal/postgres"
	"github.com/tomtom215/filingsync/internal/retrieval"
	indexsync "github.com/tomtom215/filingsync/internal/sync"
)

// indexStore is everything any component asks of the store. Both drivers satisfy it.
type indexStore interface {
	indexsync.IndexStore
	retrieval.IndexStore
	mapping.MappingStore
	api.IndexReader
	io.Closer
}

var (
	_ indexStore = (*database.DB)(nil)
	_ indexStore = (*postgres.Store)(nil)
)

// app holds the wired components for one command invocation.
type app struct {
	cfg       *config.Config
	store     indexStore
	ledger    *ledger.Badger
	fetcher   *fetch.Fetcher
	sync      *indexsync.Engine
	retrieval *retrieval.Engine
	mapping   *mapping.Service
	runner    *pipeline.Runner
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (indexStore, error) {
	switch cfg.Driver {
	case config.DriverDuckDB, "":
		return database.New(cfg)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	runs, err := ledger.Open(cfg.Ledger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}

	fetcher := fetch.New(cfg.Archive)
	syncEngine := indexsync.NewEngine(cfg, store, fetcher, runs)
	retrievalEngine := retrieval.NewEngine(cfg, store, fetcher)
	mappingService := mapping.NewService(cfg, store)

	logging.Debug().
		Str("driver", cfg.Database.Driver).
		Str("ledger", cfg.Ledger.Path).
		Msg("Components wired")

	return &app{
		cfg:       cfg,
		store:     store,
		ledger:    runs,
		fetcher:   fetcher,
		sync:      syncEngine,
		retrieval: retrievalEngine,
		mapping:   mappingService,
		runner:    pipeline.NewRunner(cfg, syncEngine, retrievalEngine, mappingService, runs),
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.ledger.Close(), a.store.Close())
}

// withApp wires the components, runs fn and closes everything afterwards.
func withApp(ctx context.Context, cfg *config.Config, fn func(a *app) error) (err error) {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("Failed to close resources")
			if err == nil {
				err = cerr
			}
		}
	}()
	return fn(a)
}

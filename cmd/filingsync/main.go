// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Command filingsync keeps a local copy of the EDGAR full index, retrieves
// filing documents and builds identifier mappings.
//
// Every command loads configuration from built-in defaults, the first config
// file found (or --config) and the environment, in that order:
//
//	ARCHIVE_USER_AGENT="Example Corp ops@example.com" filingsync sync
//	filingsync sync-quarter --year 2024 --quarter 1
//	filingsync retrieve --form-type 10-K
//	filingsync retrieve --contains 13
//	filingsync build-mappings --form-type 13F-HR
//	filingsync process --form-types 13F-HR,"SC 13G"
//	filingsync serve
//
// A .env file is loaded before configuration when present; --env-file names
// another one. Variables already set in the environment win.
//
// SIGINT and SIGTERM cancel the running operation. Batch operations report
// what they finished before stopping.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/logging"
)

// Version is set at build time.
var Version = "dev"

type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	cfg        *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "filingsync",
		Short:         "Synchronize the EDGAR filing index and retrieve filings",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		syncCmd(opts),
		syncQuarterCmd(opts),
		retrieveCmd(opts),
		buildMappingsCmd(opts),
		processCmd(opts),
		ensureFreshCmd(opts),
		formTypesCmd(opts),
		runsCmd(opts),
		serveCmd(opts),
	)
	return root
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	if err := godotenv.Load(o.envFile); err != nil {
		// The default .env is optional; an explicit one is not.
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
			return fmt.Errorf("failed to load %s: %w", o.envFile, err)
		}
	}

	cfg, err := config.LoadFrom(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		if !logging.ValidLevel(o.logLevel) {
			return fmt.Errorf("invalid --log-level %q", o.logLevel)
		}
		cfg.Logging.Level = o.logLevel
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	o.cfg = cfg
	return nil
}

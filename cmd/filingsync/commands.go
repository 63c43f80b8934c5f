// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/filingsync/internal/logging"
)

func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func syncCmd(opts *rootOptions) *cobra.Command {
	var rescan bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync every quarter from the stored cursor up to now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts.cfg, func(a *app) error {
				if rescan {
					n, err := a.ledger.ForgetDigests(cmd.Context())
					if err != nil {
						return err
					}
					logging.Info().Int("digests", n).Msg("Forgot period digests; every period will be parsed again")
				}
				summary, err := a.runner.Sync(cmd.Context())
				if summary != nil {
					if perr := printJSON(cmd.OutOrStdout(), summary); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&rescan, "rescan", false, "parse every period again even if its content digest is unchanged")
	return cmd
}

func syncQuarterCmd(opts *rootOptions) *cobra.Command {
	var year, quarter int
	cmd := &cobra.Command{
		Use:   "sync-quarter",
		Short: "Fetch and store the index of one quarter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if quarter < 1 || quarter > 4 {
				return fmt.Errorf("--quarter must be between 1 and 4, got %d", quarter)
			}
			return withApp(cmd.Context(), opts.cfg, func(a *app) error {
				result, err := a.sync.SyncPeriod(cmd.Context(), year, quarter)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year of the quarter")
	cmd.Flags().IntVar(&quarter, "quarter", 0, "quarter, 1-4")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("quarter")
	return cmd
}

func retrieveCmd(opts *rootOptions) *cobra.Command {
	var formType, contains string
	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Download stored filings of a form type that are not on disk yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts.cfg, func(a *app) error {
				out := cmd.OutOrStdout()
				if contains != "" {
					total, perType, err := a.retrieval.RetrieveByFormTypeSubstring(cmd.Context(), contains)
					for _, c := range perType {
						fmt.Fprintln(out, c.String())
					}
					fmt.Fprintln(out, total.String())
					return err
				}
				counts, err := a.retrieval.Retrieve(cmd.Context(), formType)
				fmt.Fprintln(out, counts.String())
				return err
			})
		},
	}
	cmd.Flags().StringVar(&formType, "form-type", "", "exact form type, e.g. 10-K")
	cmd.Flags().StringVar(&contains, "contains", "", "every stored form type containing this substring")
	cmd.MarkFlagsOneRequired("form-type", "contains")
	cmd.MarkFlagsMutuallyExclusive("form-type", "contains")
	return cmd
}

func buildMappingsCmd(opts *rootOptions) *cobra.Command {
	var formType, file string
	cmd := &cobra.Command{
		Use:   "build-mappings",
		Short: "Build identifier mappings from an export CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts.cfg, func(a *app) error {
				path := file
				if path == "" {
					path = a.mapping.ExportPath(formType)
				}
				summary, err := a.mapping.BuildFromFile(cmd.Context(), path)
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("export %s does not exist: %w", path, err)
				}
				if summary != nil {
					if perr := printJSON(cmd.OutOrStdout(), summary); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&formType, "form-type", "", "form type whose export in mapping.export_dir is read")
	cmd.Flags().StringVar(&file, "file", "", "explicit export CSV path")
	cmd.MarkFlagsOneRequired("form-type", "file")
	cmd.MarkFlagsMutuallyExclusive("form-type", "file")
	return cmd
}

func processCmd(opts *rootOptions) *cobra.Command {
	var formTypes []string
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Sync, retrieve and build mappings for the given form types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts.cfg, func(a *app) error {
				summary, err := a.runner.ProcessFilings(cmd.Context(), formTypes)
				if summary != nil {
					if perr := printJSON(cmd.OutOrStdout(), summary); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringSliceVar(&formTypes, "form-types", nil, "form types to process (default: pipeline.form_types)")
	return cmd
}

func ensureFreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-fresh",
		Short: "Sync only when the last full index sync is older than pipeline.stale_after",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts.cfg, func(a *app) error {
				summary, ran, err := a.runner.EnsureFresh(cmd.Context())
				if !ran {
					fmt.Fprintln(cmd.OutOrStdout(), "Index is fresh; no sync needed.")
					return err
				}
				if summary != nil {
					if perr := printJSON(cmd.OutOrStdout(), summary); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
}

func formTypesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "form-types",
		Short: "List the distinct form types in the index store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts.cfg, func(a *app) error {
				types, err := a.store.DistinctFormTypes(cmd.Context())
				if err != nil {
					return err
				}
				for _, t := range types {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			})
		},
	}
}

func runsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "Show the last recorded completion of each process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts.cfg, func(a *app) error {
				runs, err := a.ledger.Runs(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), runs)
			})
		},
	}
}

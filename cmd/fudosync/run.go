// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Perform a single extraction pass and exit",
		Long: `Extract every configured entity for every active branch once.

Entity and branch failures are reported in the summary and the logs; the
command exits non-zero only when it could not start (configuration, database,
secrets backend) or was interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runOnce(ctx, rootOpts, cmd.OutOrStdout())
		},
	}
}

func runOnce(ctx context.Context, opts *RootOptions, out io.Writer) error {
	a, err := openStorage(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.buildEngine(ctx); err != nil {
		return err
	}

	summary, runErr := a.manager.RunOnce(ctx)
	if summary != nil {
		formatter := &OutputFormatter{Format: opts.Format, Writer: out}
		if err := formatter.Success(summary, func(w io.Writer) { renderSummary(w, summary) }); err != nil {
			return err
		}
	}
	return runErr
}

// commandContext returns the command context, or Background when the command
// was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

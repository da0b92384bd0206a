// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the stored watermarks",
		Long:  "Print the last successful extraction time of every (branch, entity) pair.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			a, err := openStorage(ctx, rootOpts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			marks, err := a.store.ListWatermarks(ctx)
			if err != nil {
				return fmt.Errorf("failed to list watermarks: %w", err)
			}
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(marks, func(w io.Writer) { renderWatermarks(w, marks) })
		},
	}
}

// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomtom215/fudosync/internal/models"
)

// BranchUpsertOptions holds the flags of "branches upsert".
type BranchUpsertOptions struct {
	FudoIdentifier  string
	Name            string
	APIKeySecret    string
	APISecretSecret string
	Inactive        bool
}

// NewBranchesCommand creates the branches command group.
func NewBranchesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branches",
		Short: "Manage the branch registry",
		Long: `List or update the branches (Fudo accounts) extracted by each pass.

Credentials are not stored. A branch references two secret names that are
resolved through the configured secrets backend when a token is needed.`,
	}

	cmd.AddCommand(newBranchesListCommand(rootOpts))
	cmd.AddCommand(newBranchesUpsertCommand(rootOpts))
	return cmd
}

func newBranchesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			a, err := openStorage(ctx, rootOpts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			branches, err := a.db.ListBranches(ctx)
			if err != nil {
				return fmt.Errorf("failed to list branches: %w", err)
			}
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(branches, func(w io.Writer) { renderBranches(w, branches) })
		},
	}
}

func newBranchesUpsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BranchUpsertOptions{}

	cmd := &cobra.Command{
		Use:   "upsert <branch-id>",
		Short: "Insert or replace a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			a, err := openStorage(ctx, rootOpts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			branch := models.Branch{
				ID:              args[0],
				FudoIdentifier:  opts.FudoIdentifier,
				Name:            opts.Name,
				APIKeySecret:    opts.APIKeySecret,
				APISecretSecret: opts.APISecretSecret,
				Active:          !opts.Inactive,
			}
			if err := a.db.UpsertBranch(ctx, branch); err != nil {
				return err
			}
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(branch, func(w io.Writer) {
				fmt.Fprintf(w, "Branch %s saved (active=%t)\n", branch.ID, branch.Active)
			})
		},
	}

	cmd.Flags().StringVar(&opts.FudoIdentifier, "fudo-id", "", "branch identifier on the Fudo side")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.APIKeySecret, "api-key-secret", "", "secret name holding the API key")
	cmd.Flags().StringVar(&opts.APISecretSecret, "api-secret-secret", "", "secret name holding the API secret")
	cmd.Flags().BoolVar(&opts.Inactive, "inactive", false, "register the branch as inactive")
	_ = cmd.MarkFlagRequired("api-key-secret")
	_ = cmd.MarkFlagRequired("api-secret-secret")

	return cmd
}

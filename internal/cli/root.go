// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package cli wires together the remoteconfigd root Cobra command and global CLI options.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"remoteconfig/internal/cli/commands"
)

// NewRootCommand constructs the remoteconfigd root Cobra command. This
// command wires the serve/validate/import subcommands.
func NewRootCommand() *cobra.Command {
	version := os.Getenv("REMOTECONFIG_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	cmd := &cobra.Command{
		Use:           "remoteconfigd",
		Short:         "remoteconfigd - context-aware configuration resolution service",
		Long:          "remoteconfigd resolves mobile client configuration from versioned specifications, rule composition, and conditional rollout.",
		SilenceUsage:  true, // don't dump usage on user errors
		SilenceErrors: true, // centralize error printing in main()
	}

	// Global flags - registered in lexicographic order for deterministic help output
	cmd.PersistentFlags().StringP("env", "e", "", "target environment")
	cmd.PersistentFlags().StringP("store", "s", "memory", "storage backend: memory|file|postgres")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	// Version command - simple and explicit.
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of remoteconfigd",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "remoteconfigd version %s\n", version)
		},
	})

	// Subcommands - keep registrations in lexicographic order by .Use
	// to ensure deterministic help output.
	cmd.AddCommand(commands.NewImportCommand())
	cmd.AddCommand(commands.NewServeCommand())
	cmd.AddCommand(commands.NewValidateCommand())

	return cmd
}

// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"remoteconfig/pkg/specfile"
)

// NewImportCommand returns the `remoteconfigd import` command.
func NewImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a YAML specification bundle into a storage backend",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	cmd.Flags().String("store", "memory", "storage backend: memory|file|postgres")
	cmd.Flags().String("store-dir", "./specs", "directory for the file backend")
	cmd.Flags().String("postgres-url", "", "Postgres connection URL for the postgres backend")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	backend, _ := cmd.Flags().GetString("store")
	storeDir, _ := cmd.Flags().GetString("store-dir")
	postgresURL, _ := cmd.Flags().GetString("postgres-url")

	s, err := openStore(ctx, backend, storeDir, postgresURL)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	specs, err := specfile.Load(args[0])
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, spec := range specs {
		if _, err := s.Save(ctx, spec); err != nil {
			return fmt.Errorf("import: saving %s/%s: %w", spec.AppID, spec.Version, err)
		}
		_, _ = fmt.Fprintf(out, "imported %s/%s\n", spec.AppID, spec.Version)
	}
	return nil
}

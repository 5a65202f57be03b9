// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"remoteconfig/pkg/schema"
	"remoteconfig/pkg/specfile"
)

// NewValidateCommand returns the `remoteconfigd validate` command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a specification bundle's defaultConfig against its schema",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	specs, err := specfile.Load(args[0])
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	out := cmd.OutOrStdout()
	invalid := 0
	for _, spec := range specs {
		result := schema.Validate(spec.Schema, spec.DefaultConfig)
		if result.Valid {
			_, _ = fmt.Fprintf(out, "%s/%s: OK\n", spec.AppID, spec.Version)
			continue
		}
		invalid++
		_, _ = fmt.Fprintf(out, "%s/%s: INVALID\n", spec.AppID, spec.Version)
		for _, e := range result.Errors {
			_, _ = fmt.Fprintf(out, "  - %s\n", e)
		}
	}

	if invalid > 0 {
		return fmt.Errorf("validate: %d specification(s) failed schema validation", invalid)
	}
	return nil
}

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
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"remoteconfig/internal/httpapi"
	"remoteconfig/internal/logging"
	"remoteconfig/pkg/geoip"
	"remoteconfig/pkg/specfile"
	"remoteconfig/pkg/store"
	"remoteconfig/pkg/uaparser"
)

// NewServeCommand returns the `remoteconfigd serve` command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the configuration resolution HTTP server",
		Long:  "Start the HTTP server that resolves client configuration against registered specifications.",
		RunE:  runServe,
	}

	cmd.Flags().String("addr", ":8080", "address to listen on")
	cmd.Flags().String("store", "memory", "storage backend: memory|file|postgres")
	cmd.Flags().String("store-dir", "./specs", "directory for the file backend")
	cmd.Flags().String("postgres-url", "", "Postgres connection URL for the postgres backend")
	cmd.Flags().StringSlice("seed", nil, "YAML specification bundles to load on startup")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := logging.New(verbose)

	addr, _ := cmd.Flags().GetString("addr")
	backend, _ := cmd.Flags().GetString("store")
	storeDir, _ := cmd.Flags().GetString("store-dir")
	postgresURL, _ := cmd.Flags().GetString("postgres-url")
	seeds, _ := cmd.Flags().GetStringSlice("seed")

	s, err := openStore(ctx, backend, storeDir, postgresURL)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	for _, path := range seeds {
		specs, err := specfile.Load(path)
		if err != nil {
			return fmt.Errorf("serve: loading seed %s: %w", path, err)
		}
		for _, spec := range specs {
			if _, err := s.Save(ctx, spec); err != nil {
				return fmt.Errorf("serve: seeding %s/%s: %w", spec.AppID, spec.Version, err)
			}
		}
		logger.Info("seeded specifications", logging.Field{Key: "file", Value: path}, logging.Field{Key: "count", Value: len(specs)})
	}

	srv := httpapi.New(s, uaparser.NewBasic(), geoip.None{}, logger)
	httpServer := &http.Server{Addr: addr, Handler: srv}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", logging.Field{Key: "addr", Value: addr})
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-stop:
		logger.Info("shutting down")
		return httpServer.Shutdown(ctx)
	}
}

func openStore(ctx context.Context, backend, dir, postgresURL string) (store.Store, error) {
	switch backend {
	case "memory", "":
		return store.NewMemory(), nil
	case "file":
		return store.NewFile(dir)
	case "postgres":
		if postgresURL == "" {
			return nil, fmt.Errorf("--postgres-url is required for the postgres backend")
		}
		return store.OpenPostgres(ctx, postgresURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package store implements the Specification registry: an in-memory
// backing (the core requirement), plus file and Postgres backings that
// persist the same registry across process restarts.
package store

import (
	"context"
	"errors"
	"fmt"

	"remoteconfig/pkg/model"
)

// ErrNotFound is returned by Get/Delete when no specification is
// registered under the given (appId, version).
var ErrNotFound = errors.New("store: specification not found")

// Store is the persistence interface the Resolver and administrative
// endpoints depend on.
type Store interface {
	Get(ctx context.Context, appID, version string) (model.Specification, error)
	List(ctx context.Context) ([]model.Specification, error)
	Save(ctx context.Context, spec model.Specification) (model.Specification, error)
	Delete(ctx context.Context, appID, version string) error
}

func key(appID, version string) string {
	return fmt.Sprintf("%s@%s", appID, version)
}

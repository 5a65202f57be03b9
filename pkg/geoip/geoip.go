// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package geoip is the external IP-geolocation collaborator. A lookup
// may fail or return nothing; it must never block the resolution
// pipeline on an error.
package geoip

import "context"

// Location is what a successful lookup returns. Country and Region are
// the fields the Condition Evaluator reads; City and coordinates are
// carried for callers that want them but are not consumed by the core.
type Location struct {
	Country string
	Region  string
	City    string
	Lat     float64
	Lon     float64
}

// Resolver looks up the location of an IP address. A failed lookup
// returns ok == false, not an error — geolocation is best-effort and
// must degrade silently.
type Resolver interface {
	Resolve(ctx context.Context, ip string) (loc Location, ok bool)
}

// Static is a Resolver backed by a fixed lookup table, useful for tests
// and for deployments that maintain their own IP-range mapping rather
// than calling out to a third-party geolocation service.
type Static struct {
	table map[string]Location
}

// NewStatic returns a Resolver backed by table (keyed by exact IP
// string).
func NewStatic(table map[string]Location) Static {
	return Static{table: table}
}

func (s Static) Resolve(_ context.Context, ip string) (Location, bool) {
	loc, ok := s.table[ip]
	return loc, ok
}

// None never resolves anything; it is the default when no geolocation
// backing is configured.
type None struct{}

func (None) Resolve(_ context.Context, _ string) (Location, bool) {
	return Location{}, false
}

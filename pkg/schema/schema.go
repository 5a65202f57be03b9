// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package schema implements the shallow, top-level-only Schema Validator:
// missing required keys, deprecated keys present, and unknown keys.
package schema

import (
	"fmt"

	"remoteconfig/pkg/model"
)

// Result is the outcome of validating a config document against a Schema.
type Result struct {
	Valid  bool
	Errors []string
}

// Validate checks cfg's top-level keys against s. It never inspects
// nested structure. A document can be Valid == false while the caller
// still uses it; validation failures are informational here, not
// enforced.
func Validate(s model.Schema, cfg model.Value) Result {
	var errs []string

	present := map[string]bool{}
	if cfg.Kind == model.KindObject {
		for _, kv := range cfg.Object {
			present[kv.Key] = true
		}
	}

	for _, req := range s.Required {
		if !present[req] {
			errs = append(errs, fmt.Sprintf("missing required key %q", req))
		}
	}

	for _, dep := range s.Deprecated {
		if present[dep] {
			errs = append(errs, fmt.Sprintf("deprecated key %q is present", dep))
		}
	}

	allowed := map[string]bool{}
	for _, k := range s.Required {
		allowed[k] = true
	}
	for _, k := range s.Optional {
		allowed[k] = true
	}
	for _, k := range s.Deprecated {
		allowed[k] = true
	}

	if cfg.Kind == model.KindObject {
		for _, kv := range cfg.Object {
			if !allowed[kv.Key] {
				errs = append(errs, fmt.Sprintf("unknown key %q", kv.Key))
			}
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

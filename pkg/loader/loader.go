// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package loader implements the Conditional Loader: deciding which
// ConditionalRule entries materialize into the evaluation set for a
// given request.
package loader

import (
	"fmt"
	"sort"

	"remoteconfig/pkg/hash"
	"remoteconfig/pkg/model"
)

// Loader decides which ConditionalRules to materialize for a request. It
// keeps a cross-request cache keyed by every field its LoadConditions can
// read; the key must be extended whenever a new field becomes readable
// here, or stale entries will be served across unrelated requests.
type Loader struct {
	cache map[string][]model.Rule
}

// New returns an empty Loader.
func New() *Loader {
	return &Loader{cache: make(map[string][]model.Rule)}
}

// contextKey hashes every field a LoadCondition can read: userId,
// customContext, featureFlags, environment, the specification identity,
// and geo (client-provided takes precedence over resolved, but both vary
// the decision and both must be represented).
func (l *Loader) contextKey(ctx model.RequestContext, specID, specVersion string) string {
	flags := make([]string, 0, len(ctx.FeatureFlags))
	for k, v := range ctx.FeatureFlags {
		flags = append(flags, fmt.Sprintf("%s=%t", k, v))
	}
	sort.Strings(flags)

	country, region := "", ""
	if ctx.ClientGeo != nil {
		country, region = ctx.ClientGeo.Country, ctx.ClientGeo.Region
	}

	customJSON, _ := ctx.CustomContext.MarshalJSON()

	return fmt.Sprintf(
		"spec=%s@%s|user=%s|flags=%v|env=%s|cgeo=%s,%s|geo=%s,%s|custom=%s",
		specID, specVersion, ctx.UserID, flags, ctx.Environment,
		country, region, ctx.GeoCountry, ctx.GeoRegion, customJSON,
	)
}

// Load returns, for every ConditionalRule whose LoadConditions all pass,
// a materialized copy of its Rule with Enabled forced to true. Environment
// and feature-flag conditions are evaluated against spec, the owning
// specification, not the caller-supplied request context, so a caller
// cannot unlock an environment- or flag-gated rule by varying its own
// request parameters.
func (l *Loader) Load(spec model.Specification, ctx model.RequestContext) []model.Rule {
	key := l.contextKey(ctx, spec.ID, spec.Version)
	if cached, ok := l.cache[key]; ok {
		return cached
	}

	var out []model.Rule
	for _, cr := range spec.ConditionalRules {
		if passesAll(cr.Rule.ID, cr.LoadConditions, spec, ctx) {
			rule := cr.Rule
			rule.Enabled = true
			out = append(out, rule)
		}
	}

	l.cache[key] = out
	return out
}

func passesAll(ruleID string, conditions []model.LoadCondition, spec model.Specification, ctx model.RequestContext) bool {
	for _, c := range conditions {
		if !passes(ruleID, c, spec, ctx) {
			return false
		}
	}
	return true
}

func passes(ruleID string, c model.LoadCondition, spec model.Specification, ctx model.RequestContext) bool {
	switch c.Type {
	case model.LoadEnvironment:
		return spec.Environment == c.Environment
	case model.LoadFeatureFlag:
		return spec.FeatureFlags[c.FlagName]
	case model.LoadPercentageRollout:
		return hash.InRollout(ruleID, ctx.UserID, c.Percentage)
	case model.LoadCustom:
		val, ok := ctx.CustomContext.Get(c.CustomKey)
		if !ok {
			return false
		}
		return valueEqual(val, c.CustomValue)
	default:
		return false
	}
}

func valueEqual(a, b model.Value) bool {
	aj, _ := a.MarshalJSON()
	bj, _ := b.MarshalJSON()
	return string(aj) == string(bj)
}

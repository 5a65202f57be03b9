// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package evaluator implements the per-rule match decision: disabled,
// excluded, missing dependency, chain, and finally plain conditions, in
// that precedence order. No error is ever raised here — every failure
// mode degrades to a non-match with a reason string.
package evaluator

import (
	"fmt"
	"sort"

	"remoteconfig/pkg/chain"
	"remoteconfig/pkg/condition"
	"remoteconfig/pkg/model"
)

const (
	ReasonDisabled           = "Rule disabled"
	ReasonExcluded           = "Excluded by another rule"
	ReasonMissingDeps        = "Missing dependencies"
	ReasonChainFailed        = "Chain evaluation failed"
	ReasonConditionsMet      = "All conditions met"
	ReasonConditionsNotMet   = "Conditions not met"
)

// Result is the outcome of evaluating one rule.
type Result struct {
	Matched bool
	Reason  string
}

// Evaluator holds the state scoped to one resolution request: which
// rules have matched so far (for exclusion/dependency checks against
// rules evaluated earlier in priority order) and a memoization cache of
// (ruleID, context) decisions.
type Evaluator struct {
	rules   chain.Rules
	matched map[string]bool
	cache   map[string]Result
}

// New returns an Evaluator over rules, the full materialized rule set
// (used to resolve chain references).
func New(rules chain.Rules) *Evaluator {
	return &Evaluator{
		rules:   rules,
		matched: make(map[string]bool),
		cache:   make(map[string]Result),
	}
}

// Reset clears matched-rule state and the memoization cache. Resolvers
// call this once per new evaluation pass over a request (spec step:
// "sort + clear evaluator cache").
func (e *Evaluator) Reset() {
	e.matched = make(map[string]bool)
	e.cache = make(map[string]Result)
}

// Evaluate decides whether rule matches ctx, given everything matched so
// far in this request. On a match, the rule is recorded so that later
// rules in the same pass can see it for exclusion/dependency checks.
func (e *Evaluator) Evaluate(rule model.Rule, ctx model.RequestContext) Result {
	key := fmt.Sprintf("%s|%s", rule.ID, contextIdentity(ctx))
	if cached, ok := e.cache[key]; ok {
		return cached
	}

	result := e.evaluate(rule, ctx)
	e.cache[key] = result
	if result.Matched {
		e.matched[rule.ID] = true
	}
	return result
}

func (e *Evaluator) evaluate(rule model.Rule, ctx model.RequestContext) Result {
	if !rule.Enabled {
		return Result{Matched: false, Reason: ReasonDisabled}
	}

	for _, excludedID := range rule.ExcludesRules {
		if e.matched[excludedID] {
			return Result{Matched: false, Reason: ReasonExcluded}
		}
	}

	for _, dep := range rule.DependsOn {
		if !e.matched[dep] {
			return Result{Matched: false, Reason: ReasonMissingDeps}
		}
	}

	if rule.Chain != nil {
		if !chain.Evaluate(rule.Chain, e.rules, ctx) {
			return Result{Matched: false, Reason: ReasonChainFailed}
		}
	}

	for _, c := range rule.Conditions {
		if !condition.Evaluate(c, ctx) {
			return Result{Matched: false, Reason: ReasonConditionsNotMet}
		}
	}

	return Result{Matched: true, Reason: ReasonConditionsMet}
}

// contextIdentity produces a stable string key for memoizing decisions
// against a particular request context.
func contextIdentity(ctx model.RequestContext) string {
	flags := make([]string, 0, len(ctx.FeatureFlags))
	for k, v := range ctx.FeatureFlags {
		flags = append(flags, fmt.Sprintf("%s=%t", k, v))
	}
	sort.Strings(flags)

	country, region := "", ""
	if ctx.ClientGeo != nil {
		country, region = ctx.ClientGeo.Country, ctx.ClientGeo.Region
	}

	return fmt.Sprintf(
		"av=%s|os=%s|dev=%s|ua=%s|cgeo=%s,%s|geo=%s,%s|ts=%d|user=%s|flags=%v|env=%s",
		ctx.AppVersion, ctx.OS, ctx.Device, ctx.UserAgent,
		country, region, ctx.GeoCountry, ctx.GeoRegion,
		ctx.TimestampMs, ctx.UserID, flags, ctx.Environment,
	)
}

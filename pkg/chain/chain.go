// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package chain evaluates the boolean RuleChain expressions a Rule may
// use in place of (or alongside) its plain Conditions list.
package chain

import (
	"remoteconfig/pkg/condition"
	"remoteconfig/pkg/model"
)

// Rules looks up a rule by id. Callers pass the specification's full rule
// set (materialized rules, not conditional wrappers).
type Rules map[string]model.Rule

// Evaluate recursively evaluates a RuleChain against ctx. String items
// are resolved through a basic evaluation of the referenced rule
// (enabled && conditions only — dependencies, exclusions and any chain
// of the referenced rule are intentionally ignored, to avoid recursing
// back into the full rule evaluator). Nested chains recurse through
// Evaluate. An unknown rule id evaluates to false.
func Evaluate(c *model.RuleChain, rules Rules, ctx model.RequestContext) bool {
	if c == nil {
		return true
	}
	results := make([]bool, len(c.Items))
	for i, item := range c.Items {
		if item.Chain != nil {
			results[i] = Evaluate(item.Chain, rules, ctx)
			continue
		}
		results[i] = basicEval(item.RuleID, rules, ctx)
	}
	return combine(c.Operator, results)
}

// basicEval evaluates a referenced rule's enabled flag and plain
// conditions only.
func basicEval(ruleID string, rules Rules, ctx model.RequestContext) bool {
	r, ok := rules[ruleID]
	if !ok {
		return false
	}
	if !r.Enabled {
		return false
	}
	for _, c := range r.Conditions {
		if !condition.Evaluate(c, ctx) {
			return false
		}
	}
	return true
}

func combine(op model.ChainOperator, results []bool) bool {
	switch op {
	case model.ChainAnd:
		for _, r := range results {
			if !r {
				return false
			}
		}
		return true
	case model.ChainOr:
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	case model.ChainNot:
		if len(results) == 0 {
			return false
		}
		return !results[0]
	case model.ChainXor:
		count := 0
		for _, r := range results {
			if r {
				count++
			}
		}
		return count == 1
	default:
		return false
	}
}

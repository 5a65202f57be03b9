// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package evaluator

import (
	"testing"

	"remoteconfig/pkg/chain"
	"remoteconfig/pkg/model"
)

func TestEvaluate_DisabledTakesPrecedenceOverEverything(t *testing.T) {
	rule := model.Rule{ID: "r1", Enabled: false, DependsOn: []string{"never-matched"}}
	e := New(chain.Rules{"r1": rule})
	result := e.Evaluate(rule, model.RequestContext{})
	if result.Matched || result.Reason != ReasonDisabled {
		t.Fatalf("expected disabled precedence, got %+v", result)
	}
}

func TestEvaluate_ExcludedByAlreadyMatchedRule(t *testing.T) {
	earlier := model.Rule{ID: "earlier", Enabled: true}
	later := model.Rule{ID: "later", Enabled: true, ExcludesRules: []string{"earlier"}}
	rules := chain.Rules{"earlier": earlier, "later": later}
	e := New(rules)

	if r := e.Evaluate(earlier, model.RequestContext{}); !r.Matched {
		t.Fatalf("expected earlier rule to match, got %+v", r)
	}
	if r := e.Evaluate(later, model.RequestContext{}); r.Matched || r.Reason != ReasonExcluded {
		t.Fatalf("expected later rule naming an already-matched rule in its own exclusions to be excluded, got %+v", r)
	}
}

func TestEvaluate_MissingDependency(t *testing.T) {
	rule := model.Rule{ID: "r1", Enabled: true, DependsOn: []string{"never-matched"}}
	e := New(chain.Rules{"r1": rule})
	result := e.Evaluate(rule, model.RequestContext{})
	if result.Matched || result.Reason != ReasonMissingDeps {
		t.Fatalf("expected missing dependency reason, got %+v", result)
	}
}

func TestEvaluate_DependencySatisfiedByPriorMatch(t *testing.T) {
	dep := model.Rule{ID: "dep", Enabled: true}
	rule := model.Rule{ID: "r1", Enabled: true, DependsOn: []string{"dep"}}
	rules := chain.Rules{"dep": dep, "r1": rule}
	e := New(rules)

	e.Evaluate(dep, model.RequestContext{})
	result := e.Evaluate(rule, model.RequestContext{})
	if !result.Matched {
		t.Fatalf("expected dependency satisfied after prior match, got %+v", result)
	}
}

func TestEvaluate_ChainFailureBeforeConditions(t *testing.T) {
	rule := model.Rule{
		ID:      "r1",
		Enabled: true,
		Chain:   &model.RuleChain{Operator: model.ChainAnd, Items: []model.ChainItem{{RuleID: "missing"}}},
		Conditions: []model.PrimitiveCondition{
			{Type: model.CondAppVersion, Operator: model.OpEq, Value: model.String("1.0")},
		},
	}
	ctx := model.RequestContext{AppVersion: "1.0"}
	e := New(chain.Rules{"r1": rule})
	result := e.Evaluate(rule, ctx)
	if result.Matched || result.Reason != ReasonChainFailed {
		t.Fatalf("expected chain failure to take precedence over conditions, got %+v", result)
	}
}

func TestEvaluate_ConditionsMetOrNotMet(t *testing.T) {
	rule := model.Rule{
		ID:      "r1",
		Enabled: true,
		Conditions: []model.PrimitiveCondition{
			{Type: model.CondAppVersion, Operator: model.OpEq, Value: model.String("1.0")},
		},
	}
	e := New(chain.Rules{"r1": rule})

	if r := e.Evaluate(rule, model.RequestContext{AppVersion: "1.0"}); !r.Matched || r.Reason != ReasonConditionsMet {
		t.Fatalf("expected conditions met, got %+v", r)
	}

	e.Reset()
	if r := e.Evaluate(rule, model.RequestContext{AppVersion: "2.0"}); r.Matched || r.Reason != ReasonConditionsNotMet {
		t.Fatalf("expected conditions not met, got %+v", r)
	}
}

func TestEvaluate_MemoizesPerContext(t *testing.T) {
	rule := model.Rule{
		ID:      "r1",
		Enabled: true,
		Conditions: []model.PrimitiveCondition{
			{Type: model.CondAppVersion, Operator: model.OpEq, Value: model.String("1.0")},
		},
	}
	e := New(chain.Rules{"r1": rule})

	ctx := model.RequestContext{AppVersion: "1.0"}
	first := e.Evaluate(rule, ctx)
	second := e.Evaluate(rule, ctx)
	if first != second {
		t.Fatalf("expected memoized identical results, got %+v vs %+v", first, second)
	}
	if len(e.cache) != 1 {
		t.Fatalf("expected one memoized entry for a repeated (rule, context), got %d", len(e.cache))
	}
	e.Evaluate(rule, model.RequestContext{AppVersion: "2.0"})
	if len(e.cache) != 2 {
		t.Fatalf("expected a different context to get its own memoized entry, got %d", len(e.cache))
	}
}

func TestReset_ClearsMatchedAndCache(t *testing.T) {
	earlier := model.Rule{ID: "earlier", Enabled: true}
	later := model.Rule{ID: "later", Enabled: true, ExcludesRules: []string{"earlier"}}
	rules := chain.Rules{"earlier": earlier, "later": later}
	e := New(rules)

	e.Evaluate(earlier, model.RequestContext{})
	e.Reset()

	result := e.Evaluate(later, model.RequestContext{})
	if !result.Matched {
		t.Fatalf("expected reset to clear prior exclusion state, got %+v", result)
	}
}

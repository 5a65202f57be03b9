// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package resolver orchestrates the full resolution pipeline: look up a
// specification, materialize its rules (composition + conditional
// loading), order them, evaluate each against a request context, and
// fold the matches into the default config.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"remoteconfig/pkg/chain"
	"remoteconfig/pkg/compose"
	"remoteconfig/pkg/evaluator"
	"remoteconfig/pkg/loader"
	"remoteconfig/pkg/merge"
	"remoteconfig/pkg/model"
	"remoteconfig/pkg/schema"
	"remoteconfig/pkg/store"
	"remoteconfig/pkg/topo"
)

// ErrNotFound is returned when no specification is registered for the
// requested (appId, version).
var ErrNotFound = errors.New("resolver: specification not found")

// CompositionError wraps a *compose.Error encountered while materializing
// a specification's rules. On the resolve path this is always a 500: a
// bad composition means the stored specification itself is broken, not
// that the caller's request was invalid.
type CompositionError struct {
	Err error
}

func (e *CompositionError) Error() string { return fmt.Sprintf("resolver: %v", e.Err) }
func (e *CompositionError) Unwrap() error { return e.Err }

// MatchedRule is the minimal public record of a rule that matched a
// request, as surfaced in Response.
type MatchedRule struct {
	ID       string
	Name     string
	Priority int
}

// Response is the result of a single resolution.
type Response struct {
	AppID        string
	Version      string
	Config       model.Value
	MatchedRules []MatchedRule
	Validation   schema.Result
}

// Resolver ties a Store to the rest of the pipeline.
type Resolver struct {
	store store.Store
}

// New returns a Resolver backed by s.
func New(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve runs the full pipeline for one request.
func (r *Resolver) Resolve(ctx context.Context, appID, version string, reqCtx model.RequestContext) (Response, error) {
	spec, err := r.store.Get(ctx, appID, version)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Response{}, ErrNotFound
		}
		return Response{}, err
	}

	composer := compose.New()
	for _, tmpl := range spec.Templates {
		composer.RegisterTemplate(tmpl)
	}

	allRules := make(map[string]model.Rule, len(spec.Rules))
	for _, rule := range spec.Rules {
		allRules[rule.ID] = rule
	}

	materialized := make([]model.Rule, 0, len(spec.Rules))
	materializedIDs := make(map[string]bool, len(spec.Rules))
	for _, rule := range spec.Rules {
		resolved, err := composer.ProcessComposition(rule, allRules)
		if err != nil {
			return Response{}, &CompositionError{Err: err}
		}
		materialized = append(materialized, resolved)
		materializedIDs[resolved.ID] = true
	}

	conditional := loader.New().Load(spec, reqCtx)
	for _, rule := range conditional {
		if materializedIDs[rule.ID] {
			continue
		}
		materialized = append(materialized, rule)
		materializedIDs[rule.ID] = true
	}

	ordered := topo.Sort(materialized)

	ruleSet := make(chain.Rules, len(ordered))
	for _, rule := range ordered {
		ruleSet[rule.ID] = rule
	}

	eval := evaluator.New(ruleSet)
	eval.Reset()

	var matched []model.Rule
	var matchedRecords []MatchedRule
	for _, rule := range ordered {
		result := eval.Evaluate(rule, reqCtx)
		if !result.Matched {
			continue
		}
		matched = append(matched, rule)
		matchedRecords = append(matchedRecords, MatchedRule{
			ID:       rule.ID,
			Name:     rule.Name,
			Priority: rule.Priority,
		})
		if rule.StopPropagation {
			break
		}
	}

	config := spec.DefaultConfig.Clone()
	for _, rule := range matched {
		strategy := rule.ResolutionStrategy
		if strategy == "" {
			strategy = model.StrategyMerge
		}
		if strategy == model.StrategyOverride {
			// Override keeps its right argument, so the rule's config goes
			// there and replaces the running result.
			config = merge.Override(config, rule.Config)
			continue
		}
		config = merge.Merge(strategy, rule.Config, config)
	}

	validation := schema.Validate(spec.Schema, config)

	return Response{
		AppID:        spec.AppID,
		Version:      spec.Version,
		Config:       config,
		MatchedRules: matchedRecords,
		Validation:   validation,
	}, nil
}

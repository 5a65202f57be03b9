// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package compose implements the Rule Composer: template instantiation
// and the three composition modes (extend, compose, mixin) a Rule's
// Composition field may select.
package compose

import (
	"remoteconfig/pkg/merge"
	"remoteconfig/pkg/model"
)

// Overrides carries the scalar fields a caller may selectively set on top
// of a base rule or template. A nil pointer means "inherit the base
// value"; a non-nil pointer (even if it points at a zero value such as
// false or 0) means "use this value instead."
type Overrides struct {
	ID                 string
	Name               *string
	Description        *string
	Priority           *int
	Enabled            *bool
	Conditions         []model.PrimitiveCondition
	HasConditions      bool
	Config             model.Value
	ResolutionStrategy *model.MergeStrategy
	DependsOn          []string
	ExcludesRules      []string
	Tags               []string
	Metadata           model.Value
}

// Composer instantiates and resolves rule compositions against a fixed
// set of templates and sibling rules. A Composer is stateless and safe
// for concurrent read-only use once its template set is registered; per
// the request-scoped design favored here, callers typically build one
// Composer per resolution request rather than holding it for the
// lifetime of the process.
type Composer struct {
	templates map[string]model.Rule
}

// New returns a Composer with no templates registered.
func New() *Composer {
	return &Composer{templates: make(map[string]model.Rule)}
}

// RegisterTemplate makes a rule available as a template instantiation
// source under its own ID.
func (c *Composer) RegisterTemplate(r model.Rule) {
	c.templates[r.ID] = r
}

// CreateFromTemplate materializes a new Rule from a registered template,
// applying overrides on top of it. overrides.ID is required.
func (c *Composer) CreateFromTemplate(templateID string, overrides Overrides) (model.Rule, error) {
	if overrides.ID == "" {
		return model.Rule{}, newErr(TemplateMissingID, "", "overrides.id is required")
	}
	tmpl, ok := c.templates[templateID]
	if !ok {
		return model.Rule{}, newErr(TemplateNotFound, templateID, "template not registered")
	}

	result := model.Rule{
		ID:                 overrides.ID,
		Name:               "Unnamed Rule",
		Priority:           0,
		Conditions:         []model.PrimitiveCondition{},
		ResolutionStrategy: model.StrategyMerge,
		Enabled:            true,
	}

	result.Name = firstNonEmptyStr(overrides.Name, tmpl.Name, "Unnamed Rule")
	result.Description = firstNonEmptyStr(overrides.Description, tmpl.Description, "")
	result.Priority = firstIntOr(overrides.Priority, tmpl.Priority)
	result.Enabled = firstBoolOr(overrides.Enabled, true)
	if overrides.HasConditions {
		result.Conditions = overrides.Conditions
	} else {
		result.Conditions = tmpl.Conditions
	}
	result.ResolutionStrategy = firstStrategyOr(overrides.ResolutionStrategy, tmpl.ResolutionStrategy, model.StrategyMerge)
	result.DependsOn = firstSliceOr(overrides.DependsOn, tmpl.DependsOn)
	result.ExcludesRules = firstSliceOr(overrides.ExcludesRules, tmpl.ExcludesRules)
	result.Tags = firstSliceOr(overrides.Tags, tmpl.Tags)

	result.Config = merge.Deep(overrides.Config, tmpl.Config)
	result.Metadata = merge.Inherit(overrides.Metadata, tmpl.Metadata)
	result.Metadata = result.Metadata.With("createdFromTemplate", model.String(templateID))

	return result, nil
}

// ExtendRule derives a new Rule from base, taking each scalar field from
// overrides when present and falling back to base otherwise. Config is
// deep-merged base-then-overrides (overrides win on conflicting keys).
// Conditions come wholesale from overrides when supplied, never merged
// with base's.
func ExtendRule(base model.Rule, overrides Overrides) model.Rule {
	result := base
	result.ID = overrides.ID
	if result.ID == "" {
		result.ID = base.ID + "-extended"
	}
	if overrides.Name != nil {
		result.Name = *overrides.Name
	}
	if overrides.Description != nil {
		result.Description = *overrides.Description
	}
	if overrides.Priority != nil {
		result.Priority = *overrides.Priority
	}
	if overrides.Enabled != nil {
		result.Enabled = *overrides.Enabled
	}
	if overrides.ResolutionStrategy != nil {
		result.ResolutionStrategy = *overrides.ResolutionStrategy
	}
	if overrides.HasConditions {
		result.Conditions = overrides.Conditions
	} else {
		result.Conditions = base.Conditions
	}
	if overrides.DependsOn != nil {
		result.DependsOn = overrides.DependsOn
	}
	if overrides.ExcludesRules != nil {
		result.ExcludesRules = overrides.ExcludesRules
	}
	if overrides.Tags != nil {
		result.Tags = overrides.Tags
	}

	result.Config = merge.Deep(overrides.Config, base.Config)
	result.Metadata = base.Metadata.With("extendedFrom", model.String(base.ID))
	result.Composition = nil
	return result
}

// ComposeRules folds sources into a single new Rule under strategy. At
// least one source is required.
func ComposeRules(sources []model.Rule, newID string, strategy model.MergeStrategy) (model.Rule, error) {
	if len(sources) == 0 {
		return model.Rule{}, newErr(EmptyComposition, newID, "composition requires at least one source rule")
	}

	result := model.Rule{
		ID:                 newID,
		ResolutionStrategy: strategy,
		Enabled:            true,
	}

	names := make([]string, 0, len(sources))
	maxPriority := sources[0].Priority
	enabled := true
	var conditions []model.PrimitiveCondition
	var config model.Value
	seenDeps := map[string]bool{}
	seenExcl := map[string]bool{}
	seenTags := map[string]bool{}
	composedFrom := make([]model.Value, 0, len(sources))

	for _, src := range sources {
		names = append(names, src.Name)
		if src.Priority > maxPriority {
			maxPriority = src.Priority
		}
		enabled = enabled && src.Enabled
		conditions = append(conditions, src.Conditions...)
		if strategy == model.StrategyOverride {
			// Override keeps its right argument: the source replaces the
			// running config.
			config = merge.Override(config, src.Config)
		} else {
			config = merge.Merge(strategy, src.Config, config)
		}

		for _, dep := range src.DependsOn {
			if !seenDeps[dep] {
				seenDeps[dep] = true
				result.DependsOn = append(result.DependsOn, dep)
			}
		}
		for _, ex := range src.ExcludesRules {
			if !seenExcl[ex] {
				seenExcl[ex] = true
				result.ExcludesRules = append(result.ExcludesRules, ex)
			}
		}
		for _, tag := range src.Tags {
			if !seenTags[tag] {
				seenTags[tag] = true
				result.Tags = append(result.Tags, tag)
			}
		}
		composedFrom = append(composedFrom, model.String(src.ID))
	}

	result.Name = joinNames(names)
	result.Description = "Composed from " + joinNames(names)
	result.Priority = maxPriority
	result.Enabled = enabled
	result.Conditions = conditions
	result.Config = config
	result.Metadata = model.Object(
		model.KV{Key: "composedFrom", Value: model.Array(composedFrom...)},
		model.KV{Key: "compositionStrategy", Value: model.String(string(strategy))},
	)

	return result, nil
}

// ApplyMixin merges mixin's config, conditions, and tags onto target,
// always appending the sentinel "mixed" tag once, and recording the
// mixin application in target's metadata.
func ApplyMixin(target, mixin model.Rule) model.Rule {
	result := target
	result.Config = merge.Deep(mixin.Config, target.Config)
	result.Conditions = append(append([]model.PrimitiveCondition{}, target.Conditions...), mixin.Conditions...)

	tags := append([]string{}, target.Tags...)
	seen := map[string]bool{}
	for _, t := range tags {
		seen[t] = true
	}
	for _, t := range mixin.Tags {
		if !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	if !seen["mixed"] {
		tags = append(tags, "mixed")
	}
	result.Tags = tags

	mixins, _ := target.Metadata.Get("mixins")
	mixins = model.Array(append(append([]model.Value{}, mixins.Array...), model.String(mixin.ID))...)
	result.Metadata = target.Metadata.With("mixins", mixins)
	return result
}

// ProcessComposition resolves rule's Composition against allRules,
// recursively resolving any composition the referenced rules themselves
// carry, with cycle detection. Unknown ids in a compose source list are
// an error; unknown ids in a mixin list are silently skipped.
func (c *Composer) ProcessComposition(rule model.Rule, allRules map[string]model.Rule) (model.Rule, error) {
	return c.resolve(rule, allRules, map[string]bool{})
}

func (c *Composer) resolve(rule model.Rule, allRules map[string]model.Rule, visiting map[string]bool) (model.Rule, error) {
	if rule.Composition == nil {
		return rule, nil
	}
	if visiting[rule.ID] {
		return model.Rule{}, newErr(CompositionCycle, rule.ID, "cyclic composition detected")
	}
	visiting[rule.ID] = true
	defer delete(visiting, rule.ID)

	comp := rule.Composition
	switch comp.Type {
	case model.CompositionExtend:
		if comp.BaseID == "" {
			return model.Rule{}, newErr(MissingBaseRuleID, rule.ID, "extend composition requires baseId")
		}
		base, ok := allRules[comp.BaseID]
		if !ok {
			return model.Rule{}, newErr(BaseRuleNotFound, comp.BaseID, "base rule not found")
		}
		resolvedBase, err := c.resolve(base, allRules, visiting)
		if err != nil {
			return model.Rule{}, err
		}
		overrides := overridesFromRule(rule, comp)
		return ExtendRule(resolvedBase, overrides), nil

	case model.CompositionCompose:
		if len(comp.SourceIDs) == 0 {
			return model.Rule{}, newErr(MissingSourceRuleIDs, rule.ID, "compose composition requires sourceIds")
		}
		sources := make([]model.Rule, 0, len(comp.SourceIDs))
		for _, id := range comp.SourceIDs {
			src, ok := allRules[id]
			if !ok {
				return model.Rule{}, newErr(SourceRuleNotFound, id, "source rule not found")
			}
			resolvedSrc, err := c.resolve(src, allRules, visiting)
			if err != nil {
				return model.Rule{}, err
			}
			sources = append(sources, resolvedSrc)
		}
		strategy := rule.ResolutionStrategy
		if strategy == "" {
			strategy = model.StrategyMerge
		}
		return ComposeRules(sources, rule.ID, strategy)

	case model.CompositionMixin:
		result := rule
		result.Composition = nil
		for _, id := range comp.MixinIDs {
			mixin, ok := allRules[id]
			if !ok {
				continue // unknown mixin ids are silently skipped
			}
			resolvedMixin, err := c.resolve(mixin, allRules, visiting)
			if err != nil {
				return model.Rule{}, err
			}
			result = ApplyMixin(result, resolvedMixin)
		}
		return result, nil

	default:
		return rule, nil
	}
}

// overridesFromRule builds the mergedOverrides an extend composition
// applies to its base: the composition-bearing rule itself, overlaid
// with any scalar fields comp.Overrides sets explicitly. The rule's own
// fields are the starting point, not the base rule's and not nothing —
// comp.Overrides only refines what the rule itself already carries.
func overridesFromRule(rule model.Rule, comp *model.Composition) Overrides {
	merged := rule
	if comp.Overrides != nil {
		o := *comp.Overrides
		if o.Name != "" {
			merged.Name = o.Name
		}
		if o.Description != "" {
			merged.Description = o.Description
		}
		if o.Priority != 0 {
			merged.Priority = o.Priority
		}
		if o.Enabled {
			merged.Enabled = o.Enabled
		}
		if len(o.Conditions) > 0 {
			merged.Conditions = o.Conditions
		}
		if o.ResolutionStrategy != "" {
			merged.ResolutionStrategy = o.ResolutionStrategy
		}
		if o.DependsOn != nil {
			merged.DependsOn = o.DependsOn
		}
		if o.ExcludesRules != nil {
			merged.ExcludesRules = o.ExcludesRules
		}
		if o.Tags != nil {
			merged.Tags = o.Tags
		}
		if !o.Config.IsNull() {
			merged.Config = o.Config
		}
		if !o.Metadata.IsNull() {
			merged.Metadata = o.Metadata
		}
	}

	name := merged.Name
	desc := merged.Description
	prio := merged.Priority
	enabled := merged.Enabled
	strategy := merged.ResolutionStrategy
	return Overrides{
		ID:                 rule.ID,
		Name:               &name,
		Description:        &desc,
		Priority:           &prio,
		Enabled:            &enabled,
		Conditions:         merged.Conditions,
		HasConditions:      len(merged.Conditions) > 0,
		Config:             merged.Config,
		ResolutionStrategy: &strategy,
		DependsOn:          merged.DependsOn,
		ExcludesRules:      merged.ExcludesRules,
		Tags:               merged.Tags,
		Metadata:           merged.Metadata,
	}
}

func firstNonEmptyStr(override *string, base, fallback string) string {
	if override != nil {
		return *override
	}
	if base != "" {
		return base
	}
	return fallback
}

func firstIntOr(override *int, base int) int {
	if override != nil {
		return *override
	}
	return base
}

func firstBoolOr(override *bool, fallback bool) bool {
	if override != nil {
		return *override
	}
	return fallback
}

func firstStrategyOr(override *model.MergeStrategy, base, fallback model.MergeStrategy) model.MergeStrategy {
	if override != nil {
		return *override
	}
	if base != "" {
		return base
	}
	return fallback
}

func firstSliceOr[T any](override, base []T) []T {
	if override != nil {
		return override
	}
	return base
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += " + "
		}
		out += n
	}
	return out
}

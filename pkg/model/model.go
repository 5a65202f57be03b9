// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package model

import "time"

// MergeStrategy names one of the Value Merger's three strategies.
type MergeStrategy string

const (
	StrategyMerge    MergeStrategy = "merge"
	StrategyOverride MergeStrategy = "override"
	StrategyInherit  MergeStrategy = "inherit"
)

// ConditionOperator names one of the primitive condition operators.
type ConditionOperator string

const (
	OpEq    ConditionOperator = "eq"
	OpNe    ConditionOperator = "ne"
	OpGt    ConditionOperator = "gt"
	OpLt    ConditionOperator = "lt"
	OpGte   ConditionOperator = "gte"
	OpLte   ConditionOperator = "lte"
	OpIn    ConditionOperator = "in"
	OpRegex ConditionOperator = "regex"
)

// ConditionType names one of the primitive condition's recognized fields.
type ConditionType string

const (
	CondAppVersion    ConditionType = "app_version"
	CondOS            ConditionType = "os"
	CondDevice        ConditionType = "device"
	CondGeoCountry    ConditionType = "geo_country"
	CondGeoRegion     ConditionType = "geo_region"
	CondTimeAfter     ConditionType = "time_after"
	CondTimeBefore    ConditionType = "time_before"
	CondUserAgentMatch ConditionType = "user_agent_match"
)

// PrimitiveCondition is the smallest evaluable unit of a Rule's targeting.
type PrimitiveCondition struct {
	Type     ConditionType     `json:"type"`
	Operator ConditionOperator `json:"operator"`
	Value    Value             `json:"value"`
}

// ChainOperator names a boolean combinator over a RuleChain's Items.
type ChainOperator string

const (
	ChainAnd ChainOperator = "AND"
	ChainOr  ChainOperator = "OR"
	ChainNot ChainOperator = "NOT"
	ChainXor ChainOperator = "XOR"
)

// ChainItem is either a bare rule id (string) or a nested RuleChain.
// Exactly one of RuleID / Chain is set.
type ChainItem struct {
	RuleID string
	Chain  *RuleChain
}

// RuleChain combines rule ids and nested chains with a boolean operator.
type RuleChain struct {
	Operator ChainOperator `json:"operator"`
	Items    []ChainItem   `json:"items"`
}

// CompositionType names one of the Rule Composer's composition modes.
type CompositionType string

const (
	CompositionExtend  CompositionType = "extend"
	CompositionCompose CompositionType = "compose"
	CompositionMixin   CompositionType = "mixin"
)

// Composition describes how a Rule is derived from other rules/templates.
type Composition struct {
	Type      CompositionType `json:"type"`
	BaseID    string          `json:"baseId,omitempty"`
	SourceIDs []string        `json:"sourceIds,omitempty"`
	MixinIDs  []string        `json:"mixinIds,omitempty"`
	Overrides *Rule           `json:"overrides,omitempty"`
}

// LoadConditionType names one of the Conditional Loader's gate kinds.
type LoadConditionType string

const (
	LoadEnvironment      LoadConditionType = "environment"
	LoadFeatureFlag      LoadConditionType = "feature_flag"
	LoadPercentageRollout LoadConditionType = "percentage_rollout"
	LoadCustom           LoadConditionType = "custom"
)

// LoadCondition gates whether a ConditionalRule's underlying Rule is
// materialized into the evaluation set for a given request.
type LoadCondition struct {
	Type        LoadConditionType `json:"type"`
	Environment string            `json:"environment,omitempty"`
	FlagName    string            `json:"flagName,omitempty"`
	Percentage  float64           `json:"percentage,omitempty"`
	CustomKey   string            `json:"customKey,omitempty"`
	CustomValue Value             `json:"customValue,omitempty"`
}

// ConditionalRule wraps a Rule behind one or more LoadConditions, all of
// which must pass (AND) for Rule to enter the evaluation set.
type ConditionalRule struct {
	Rule           Rule            `json:"rule"`
	LoadConditions []LoadCondition `json:"loadConditions"`
}

// Rule is a single unit of configuration targeting and payload.
type Rule struct {
	ID                 string               `json:"id"`
	Name               string               `json:"name"`
	Description        string               `json:"description,omitempty"`
	Priority           int                  `json:"priority"`
	Enabled            bool                 `json:"enabled"`
	Conditions         []PrimitiveCondition `json:"conditions"`
	Chain              *RuleChain           `json:"chain,omitempty"`
	Config             Value                `json:"config"`
	ResolutionStrategy MergeStrategy        `json:"resolutionStrategy"`
	DependsOn          []string             `json:"dependsOn,omitempty"`
	ExcludesRules      []string             `json:"excludesRules,omitempty"`
	Tags               []string             `json:"tags,omitempty"`
	ExecuteAfter       []string             `json:"executeAfter,omitempty"`
	ExecuteBefore      []string             `json:"executeBefore,omitempty"`
	StopPropagation    bool                 `json:"stopPropagation,omitempty"`
	IsTemplate         bool                 `json:"isTemplate,omitempty"`
	Composition        *Composition         `json:"composition,omitempty"`
	Metadata           Value                `json:"metadata,omitempty"`
}

// Schema declares required/optional/deprecated top-level keys for a
// Specification's defaultConfig.
type Schema struct {
	Required   []string `json:"required,omitempty"`
	Optional   []string `json:"optional,omitempty"`
	Deprecated []string `json:"deprecated,omitempty"`
}

// Specification is a versioned configuration bundle for one (appId,
// version) pair: a default config, a schema to validate against, and the
// rules (direct, conditional and templates) that may modify it.
type Specification struct {
	ID                 string             `json:"id"`
	AppID              string             `json:"appId"`
	Version            string             `json:"version"`
	Environment        string             `json:"environment,omitempty"`
	DefaultConfig      Value              `json:"defaultConfig"`
	Schema             Schema             `json:"schema"`
	Rules              []Rule             `json:"rules"`
	ConditionalRules   []ConditionalRule  `json:"conditionalRules,omitempty"`
	Templates          []Rule             `json:"templates,omitempty"`
	FeatureFlags       map[string]bool    `json:"featureFlags,omitempty"`
	RolloutPercentages map[string]float64 `json:"rolloutPercentages,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// ClientGeo is geolocation information supplied directly by the client,
// which takes precedence over any IP-derived lookup.
type ClientGeo struct {
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
}

// ParsedUserAgent is the result of the external UserAgent parser
// collaborator for a single request's User-Agent header.
type ParsedUserAgent struct {
	OS     OSInfo     `json:"os"`
	Device DeviceInfo `json:"device"`
}

// OSInfo is the operating system component of a parsed user agent.
type OSInfo struct {
	Name string `json:"name,omitempty"`
}

// DeviceInfo is the device component of a parsed user agent.
type DeviceInfo struct {
	Type string `json:"type,omitempty"`
}

// RequestContext is the fully assembled per-request context the
// pipeline evaluates rules against.
type RequestContext struct {
	AppVersion     string
	OS             string
	Device         string
	UserAgent      string
	ClientGeo      *ClientGeo
	GeoCountry     string
	GeoRegion      string
	TimestampMs    int64
	UserID         string
	FeatureFlags   map[string]bool
	Environment    string
	CustomContext  Value
	ParsedUA       *ParsedUserAgent
}

// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package specfile loads human-authored specification bundles from YAML
// files on disk, for bulk/offline provisioning of a Store (the "import"
// CLI command) rather than the request-time JSON wire format of §6.
package specfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"remoteconfig/pkg/model"
)

// Bundle is the on-disk YAML shape: a list of specifications, each with
// its config and rules expressed as plain YAML (decoded into the
// document Value type, not a fixed struct).
type Bundle struct {
	Specifications []bundleSpec `yaml:"specifications"`
}

type bundleSpec struct {
	AppID         string         `yaml:"appId"`
	Version       string         `yaml:"version"`
	DefaultConfig map[string]any `yaml:"defaultConfig"`
	Schema        bundleSchema   `yaml:"schema"`
	Rules         []bundleRule   `yaml:"rules"`
}

type bundleSchema struct {
	Required   []string `yaml:"required"`
	Optional   []string `yaml:"optional"`
	Deprecated []string `yaml:"deprecated"`
}

type bundleRule struct {
	ID                 string                 `yaml:"id"`
	Name               string                 `yaml:"name"`
	Priority           int                    `yaml:"priority"`
	Enabled            bool                   `yaml:"enabled"`
	ResolutionStrategy string                 `yaml:"resolutionStrategy"`
	Config             map[string]any         `yaml:"config"`
}

// Load reads path as a YAML Bundle and converts it into Specifications
// ready to hand to a Store.
func Load(path string) ([]model.Specification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("specfile: read %s: %w", path, err)
	}

	var bundle Bundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("specfile: parse %s: %w", path, err)
	}

	out := make([]model.Specification, 0, len(bundle.Specifications))
	for _, bs := range bundle.Specifications {
		spec := model.Specification{
			AppID:         bs.AppID,
			Version:       bs.Version,
			DefaultConfig: toValue(bs.DefaultConfig),
			Schema: model.Schema{
				Required:   bs.Schema.Required,
				Optional:   bs.Schema.Optional,
				Deprecated: bs.Schema.Deprecated,
			},
		}
		for _, br := range bs.Rules {
			strategy := model.MergeStrategy(br.ResolutionStrategy)
			if strategy == "" {
				strategy = model.StrategyMerge
			}
			spec.Rules = append(spec.Rules, model.Rule{
				ID:                 br.ID,
				Name:               br.Name,
				Priority:           br.Priority,
				Enabled:            br.Enabled,
				ResolutionStrategy: strategy,
				Config:             toValue(br.Config),
			})
		}
		out = append(out, spec)
	}
	return out, nil
}

func toValue(m map[string]any) model.Value {
	if m == nil {
		return model.Null()
	}
	pairs := make([]model.KV, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, model.KV{Key: k, Value: fromAny(v)})
	}
	return model.Value{Kind: model.KindObject, Object: pairs}
}

func fromAny(v any) model.Value {
	switch t := v.(type) {
	case nil:
		return model.Null()
	case bool:
		return model.Bool(t)
	case int:
		return model.Number(float64(t))
	case float64:
		return model.Number(t)
	case string:
		return model.String(t)
	case []any:
		items := make([]model.Value, len(t))
		for i, item := range t {
			items[i] = fromAny(item)
		}
		return model.Array(items...)
	case map[string]any:
		return toValue(t)
	default:
		return model.Null()
	}
}

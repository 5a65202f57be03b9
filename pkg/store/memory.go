// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"remoteconfig/pkg/model"
)

// Memory is an in-memory Store, safe for concurrent reads and a single
// concurrent writer at a time.
type Memory struct {
	mu   sync.RWMutex
	specs map[string]model.Specification
	now   func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		specs: make(map[string]model.Specification),
		now:   time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, appID, version string) (model.Specification, error) {
	if err := ctx.Err(); err != nil {
		return model.Specification{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	spec, ok := m.specs[key(appID, version)]
	if !ok {
		return model.Specification{}, ErrNotFound
	}
	return cloneSpec(spec), nil
}

func (m *Memory) List(ctx context.Context) ([]model.Specification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Specification, 0, len(m.specs))
	for _, spec := range m.specs {
		out = append(out, cloneSpec(spec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppID != out[j].AppID {
			return out[i].AppID < out[j].AppID
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

func (m *Memory) Save(ctx context.Context, spec model.Specification) (model.Specification, error) {
	if err := ctx.Err(); err != nil {
		return model.Specification{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(spec.AppID, spec.Version)
	existing, exists := m.specs[k]

	if spec.ID == "" {
		if exists {
			spec.ID = existing.ID
		} else {
			spec.ID = uuid.NewString()
		}
	}
	if exists {
		spec.CreatedAt = existing.CreatedAt
	} else if spec.CreatedAt.IsZero() {
		spec.CreatedAt = m.now()
	}
	spec.UpdatedAt = m.now()

	m.specs[k] = cloneSpec(spec)
	return cloneSpec(spec), nil
}

func (m *Memory) Delete(ctx context.Context, appID, version string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(appID, version)
	if _, ok := m.specs[k]; !ok {
		return ErrNotFound
	}
	delete(m.specs, k)
	return nil
}

// cloneSpec deep-copies spec's Value-typed fields so callers cannot
// mutate what the store holds through a returned reference.
func cloneSpec(spec model.Specification) model.Specification {
	out := spec
	out.DefaultConfig = spec.DefaultConfig.Clone()
	out.Rules = make([]model.Rule, len(spec.Rules))
	for i, r := range spec.Rules {
		out.Rules[i] = cloneRule(r)
	}
	out.ConditionalRules = make([]model.ConditionalRule, len(spec.ConditionalRules))
	for i, cr := range spec.ConditionalRules {
		out.ConditionalRules[i] = model.ConditionalRule{
			Rule:           cloneRule(cr.Rule),
			LoadConditions: append([]model.LoadCondition{}, cr.LoadConditions...),
		}
	}
	out.Templates = make([]model.Rule, len(spec.Templates))
	for i, r := range spec.Templates {
		out.Templates[i] = cloneRule(r)
	}
	return out
}

func cloneRule(r model.Rule) model.Rule {
	out := r
	out.Config = r.Config.Clone()
	out.Metadata = r.Metadata.Clone()
	out.Conditions = append([]model.PrimitiveCondition{}, r.Conditions...)
	out.DependsOn = append([]string{}, r.DependsOn...)
	out.ExcludesRules = append([]string{}, r.ExcludesRules...)
	out.Tags = append([]string{}, r.Tags...)
	out.ExecuteAfter = append([]string{}, r.ExecuteAfter...)
	out.ExecuteBefore = append([]string{}, r.ExecuteBefore...)
	return out
}

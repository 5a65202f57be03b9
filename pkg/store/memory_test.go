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
	"errors"
	"testing"

	"remoteconfig/pkg/model"
)

func TestMemory_SaveThenGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	saved, err := m.Save(ctx, model.Specification{AppID: "app1", Version: "1.0.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("expected generated id")
	}

	got, err := m.Get(ctx, "app1", "1.0.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != saved.ID {
		t.Fatalf("expected round-tripped id to match")
	}
}

func TestMemory_GetMissingReturnsErrNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), "missing", "1.0.0")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_SavePreservesCreatedAtAcrossUpdates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first, _ := m.Save(ctx, model.Specification{AppID: "app1", Version: "1.0.0"})
	second, err := m.Save(ctx, model.Specification{AppID: "app1", Version: "1.0.0", DefaultConfig: model.Object(model.KV{Key: "a", Value: model.Number(1)})})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("expected createdAt to be preserved across updates")
	}
	if second.ID != first.ID {
		t.Fatalf("expected id to be preserved across updates")
	}
}

func TestMemory_ListIsSortedByAppIDThenVersion(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Save(ctx, model.Specification{AppID: "b", Version: "1.0.0"})
	m.Save(ctx, model.Specification{AppID: "a", Version: "2.0.0"})
	m.Save(ctx, model.Specification{AppID: "a", Version: "1.0.0"})

	list, err := m.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 specs, got %d", len(list))
	}
	if list[0].AppID != "a" || list[0].Version != "1.0.0" {
		t.Fatalf("expected sorted order, got %+v", list)
	}
	if list[1].AppID != "a" || list[1].Version != "2.0.0" {
		t.Fatalf("expected sorted order, got %+v", list)
	}
	if list[2].AppID != "b" {
		t.Fatalf("expected sorted order, got %+v", list)
	}
}

func TestMemory_DeleteMissingReturnsErrNotFound(t *testing.T) {
	m := NewMemory()
	err := m.Delete(context.Background(), "missing", "1.0.0")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_DeleteThenGetFails(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Save(ctx, model.Specification{AppID: "app1", Version: "1.0.0"})

	if err := m.Delete(ctx, "app1", "1.0.0"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, err := m.Get(ctx, "app1", "1.0.0"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemory_GetReturnsACloneNotSharedState(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Save(ctx, model.Specification{
		AppID:         "app1",
		Version:       "1.0.0",
		DefaultConfig: model.Object(model.KV{Key: "a", Value: model.Number(1)}),
	})

	got, _ := m.Get(ctx, "app1", "1.0.0")
	got.DefaultConfig = got.DefaultConfig.With("a", model.Number(999))

	got2, _ := m.Get(ctx, "app1", "1.0.0")
	v, _ := got2.DefaultConfig.Get("a")
	if v.Number != 1 {
		t.Fatalf("expected stored spec to be unaffected by mutation of a returned clone, got %v", v.Number)
	}
}

func TestMemory_RespectsCancelledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Get(ctx, "app1", "1.0.0"); err == nil {
		t.Fatalf("expected cancelled context to produce an error")
	}
}

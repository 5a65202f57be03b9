// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package merge

import (
	"testing"

	"remoteconfig/pkg/model"
)

func TestDeep_RecursesIntoNestedObjects(t *testing.T) {
	left := model.Object(
		model.KV{Key: "ui", Value: model.Object(model.KV{Key: "theme", Value: model.String("dark")})},
	)
	right := model.Object(
		model.KV{Key: "ui", Value: model.Object(model.KV{Key: "theme", Value: model.String("light")}, model.KV{Key: "fontSize", Value: model.Number(12)})},
	)

	result := Deep(left, right)
	ui, _ := result.Get("ui")
	theme, _ := ui.Get("theme")
	if theme.Str != "dark" {
		t.Fatalf("expected left's theme to win, got %q", theme.Str)
	}
	fontSize, ok := ui.Get("fontSize")
	if !ok || fontSize.Number != 12 {
		t.Fatalf("expected right's fontSize to be preserved, got %+v ok=%v", fontSize, ok)
	}
}

func TestDeep_ArraysReplaceAtomically(t *testing.T) {
	left := model.Object(model.KV{Key: "tags", Value: model.Array(model.String("a"))})
	right := model.Object(model.KV{Key: "tags", Value: model.Array(model.String("b"), model.String("c"))})

	result := Deep(left, right)
	tags, _ := result.Get("tags")
	if len(tags.Array) != 1 || tags.Array[0].Str != "a" {
		t.Fatalf("expected array to be replaced atomically, got %+v", tags.Array)
	}
}

func TestOverride_DiscardsLeft(t *testing.T) {
	left := model.Object(model.KV{Key: "a", Value: model.Number(1)})
	right := model.Object(model.KV{Key: "b", Value: model.Number(2)})

	result := Override(left, right)
	if result.Has("a") {
		t.Fatalf("override must not retain left's keys")
	}
	if !result.Has("b") {
		t.Fatalf("override must be right's value")
	}
}

func TestInherit_IsShallowNotRecursive(t *testing.T) {
	left := model.Object(
		model.KV{Key: "ui", Value: model.Object(model.KV{Key: "theme", Value: model.String("dark")})},
	)
	right := model.Object(
		model.KV{Key: "ui", Value: model.Object(model.KV{Key: "theme", Value: model.String("light")}, model.KV{Key: "fontSize", Value: model.Number(12)})},
		model.KV{Key: "other", Value: model.String("kept")},
	)

	result := Inherit(left, right)
	ui, _ := result.Get("ui")
	// Inherit replaces the whole "ui" value wholesale with left's, unlike Deep.
	if ui.Has("fontSize") {
		t.Fatalf("inherit must not recurse into nested objects")
	}
	theme, _ := ui.Get("theme")
	if theme.Str != "dark" {
		t.Fatalf("expected left's ui to win wholesale, got %+v", ui)
	}
	if other, ok := result.Get("other"); !ok || other.Str != "kept" {
		t.Fatalf("expected right-only keys to be preserved")
	}
}

func TestMerge_DispatchesByStrategy(t *testing.T) {
	left := model.Object(model.KV{Key: "a", Value: model.Number(1)})
	right := model.Object(model.KV{Key: "b", Value: model.Number(2)})

	if got := Merge(model.StrategyOverride, left, right); got.Has("a") {
		t.Fatalf("expected override dispatch")
	}
	if got := Merge(model.StrategyMerge, left, right); !got.Has("a") || !got.Has("b") {
		t.Fatalf("expected merge dispatch to deep merge, got %+v", got)
	}
}

func TestDeep_DoesNotMutateInputs(t *testing.T) {
	left := model.Object(model.KV{Key: "a", Value: model.Number(1)})
	right := model.Object(model.KV{Key: "a", Value: model.Number(2)})

	_ = Deep(left, right)

	if v, _ := left.Get("a"); v.Number != 1 {
		t.Fatalf("left mutated")
	}
	if v, _ := right.Get("a"); v.Number != 2 {
		t.Fatalf("right mutated")
	}
}

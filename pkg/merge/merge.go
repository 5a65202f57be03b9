// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package merge implements the three configuration merge strategies used
// when folding a matched rule's config into a specification's running
// result: merge (deep), override (full replace), inherit (shallow,
// left-wins overlay).
package merge

import "remoteconfig/pkg/model"

// Merge combines left and right under the named strategy and returns a
// new Value. Neither input is mutated.
func Merge(strategy model.MergeStrategy, left, right model.Value) model.Value {
	switch strategy {
	case model.StrategyOverride:
		return Override(left, right)
	case model.StrategyInherit:
		return Inherit(left, right)
	case model.StrategyMerge:
		fallthrough
	default:
		return Deep(left, right)
	}
}

// Override returns a clone of right only; left is discarded entirely.
func Override(_ model.Value, right model.Value) model.Value {
	return right.Clone()
}

// Inherit overlays left's top-level keys onto right, left winning on
// collision. Unlike Deep, it never recurses into nested objects: a key
// present in both is replaced wholesale by left's value, not merged
// further down.
func Inherit(left, right model.Value) model.Value {
	if left.Kind != model.KindObject && right.Kind != model.KindObject {
		if left.IsNull() {
			return right.Clone()
		}
		return left.Clone()
	}
	if left.Kind != model.KindObject {
		return right.Clone()
	}
	if right.Kind != model.KindObject {
		return left.Clone()
	}

	result := right.Clone()
	for _, kv := range left.Object {
		result = result.With(kv.Key, kv.Value.Clone())
	}
	return result
}

// Deep recursively merges left into right: where both sides hold an
// object at the same key, the objects are merged key-by-key; otherwise
// left's value replaces right's. Arrays are replaced atomically and are
// never concatenated, even when both sides are arrays.
func Deep(left, right model.Value) model.Value {
	if left.IsNull() {
		return right.Clone()
	}
	if right.IsNull() {
		return left.Clone()
	}
	if left.Kind != model.KindObject || right.Kind != model.KindObject {
		return left.Clone()
	}

	result := right.Clone()
	for _, kv := range left.Object {
		existing, ok := result.Get(kv.Key)
		if ok && existing.Kind == model.KindObject && kv.Value.Kind == model.KindObject {
			result = result.With(kv.Key, Deep(kv.Value, existing))
			continue
		}
		result = result.With(kv.Key, kv.Value.Clone())
	}
	return result
}

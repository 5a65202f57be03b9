// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package topo orders a set of rules by their executeAfter/executeBefore
// edges, breaking ties by descending priority.
package topo

import (
	"sort"

	"remoteconfig/pkg/model"
)

// Sort returns rules ordered so that every executeAfter/executeBefore
// edge is respected, using Kahn's algorithm with a ready queue that is
// re-sorted by descending priority after every pop. Rules participating
// in a cycle cannot be topologically placed; they are appended at the
// end, in their original input order, rather than causing a deadlock.
func Sort(rules []model.Rule) []model.Rule {
	n := len(rules)
	index := make(map[string]int, n)
	for i, r := range rules {
		index[r.ID] = i
	}

	// indegree[i] counts edges "must run before i".
	indegree := make([]int, n)
	// adj[i] lists nodes that must run after i.
	adj := make([][]int, n)

	addEdge := func(beforeID, afterID string) {
		bi, bok := index[beforeID]
		ai, aok := index[afterID]
		if !bok || !aok || bi == ai {
			return
		}
		adj[bi] = append(adj[bi], ai)
		indegree[ai]++
	}

	for i, r := range rules {
		for _, dep := range r.ExecuteAfter {
			addEdge(dep, r.ID) // dep must run before r
		}
		for _, dep := range r.ExecuteBefore {
			addEdge(r.ID, dep) // r must run before dep
		}
		_ = i
	}

	remaining := make([]bool, n)
	for i := range remaining {
		remaining[i] = true
	}

	var ready []int
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	sortByPriority := func(ids []int) {
		sort.SliceStable(ids, func(a, b int) bool {
			return rules[ids[a]].Priority > rules[ids[b]].Priority
		})
	}

	result := make([]model.Rule, 0, n)
	placed := make([]bool, n)

	sortByPriority(ready)
	for len(ready) > 0 {
		idx := ready[0]
		ready = ready[1:]
		result = append(result, rules[idx])
		placed[idx] = true
		remaining[idx] = false

		for _, next := range adj[idx] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
		sortByPriority(ready)
	}

	for i := 0; i < n; i++ {
		if !placed[i] {
			result = append(result, rules[i])
		}
	}

	return result
}

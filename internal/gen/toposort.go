package gen

import (
	"slices"
	"sort"

	"suigen/internal/move"
	"suigen/internal/typemap"
)

// orderModels sorts models dependencies first. Models are pre-sorted by name
// so ties and cycles resolve the same way every run.
func orderModels(models []Model) []Model {
	sortByName(models)

	out := make([]Model, 0, len(models))
	for _, i := range dependencyOrder(modelDeps(models)) {
		out = append(out, models[i])
	}

	return out
}

// modelDeps lists, per model, the distinct indices of the other models its
// fields reference.
func modelDeps(models []Model) [][]int {
	index := make(map[move.QualifiedKey]int, len(models))
	for i, m := range models {
		index[m.Key] = i
	}

	deps := make([][]int, len(models))

	for i, m := range models {
		seen := make(map[int]bool)

		for _, f := range m.Fields {
			f.Type.Walk(func(x typemap.Expr) {
				if x.Kind != typemap.KindNamed || x.Ref == nil {
					return
				}

				j, ok := index[move.KeyOf(x.Ref)]
				if !ok || j == i || seen[j] {
					return
				}

				seen[j] = true
				deps[i] = append(deps[i], j)
			})
		}
	}

	return deps
}

// dependencyOrder returns every index exactly once, after the indices it
// depends on. Among ready indices the smallest goes first. When only cycles
// remain, one member of the cycle reached from the smallest pending index is
// released early and ordering continues from there.
func dependencyOrder(deps [][]int) []int {
	n := len(deps)
	pending := make([]int, n)
	users := make([][]int, n)

	for i, ds := range deps {
		for _, d := range ds {
			pending[i]++
			users[d] = append(users[d], i)
		}
	}

	var ready []int

	for i := 0; i < n; i++ {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	placed := make([]bool, n)
	order := make([]int, 0, n)

	release := func(i int) {
		placed[i] = true
		order = append(order, i)

		for _, u := range users[i] {
			pending[u]--
			if pending[u] == 0 && !placed[u] {
				k, _ := slices.BinarySearch(ready, u)
				ready = slices.Insert(ready, k, u)
			}
		}
	}

	next := 0

	for len(order) < n {
		if len(ready) > 0 {
			i := ready[0]
			ready = ready[1:]
			release(i)

			continue
		}

		for placed[next] {
			next++
		}

		release(cycleMember(next, deps, placed))
	}

	return order
}

// cycleMember follows the smallest unplaced dependency from start until an
// index repeats; that index lies on a cycle. Every pending index has at
// least one unplaced dependency.
func cycleMember(start int, deps [][]int, placed []bool) int {
	seen := make(map[int]bool)

	i := start
	for !seen[i] {
		seen[i] = true

		next := -1

		for _, d := range deps[i] {
			if !placed[d] && (next < 0 || d < next) {
				next = d
			}
		}

		i = next
	}

	return i
}

func sortByName(models []Model) {
	sort.SliceStable(models, func(i, j int) bool {
		return models[i].Name < models[j].Name
	})
}

func sortEvents(events []ManifestEvent) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Type < events[j].Type
	})
}

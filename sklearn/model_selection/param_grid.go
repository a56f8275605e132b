package model_selection

import (
	"sort"

	"github.com/YuminosukeSato/studentperf/core/model"
)

// Grid maps a hyperparameter name to the values to try.
type Grid map[string][]interface{}

// Copy returns a copy of g with fresh value slices.
func (g Grid) Copy() Grid {
	out := make(Grid, len(g))
	for k, v := range g {
		out[k] = append([]interface{}(nil), v...)
	}
	return out
}

// Size is the number of combinations ParameterGrid yields.
func (g Grid) Size() int {
	n := 1
	for _, v := range g {
		n *= len(v)
	}
	return n
}

// ParameterGrid expands g into every combination, ordered like
// scikit-learn's ParameterGrid: keys sorted, the last key varying fastest.
// An empty grid yields a single empty Params.
func ParameterGrid(g Grid) []model.Params {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []model.Params{{}}
	for _, k := range keys {
		next := make([]model.Params, 0, len(out)*len(g[k]))
		for _, p := range out {
			for _, v := range g[k] {
				c := p.Copy()
				c[k] = v
				next = append(next, c)
			}
		}
		out = next
	}
	return out
}

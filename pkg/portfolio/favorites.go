package portfolio

import (
	"errors"
	"slices"
)

// ErrNotPermutation is returned when a favorites reorder adds or drops ids.
var ErrNotPermutation = errors.New("portfolio: favorites order must be a permutation of the current favorites")

// Reorder moves the element at from to position to and returns the new list.
// Out-of-range indices return an unchanged copy.
func Reorder(list []string, from, to int) []string {
	out := slices.Clone(list)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	id := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, id)
}

// Toggle adds id to the end of list or removes it if present. added reports
// which happened.
func Toggle(list []string, id string) (out []string, added bool) {
	if i := slices.Index(list, id); i >= 0 {
		return slices.Delete(slices.Clone(list), i, i+1), false
	}
	return append(slices.Clone(list), id), true
}

// IsPermutation reports whether a and b hold the same distinct ids.
func IsPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}

// Package prefix implements unambiguous-prefix matching over ordered tiers
// of names, and "did you mean" suggestions for names that match nothing.
package prefix

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Kind is the outcome of a lookup.
type Kind int

const (
	None Kind = iota
	Exact
	Unique // a single prefix match; callers warn
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Exact:
		return "exact"
	case Unique:
		return "unique"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Result is the outcome of Lookup.
type Result[T any] struct {
	Kind       Kind
	Value      T   // set for Exact and Unique
	Tier       int // tier the match came from
	Candidates []T // every prefix match of the deciding tier when Ambiguous
}

// Lookup matches word case-insensitively against tiers of values, each value
// answering to the names returned by key. An exact match in any tier wins,
// earlier tiers first. Otherwise the first tier with at least one prefix
// match decides: one match is Unique, several are Ambiguous.
func Lookup[T any](word string, key func(T) []string, tiers ...[]T) Result[T] {
	w := strings.ToLower(word)
	if w == "" {
		return Result[T]{Kind: None}
	}

	for ti, tier := range tiers {
		for _, v := range tier {
			for _, name := range key(v) {
				if strings.ToLower(name) == w {
					return Result[T]{Kind: Exact, Value: v, Tier: ti}
				}
			}
		}
	}

	for ti, tier := range tiers {
		var hits []T
		for _, v := range tier {
			for _, name := range key(v) {
				if strings.HasPrefix(strings.ToLower(name), w) {
					hits = append(hits, v)
					break
				}
			}
		}
		switch len(hits) {
		case 0:
			continue
		case 1:
			return Result[T]{Kind: Unique, Value: hits[0], Tier: ti}
		default:
			return Result[T]{Kind: Ambiguous, Tier: ti, Candidates: hits}
		}
	}
	return Result[T]{Kind: None}
}

// Find is Lookup over plain names.
func Find(word string, tiers ...[]string) Result[string] {
	return Lookup(word, func(s string) []string { return []string{s} }, tiers...)
}

// Shortest returns the shortest prefix of name that Find resolves to name
// among all, or name itself when no shorter prefix is unambiguous.
func Shortest(name string, all ...[]string) string {
	for n := 1; n < len(name); n++ {
		r := Find(name[:n], all...)
		if (r.Kind == Unique || r.Kind == Exact) && r.Value == name {
			return name[:n]
		}
	}
	return name
}

// Suggest returns up to max candidates close to word: fuzzy subsequence
// matches ranked by distance, then names within a small edit distance.
func Suggest(word string, candidates []string, max int) []string {
	if word == "" || len(candidates) == 0 || max <= 0 {
		return nil
	}

	ranks := fuzzy.RankFindFold(word, candidates)
	sort.Sort(ranks)

	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if !seen[s] && len(out) < max {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, r := range ranks {
		add(r.Target)
	}

	limit := 2
	if len(word) <= 3 {
		limit = 1
	}
	type near struct {
		name string
		dist int
	}
	var nearby []near
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(strings.ToLower(word), strings.ToLower(c)); d <= limit {
			nearby = append(nearby, near{c, d})
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool { return nearby[i].dist < nearby[j].dist })
	for _, n := range nearby {
		add(n.name)
	}
	return out
}

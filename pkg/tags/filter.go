// Package tags implements tag-filter selection for test cases and suites.
//
// A filter string is a disjunction of conjunctions: "|" separates OR-groups
// and "," separates the tags that must all be present within a group.
//
//	smoke,checkout|regression  →  (smoke AND checkout) OR regression
package tags

import (
	"strings"
)

// Filter is a parsed tag filter in disjunctive normal form. The outer slice
// holds OR-groups, each inner slice the AND-tags of one group.
// A nil Filter means "no filter" and matches everything.
type Filter [][]string

// Parse parses a filter string. Empty or whitespace-only input yields nil.
func Parse(text string) Filter {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var f Filter
	for _, group := range strings.Split(text, "|") {
		var and []string
		for _, tag := range strings.Split(group, ",") {
			and = append(and, strings.TrimSpace(tag))
		}
		f = append(f, and)
	}
	return f
}

// String renders the filter back into its textual form.
func (f Filter) String() string {
	groups := make([]string, len(f))
	for i, g := range f {
		groups[i] = strings.Join(g, ",")
	}
	return strings.Join(groups, "|")
}

// Matches reports whether candidate satisfies the filter.
//
// A nil candidate slice (no tag metadata at all) always matches. An empty,
// non-nil candidate slice never matches a non-nil filter.
func (f Filter) Matches(candidate []string) bool {
	if f == nil {
		return true
	}
	if candidate == nil {
		return true
	}
	if len(candidate) == 0 {
		return false
	}
	present := make(map[string]bool, len(candidate))
	for _, t := range candidate {
		present[t] = true
	}
	for _, group := range f {
		if containsAll(present, group) {
			return true
		}
	}
	return false
}

func containsAll(present map[string]bool, group []string) bool {
	for _, t := range group {
		if !present[t] {
			return false
		}
	}
	return true
}

// Matches parses text and tests candidate against it.
func Matches(candidate []string, text string) bool {
	return Parse(text).Matches(candidate)
}

// Package filter provides wildcard matching and rule evaluation for object keys.
package filter

import (
	"github.com/NYPL/snowsync/types"
)

// Match reports whether pattern matches key in full. `*` matches any run
// of characters including `/`, so `*.txt` matches `a/b/c.txt`. `?` matches
// exactly one character. There are no character classes.
func Match(pattern, key string) bool {
	var p, k int
	star, mark := -1, 0

	for k < len(key) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == key[k]):
			p++
			k++
		case p < len(pattern) && pattern[p] == '*':
			// Remember the star so we can widen its match on mismatch.
			star = p
			mark = k
			p++
		case star >= 0:
			p = star + 1
			mark++
			k = mark
		default:
			return false
		}
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// Evaluate returns the action of the last rule in rules whose pattern
// matches key. Keys matched by no rule, or evaluated against an empty rule
// list, are included.
func Evaluate(rules []types.FilterRule, key string) types.FilterAction {
	action := types.FilterInclude
	for _, rule := range rules {
		if Match(rule.Pattern, key) {
			action = rule.Action
		}
	}
	return action
}

// Included reports whether key survives the rule list.
func Included(rules []types.FilterRule, key string) bool {
	return Evaluate(rules, key) == types.FilterInclude
}

// Apply returns the entries whose keys, transformed by rel, survive the
// rule list. A nil rel evaluates rules against the full key.
func Apply(rules []types.FilterRule, entries []types.ObjectEntry, rel func(string) string) []types.ObjectEntry {
	if len(rules) == 0 {
		return entries
	}
	kept := make([]types.ObjectEntry, 0, len(entries))
	for _, entry := range entries {
		key := entry.Key
		if rel != nil {
			key = rel(key)
		}
		if Included(rules, key) {
			kept = append(kept, entry)
		}
	}
	return kept
}

// JunkRules returns exclude rules for the OS metadata files that ride along
// on external drives: macOS Spotlight/FSEvents/Trash droppings, Windows
// recycle bins, AppleDouble files.
func JunkRules() []types.FilterRule {
	return []types.FilterRule{
		types.Exclude(".fsevents*"),
		types.Exclude(".Spotlight*"),
		types.Exclude(".Trashes/*"),
		types.Exclude("$RECYCLE.BIN/*"),
		types.Exclude("._.*"),
		types.Exclude("*.DS_Store"),
		types.Exclude(".com.apple.timemachine.donotpresent"),
	}
}

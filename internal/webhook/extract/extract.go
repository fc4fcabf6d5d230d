// Package extract implements heuristic field searches over decoded JSON
// trees. Webhook producers disagree wildly on payload shape, so identity
// fields are located by key-name heuristics instead of fixed paths.
package extract

import (
	"sort"
	"strings"
)

var emailKeyTokens = []string{"email", "e-mail", "buyer", "customer"}
var nameKeyTokens = []string{"name", "nome", "buyer", "customer"}

// FindEmail walks the tree depth-first and returns the first string leaf
// containing "@", descending into keys that look email- or buyer-related
// before scanning the rest.
func FindEmail(node any) (string, bool) {
	switch v := node.(type) {
	case string:
		if strings.Contains(v, "@") {
			return v, true
		}
		return "", false
	case map[string]any:
		for _, key := range preferredKeys(v, emailKeyTokens) {
			if found, ok := FindEmail(v[key]); ok {
				return found, true
			}
		}
		for _, key := range sortedKeys(v) {
			if found, ok := FindEmail(v[key]); ok {
				return found, true
			}
		}
	case []any:
		for _, item := range v {
			if found, ok := FindEmail(item); ok {
				return found, true
			}
		}
	}
	return "", false
}

// FindName mirrors FindEmail but rejects leaves containing "@" so an email
// address is never mistaken for a name. A string sitting directly under a
// name-like key wins outright.
func FindName(node any) (string, bool) {
	switch v := node.(type) {
	case string:
		if strings.Contains(v, "@") {
			return "", false
		}
		return v, true
	case map[string]any:
		for _, key := range preferredKeys(v, nameKeyTokens) {
			if s, ok := v[key].(string); ok {
				return s, true
			}
			if found, ok := FindName(v[key]); ok {
				return found, true
			}
		}
		for _, key := range sortedKeys(v) {
			if found, ok := FindName(v[key]); ok {
				return found, true
			}
		}
	case []any:
		for _, item := range v {
			if found, ok := FindName(item); ok {
				return found, true
			}
		}
	}
	return "", false
}

// FindByKey returns the first string found under any of the candidate keys,
// matched by exact case-insensitive equality. Matched subtrees are searched
// before the rest of the tree.
func FindByKey(node any, keys []string) (string, bool) {
	switch v := node.(type) {
	case map[string]any:
		for _, candidate := range keys {
			for _, key := range sortedKeys(v) {
				if !strings.EqualFold(key, candidate) {
					continue
				}
				if s, ok := v[key].(string); ok {
					return s, true
				}
				if found, ok := firstString(v[key]); ok {
					return found, true
				}
			}
		}
		for _, key := range sortedKeys(v) {
			if found, ok := FindByKey(v[key], keys); ok {
				return found, true
			}
		}
	case []any:
		for _, item := range v {
			if found, ok := FindByKey(item, keys); ok {
				return found, true
			}
		}
	}
	return "", false
}

// firstString returns the first string leaf of a matched subtree.
func firstString(node any) (string, bool) {
	switch v := node.(type) {
	case string:
		return v, true
	case map[string]any:
		for _, key := range sortedKeys(v) {
			if found, ok := firstString(v[key]); ok {
				return found, true
			}
		}
	case []any:
		for _, item := range v {
			if found, ok := firstString(item); ok {
				return found, true
			}
		}
	}
	return "", false
}

// HasKey reports whether a key with exactly the given name exists anywhere
// in the tree.
func HasKey(node any, key string) bool {
	switch v := node.(type) {
	case map[string]any:
		if _, ok := v[key]; ok {
			return true
		}
		for _, child := range v {
			if HasKey(child, key) {
				return true
			}
		}
	case []any:
		for _, item := range v {
			if HasKey(item, key) {
				return true
			}
		}
	}
	return false
}

// preferredKeys returns the map keys whose lowercase name contains one of
// the tokens, ordered by token priority. Keys are sorted first because Go
// map iteration is not stable and repeated parses must agree.
func preferredKeys(m map[string]any, tokens []string) []string {
	keys := sortedKeys(m)
	var preferred []string
	for _, token := range tokens {
		for _, key := range keys {
			if strings.Contains(strings.ToLower(key), token) {
				preferred = append(preferred, key)
			}
		}
	}
	return preferred
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Package relations reconciles relation identifiers that reach the console in
// different casings. The canonical key of a related entity is its lower-cased
// name; no other package compares relation names directly.
package relations

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/matthewbaird/lowcode-console/internal/record"
	"github.com/matthewbaird/lowcode-console/internal/schema"
)

// Selection maps canonical relation keys to ordered selected record ids.
type Selection map[string][]string

// NormalizeKey returns the canonical key for an entity name.
func NormalizeKey(name string) string {
	return strings.ToLower(name)
}

// Capitalize upper-cases the first character of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Equal reports whether two entity names share a canonical key.
func Equal(a, b string) bool {
	return NormalizeKey(a) == NormalizeKey(b)
}

// GetRelationEntities returns the canonical keys of every relation that must
// be rendered: those declared on the schema, in declaration order, followed
// by any extra keys present on the record, sorted by canonical key.
func GetRelationEntities[T any](declared []schema.RelationDefinition, present map[string]T) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		key := NormalizeKey(name)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, key)
	}
	for _, rel := range declared {
		add(rel.Entity)
	}
	extra := make([]string, 0, len(present))
	for k := range present {
		extra = append(extra, NormalizeKey(k))
	}
	sort.Strings(extra)
	for _, k := range extra {
		add(k)
	}
	return out
}

// GetByKey looks a key up as given, then canonical, then capitalized. The
// first present entry wins even when it is empty; a miss yields an empty list.
func GetByKey[T any](m map[string][]T, key string) []T {
	for _, k := range []string{key, NormalizeKey(key), Capitalize(key)} {
		if v, ok := m[k]; ok {
			if v == nil {
				return []T{}
			}
			return v
		}
	}
	return []T{}
}

// Canonical rewrites a selection so every key is canonical. When two keys
// collapse onto one, the entry that was already canonical wins; otherwise
// the lexicographically first original key wins.
func Canonical(sel map[string][]string) Selection {
	out := make(Selection, len(sel))
	keys := make([]string, 0, len(sel))
	for k := range sel {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := NormalizeKey(k)
		if _, taken := out[key]; taken && k != key {
			continue
		}
		out[key] = append([]string{}, sel[k]...)
	}
	return out
}

// BuildRelationsForAPI converts a selection into the relation payload the
// backend expects. Every declared relation is present under its declared
// name, as an empty list when nothing is selected, so the backend can tell a
// cleared relation from an omitted one. Selected keys not covered by any
// declaration are added under their capitalized form. Declared names take
// precedence on collision.
func BuildRelationsForAPI(sel map[string][]string, declared []schema.RelationDefinition) map[string][]string {
	canon := Canonical(sel)
	result := make(map[string][]string, len(declared)+len(canon))
	covered := make(map[string]bool, len(declared))
	for _, rel := range declared {
		key := NormalizeKey(rel.Entity)
		covered[key] = true
		ids := canon[key]
		if ids == nil {
			ids = []string{}
		}
		result[rel.Entity] = ids
	}
	keys := make([]string, 0, len(canon))
	for k := range canon {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if covered[key] {
			continue
		}
		name := Capitalize(key)
		if _, taken := result[name]; taken {
			continue
		}
		ids := canon[key]
		if ids == nil {
			ids = []string{}
		}
		result[name] = ids
	}
	return result
}

// ExtractRelationsFromRecord builds a selection from the relation stubs a
// record carries.
func ExtractRelationsFromRecord(r record.Record) Selection {
	raw := make(map[string][]string)
	for entity, stubs := range r.Relations() {
		ids := make([]string, 0, len(stubs))
		for _, s := range stubs {
			ids = append(ids, s.ID)
		}
		raw[entity] = ids
	}
	return Canonical(raw)
}

// Set replaces the selected ids for an entity under its canonical key.
func (s Selection) Set(entity string, ids []string) {
	if ids == nil {
		ids = []string{}
	}
	s[NormalizeKey(entity)] = ids
}

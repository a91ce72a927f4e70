// Package record provides access helpers for the opaque records returned by
// generated services, and builds write payloads from form data.
package record

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/matthewbaird/lowcode-console/internal/schema"
)

// labelLength is the maximum length of a record label in list views.
const labelLength = 40

// Record maps field names to values. Field names are matched case-insensitively.
type Record map[string]any

// Stub is a linked record as it appears under a record's relations.
type Stub struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"-"`
}

// Get returns the value for a field. An exact key match wins; otherwise the
// first key (in sorted order) equal under case folding is used.
func (r Record) Get(name string) (any, bool) {
	if r == nil || name == "" {
		return nil, false
	}
	if v, ok := r[name]; ok {
		return v, true
	}
	for _, k := range sortedKeys(r) {
		if strings.EqualFold(k, name) {
			return r[k], true
		}
	}
	return nil, false
}

// Value is Get without the presence flag.
func (r Record) Value(name string) any {
	v, _ := r.Get(name)
	return v
}

// ID returns the record id rendered as a string.
func (r Record) ID() string {
	v, ok := r.Get("id")
	if !ok {
		return ""
	}
	return schema.Stringify(v)
}

// Relations returns linked record stubs keyed by the related entity name as
// the backend reported it. Malformed entries are skipped.
func (r Record) Relations() map[string][]Stub {
	out := make(map[string][]Stub)
	raw, ok := r.Get("relations")
	if !ok {
		return out
	}
	rels, ok := raw.(map[string]any)
	if !ok {
		return out
	}
	for entity, items := range rels {
		list, _ := items.([]any)
		stubs := make([]Stub, 0, len(list))
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			stubs = append(stubs, Stub{ID: Record(m).ID(), Fields: m})
		}
		out[entity] = stubs
	}
	return out
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Set stores a value, replacing any key that differs only by case.
func (r Record) Set(name string, v any) {
	for k := range r {
		if k != name && strings.EqualFold(k, name) {
			delete(r, k)
		}
	}
	r[name] = v
}

// DisplayName picks a human label for a record: name, title or firstName,
// then any other non-empty string value, then the id.
func DisplayName(r Record) string {
	if r == nil {
		return ""
	}
	for _, key := range []string{"name", "title", "firstName"} {
		if v := r.Value(key); !schema.IsEmpty(v) {
			return schema.Stringify(v)
		}
	}
	id := r.ID()
	for _, k := range sortedKeys(r) {
		if s, ok := r[k].(string); ok && s != "" && s != id {
			return s
		}
	}
	return id
}

// Label is the list-view label: the first string-typed field of the schema,
// else the id, truncated.
func Label(r Record, s *schema.EntitySchema) string {
	if s != nil {
		for _, f := range s.Fields {
			if f.Type == nil {
				continue
			}
			if !strings.EqualFold(f.Type.ID, "string") && !strings.EqualFold(f.Type.BaseType, "string") {
				continue
			}
			if v := r.Value(f.Name); !schema.IsEmpty(v) {
				return Truncate(schema.Stringify(v), labelLength)
			}
			break
		}
	}
	return Truncate(r.ID(), labelLength)
}

// Truncate shortens s to max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

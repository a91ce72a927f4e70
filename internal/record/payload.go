package record

import (
	"unicode"
	"unicode/utf8"

	"github.com/matthewbaird/lowcode-console/internal/schema"
)

// RelationsKey is the payload key that carries relation selections.
const RelationsKey = "relations"

// PrepareRecordForAPI converts form data into a write payload. Fields are visited in
// schema order and keyed by their camelCase name. Empty optional values are
// omitted, except booleans which are always sent. Values are not validated
// here; callers run the record validator first.
func PrepareRecordForAPI(form Record, s *schema.EntitySchema) map[string]any {
	data := make(map[string]any)
	if s == nil {
		return data
	}
	for _, f := range s.Fields {
		v := form.Value(f.Name)
		kind := f.Kind()
		if schema.IsEmpty(v) && !f.IsRequired && kind.OmitWhenEmpty() {
			continue
		}
		data[PayloadKey(f.Name)] = kind.Coerce(v)
	}
	return data
}

// WithRelations attaches a relation payload unless it is empty.
func WithRelations(data map[string]any, rels map[string][]string) map[string]any {
	if len(rels) > 0 {
		data[RelationsKey] = rels
	}
	return data
}

// PayloadKey lower-cases the first character of a field name.
func PayloadKey(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToLower(r)) + name[size:]
}

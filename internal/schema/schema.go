// Package schema holds the declarative entity model shared by the console:
// field types, field and relation definitions, entity schemas and the type
// catalog fetched from the gateway.
package schema

import "strings"

// DefaultCardinality is assigned to relations added through the console.
const DefaultCardinality = "ManyToMany"

// FieldType is a semantic type (e.g. "email") layered over a structural base type.
type FieldType struct {
	ID            string `json:"id"`
	BaseType      string `json:"baseType,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	IsValueObject bool   `json:"isValueObject"`
}

// Kind resolves the structural base type. The declared base type wins, then the
// type id, then string.
func (t *FieldType) Kind() BaseType {
	if t == nil {
		return String
	}
	if t.BaseType != "" {
		return ParseBaseType(t.BaseType)
	}
	return ParseBaseType(t.ID)
}

// Label returns the display name, falling back to the id.
func (t *FieldType) Label() string {
	if t == nil {
		return ""
	}
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.ID
}

// FieldDefinition describes one field on an entity.
type FieldDefinition struct {
	Name         string     `json:"name"`
	Type         *FieldType `json:"type"`
	IsRequired   bool       `json:"isRequired"`
	IsUnique     bool       `json:"isUnique,omitempty"`
	IsSearchable bool       `json:"isSearchable,omitempty"`
}

// Kind returns the base type of the field.
func (f FieldDefinition) Kind() BaseType {
	return f.Type.Kind()
}

// TypeID returns the lower-cased semantic type id, or "" when untyped.
func (f FieldDefinition) TypeID() string {
	if f.Type == nil {
		return ""
	}
	return strings.ToLower(f.Type.ID)
}

// RelationDefinition links an entity to another entity by name.
type RelationDefinition struct {
	Entity      string `json:"entity"`
	Cardinality string `json:"cardinality,omitempty"`
}

// EntitySchema is the declarative definition of a generated record type.
type EntitySchema struct {
	Name        string               `json:"name"`
	PluralName  string               `json:"pluralName"`
	Fields      []FieldDefinition    `json:"fields"`
	Relations   []RelationDefinition `json:"relations,omitempty"`
	IsGenerated bool                 `json:"isGenerated,omitempty"`
}

// Field returns the field with the given name (case-insensitive), or nil.
func (s *EntitySchema) Field(name string) *FieldDefinition {
	for i := range s.Fields {
		if strings.EqualFold(s.Fields[i].Name, name) {
			return &s.Fields[i]
		}
	}
	return nil
}

// FieldNames returns field names in declaration order.
func (s *EntitySchema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Clone returns a deep copy suitable for use as an editing draft.
func (s *EntitySchema) Clone() *EntitySchema {
	if s == nil {
		return nil
	}
	out := *s
	out.Fields = make([]FieldDefinition, len(s.Fields))
	for i, f := range s.Fields {
		if f.Type != nil {
			t := *f.Type
			f.Type = &t
		}
		out.Fields[i] = f
	}
	out.Relations = append([]RelationDefinition(nil), s.Relations...)
	return &out
}

// DisplayPlural returns the plural name, or the name with an "s" appended.
func (s *EntitySchema) DisplayPlural() string {
	if s.PluralName != "" {
		return s.PluralName
	}
	return s.Name + "s"
}

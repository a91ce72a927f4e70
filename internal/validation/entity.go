package validation

import (
	"fmt"

	"github.com/matthewbaird/lowcode-console/internal/relations"
	"github.com/matthewbaird/lowcode-console/internal/schema"
)

// ValidateEntitySchema runs every structural check on an entity and reports
// all violations in a fixed order: name presence, name pattern, plural name
// presence, at least one field. The pattern is only checked for a present name.
func ValidateEntitySchema(s *schema.EntitySchema) Errors {
	var errs Errors
	if s == nil {
		s = &schema.EntitySchema{}
	}
	if blank(s.Name) {
		errs = append(errs, "Name is required")
	} else if !IsIdentifier(s.Name) {
		errs = append(errs, "Name must start with a letter and contain only letters and numbers")
	}
	if blank(s.PluralName) {
		errs = append(errs, "Plural Name is required")
	}
	if len(s.Fields) == 0 {
		errs = append(errs, "At least one field is required")
	}
	return errs
}

// ValidateField checks a single field definition: name presence, name
// pattern, then type presence.
func ValidateField(f schema.FieldDefinition) Errors {
	var errs Errors
	if blank(f.Name) {
		errs = append(errs, "Field name is required")
	} else if !IsIdentifier(f.Name) {
		errs = append(errs, "Field name must start with a letter and contain only letters and numbers")
	}
	if f.Type == nil || f.Type.ID == "" {
		errs = append(errs, "Field type is required")
	}
	return errs
}

// ValidateFieldType checks that a typed field references a catalog type.
// Untyped fields are left to ValidateField.
func ValidateFieldType(f schema.FieldDefinition, reg *schema.Registry) Errors {
	if reg == nil || reg.Len() == 0 || f.Type == nil || f.Type.ID == "" {
		return nil
	}
	if !reg.Has(f.Type.ID) {
		return Errors{fmt.Sprintf("Field type %q is unknown", f.Type.ID)}
	}
	return nil
}

// ValidateRelations checks relation declarations: each names an entity, none
// points back at the schema itself, and no entity appears twice (compared by
// canonical key).
func ValidateRelations(s *schema.EntitySchema) Errors {
	if s == nil {
		return nil
	}
	var errs Errors
	self := relations.NormalizeKey(s.Name)
	seen := make(map[string]bool, len(s.Relations))
	for _, rel := range s.Relations {
		key := relations.NormalizeKey(rel.Entity)
		switch {
		case blank(rel.Entity):
			errs = append(errs, "Relation entity is required")
			continue
		case key == self:
			errs = append(errs, fmt.Sprintf("Relation to %s is self-referential", rel.Entity))
		case seen[key]:
			errs = append(errs, fmt.Sprintf("Relation to %s is declared more than once", rel.Entity))
		}
		seen[key] = true
	}
	return errs
}

// ValidateDraft runs the entity checks, then every field's checks prefixed
// with the field name (or its position when unnamed), then the relation
// checks. reg may be nil.
func ValidateDraft(s *schema.EntitySchema, reg *schema.Registry) Errors {
	errs := ValidateEntitySchema(s)
	if s == nil {
		return errs
	}
	for i, f := range s.Fields {
		fieldErrs := append(ValidateField(f), ValidateFieldType(f, reg)...)
		label := f.Name
		if blank(label) {
			label = fmt.Sprintf("Field #%d", i+1)
		}
		for _, msg := range fieldErrs {
			errs = append(errs, label+": "+msg)
		}
	}
	return append(errs, ValidateRelations(s)...)
}

// AddRelation appends a relation to the draft unless the entity is empty,
// the draft itself, or already related. It reports whether the draft changed.
func AddRelation(s *schema.EntitySchema, entity string) bool {
	if s == nil || blank(entity) {
		return false
	}
	key := relations.NormalizeKey(entity)
	if key == relations.NormalizeKey(s.Name) {
		return false
	}
	for _, rel := range s.Relations {
		if relations.NormalizeKey(rel.Entity) == key {
			return false
		}
	}
	s.Relations = append(s.Relations, schema.RelationDefinition{
		Entity:      entity,
		Cardinality: schema.DefaultCardinality,
	})
	return true
}

// RemoveRelation drops the relation at index i.
func RemoveRelation(s *schema.EntitySchema, i int) bool {
	if s == nil || i < 0 || i >= len(s.Relations) {
		return false
	}
	s.Relations = append(s.Relations[:i], s.Relations[i+1:]...)
	return true
}

package validation

import (
	"fmt"

	"github.com/matthewbaird/lowcode-console/internal/record"
	"github.com/matthewbaird/lowcode-console/internal/schema"
)

// ValidateRecord checks every schema field of a record in declaration order
// and concatenates the per-field messages.
func ValidateRecord(r record.Record, s *schema.EntitySchema) Errors {
	if s == nil {
		return nil
	}
	var errs Errors
	for _, f := range s.Fields {
		errs = append(errs, ValidateFieldValue(r.Value(f.Name), f)...)
	}
	return errs
}

// ValidateFieldValue checks one value against its field definition. A missing
// required value yields only the required message; an empty optional value is
// always valid.
func ValidateFieldValue(v any, f schema.FieldDefinition) Errors {
	empty := schema.IsEmpty(v)
	if f.IsRequired && empty {
		return Errors{fmt.Sprintf("%s is required", f.Name)}
	}
	if empty {
		return nil
	}
	if msg := problemMessage(f.Name, f.Kind().Check(v, f.TypeID())); msg != "" {
		return Errors{msg}
	}
	return nil
}

func problemMessage(field string, p schema.Problem) string {
	switch p {
	case schema.InvalidInteger:
		return fmt.Sprintf("%s must be a valid integer", field)
	case schema.IntegerOutOfRange:
		return fmt.Sprintf("%s must be between %d and %d", field, schema.MinInt32, schema.MaxInt32)
	case schema.InvalidNumber:
		return fmt.Sprintf("%s must be a valid number", field)
	case schema.InvalidDate:
		return fmt.Sprintf("%s must be a valid date", field)
	case schema.InvalidEmail:
		return fmt.Sprintf("%s must be a valid email address", field)
	default:
		return ""
	}
}

package session

import (
	"time"

	"github.com/matthewbaird/lowcode-console/internal/record"
	"github.com/matthewbaird/lowcode-console/internal/relations"
	"github.com/matthewbaird/lowcode-console/internal/schema"
)

// FieldView is one form input.
type FieldView struct {
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Required bool         `json:"required"`
	Input    schema.Input `json:"input"`
}

// RelationView is one relation picker: what is selected and what can be.
type RelationView struct {
	Key      string             `json:"key"`
	Selected []string           `json:"selected"`
	Options  []relations.Option `json:"options"`
}

// View is the JSON rendering of a session.
type View struct {
	ID           string               `json:"id"`
	Kind         Kind                 `json:"kind"`
	Entity       string               `json:"entity"`
	RecordID     string               `json:"recordId,omitempty"`
	Schema       *schema.EntitySchema `json:"schema"`
	Form         record.Record        `json:"form,omitempty"`
	Fields       []FieldView          `json:"fields,omitempty"`
	Relations    []RelationView       `json:"relations,omitempty"`
	Errors       []string             `json:"errors"`
	CreatedAt    time.Time            `json:"createdAt"`
	LastActiveAt time.Time            `json:"lastActiveAt"`
}

// View renders the session, including its current validation errors.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:           s.ID,
		Kind:         s.Kind,
		Entity:       s.Entity,
		RecordID:     s.RecordID,
		Schema:       s.schema.Clone(),
		Errors:       s.validateLocked(),
		CreatedAt:    s.createdAt,
		LastActiveAt: s.lastActiveAt,
	}
	if v.Errors == nil {
		v.Errors = []string{}
	}
	if s.Kind == KindEntity {
		return v
	}

	v.Form = s.form.Clone()
	for _, f := range s.schema.Fields {
		label := f.Type.Label()
		if s.reg != nil && f.Type != nil {
			label = s.reg.Label(f.Type.ID)
		}
		v.Fields = append(v.Fields, FieldView{
			Name:     f.Name,
			Type:     label,
			Required: f.IsRequired,
			Input:    schema.InputFor(f, s.form.Value(f.Name)),
		})
	}
	for _, key := range relations.GetRelationEntities(s.schema.Relations, s.selection) {
		v.Relations = append(v.Relations, RelationView{
			Key:      key,
			Selected: relations.GetByKey(s.selection, key),
			Options:  s.options.Options(key),
		})
	}
	return v
}

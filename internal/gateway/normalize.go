package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/matthewbaird/lowcode-console/internal/schema"
)

// envelopeKeys are the wrapper keys under which collections may arrive.
var envelopeKeys = []string{"$values", "value"}

// normalizeArray turns a collection response into its items. Bare arrays are
// used as is; objects are unwrapped through envelopeKeys; anything else is
// an empty collection.
func normalizeArray(raw []byte) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		for _, key := range envelopeKeys {
			inner, ok := obj[key]
			if !ok {
				continue
			}
			inner = bytes.TrimSpace(inner)
			if len(inner) > 0 && inner[0] == '[' {
				return normalizeArray(inner)
			}
		}
	}
	return nil, nil
}

// decodeList normalizes a collection and decodes each item.
func decodeList[T any](raw []byte) ([]T, error) {
	items, err := normalizeArray(raw)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// entityWire is the entity shape as sent by the gateway, whose nested
// collections may be enveloped or absent.
type entityWire struct {
	Name        string          `json:"name"`
	PluralName  string          `json:"pluralName"`
	Fields      json.RawMessage `json:"fields"`
	Relations   json.RawMessage `json:"relations"`
	IsGenerated bool            `json:"isGenerated"`
}

// decodeEntity decodes one entity; a null body yields nil. Fields and
// relations always come back as (possibly empty) slices.
func decodeEntity(raw []byte) (*schema.EntitySchema, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var w entityWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	fields, err := decodeList[schema.FieldDefinition](w.Fields)
	if err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	rels, err := decodeList[schema.RelationDefinition](w.Relations)
	if err != nil {
		return nil, fmt.Errorf("relations: %w", err)
	}
	return &schema.EntitySchema{
		Name:        w.Name,
		PluralName:  w.PluralName,
		Fields:      fields,
		Relations:   rels,
		IsGenerated: w.IsGenerated,
	}, nil
}

func decodeEntities(raw []byte) ([]schema.EntitySchema, error) {
	items, err := normalizeArray(raw)
	if err != nil {
		return nil, err
	}
	out := make([]schema.EntitySchema, 0, len(items))
	for i, item := range items {
		e, err := decodeEntity(item)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

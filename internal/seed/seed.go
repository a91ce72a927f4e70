// Package seed provides entity definitions written in CUE: the demo Contact
// entity and the decoder used to turn CUE entity files into schemas.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/matthewbaird/lowcode-console/internal/schema"
)

//go:embed cue/schema.cue
var definitionsCUE string

//go:embed cue/contact.cue
var demoCUE string

// DemoEntityName is the name of the demo entity.
const DemoEntityName = "Contact"

// Definitions compiles the entity shape constraints in cctx.
func Definitions(cctx *cue.Context) cue.Value {
	return cctx.CompileString(definitionsCUE, cue.Filename("schema.cue"))
}

// Decode unifies v with the entity constraints and decodes every entry of
// its top-level "entities" struct, in declaration order.
func Decode(v cue.Value) ([]schema.EntitySchema, error) {
	defs := Definitions(v.Context())
	if err := defs.Err(); err != nil {
		return nil, fmt.Errorf("compiling definitions: %w", err)
	}
	v = v.Unify(defs)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid entity definitions: %w", err)
	}

	ents := v.LookupPath(cue.ParsePath("entities"))
	if !ents.Exists() {
		return nil, errors.New("no entities defined")
	}
	iter, err := ents.Fields()
	if err != nil {
		return nil, fmt.Errorf("reading entities: %w", err)
	}

	var out []schema.EntitySchema
	for iter.Next() {
		var e schema.EntitySchema
		if err := iter.Value().Decode(&e); err != nil {
			return nil, fmt.Errorf("decoding entity %s: %w", iter.Selector(), err)
		}
		if e.Fields == nil {
			e.Fields = []schema.FieldDefinition{}
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, errors.New("no entities defined")
	}
	return out, nil
}

// Compile decodes entities from CUE source.
func Compile(src, filename string) ([]schema.EntitySchema, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling %s: %w", filename, err)
	}
	return Decode(v)
}

// DemoEntities returns the embedded demo entities.
func DemoEntities() ([]schema.EntitySchema, error) {
	return Compile(demoCUE, "contact.cue")
}

// Contact returns the demo Contact entity.
func Contact() (*schema.EntitySchema, error) {
	ents, err := DemoEntities()
	if err != nil {
		return nil, err
	}
	for i := range ents {
		if ents[i].Name == DemoEntityName {
			return &ents[i], nil
		}
	}
	return nil, fmt.Errorf("demo entity %s not defined", DemoEntityName)
}

// Gateway is the part of the gateway client seeding needs.
type Gateway interface {
	GetEntity(ctx context.Context, name string) (*schema.EntitySchema, error)
	CreateEntity(ctx context.Context, s *schema.EntitySchema) (*schema.EntitySchema, error)
	UpdateEntity(ctx context.Context, name string, s *schema.EntitySchema) (*schema.EntitySchema, error)
}

// CreateTestEntity writes the demo Contact entity, updating it when the
// backend already has one and creating it otherwise. A failed lookup is
// treated as absent.
func CreateTestEntity(ctx context.Context, gw Gateway) (*schema.EntitySchema, error) {
	demo, err := Contact()
	if err != nil {
		return nil, err
	}

	existing, err := gw.GetEntity(ctx, demo.Name)
	if err == nil && existing != nil {
		slog.InfoContext(ctx, "seed: updating demo entity", "entity", demo.Name)
		return gw.UpdateEntity(ctx, demo.Name, demo)
	}
	slog.InfoContext(ctx, "seed: creating demo entity", "entity", demo.Name)
	return gw.CreateEntity(ctx, demo)
}

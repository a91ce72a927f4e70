package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCUE(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entities.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadEntities(t *testing.T) {
	path := writeCUE(t, `
entities: Project: fields: [{name: "Title", type: id: "string", isRequired: true}]
entities: Task: {
	fields: [{name: "Due", type: id: "datetime"}]
	relations: [{entity: "Project"}]
}
`)
	entities, err := loadEntities([]string{path})
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "Project", entities[0].Name)
	assert.Equal(t, "Projects", entities[0].PluralName)
	assert.Equal(t, "ManyToMany", entities[1].Relations[0].Cardinality)
}

func TestLoadEntities_Errors(t *testing.T) {
	_, err := loadEntities([]string{writeCUE(t, `entities: Project: fields: "nope"`)})
	assert.Error(t, err)

	_, err = loadEntities([]string{filepath.Join(t.TempDir(), "missing.cue")})
	assert.Error(t, err)
}

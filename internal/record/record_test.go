package record

import (
	"encoding/json"
	"testing"

	"github.com/matthewbaird/lowcode-console/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contactSchema() *schema.EntitySchema {
	str := &schema.FieldType{ID: "string", BaseType: "string"}
	return &schema.EntitySchema{
		Name:       "Contact",
		PluralName: "Contacts",
		Fields: []schema.FieldDefinition{
			{Name: "FirstName", Type: str, IsRequired: true},
			{Name: "Age", Type: &schema.FieldType{ID: "int", BaseType: "int"}, IsRequired: true},
			{Name: "Score", Type: &schema.FieldType{ID: "decimal", BaseType: "decimal"}},
			{Name: "Active", Type: &schema.FieldType{ID: "bool", BaseType: "bool"}},
			{Name: "DateOfBirth", Type: &schema.FieldType{ID: "datetime", BaseType: "DateTime"}},
			{Name: "Notes", Type: str},
		},
	}
}

func TestPrepareRecordForAPI(t *testing.T) {
	form := Record{
		"FirstName":   "Ada",
		"age":         "42",
		"Score":       "",
		"DateOfBirth": "1990-01-02T03:04",
	}
	got := PrepareRecordForAPI(form, contactSchema())

	assert.Equal(t, map[string]any{
		"firstName":   "Ada",
		"age":         int64(42),
		"active":      false,
		"dateOfBirth": "1990-01-02T03:04",
	}, got)
}

func TestPrepareRecordForAPI_RequiredEmptyValues(t *testing.T) {
	s := &schema.EntitySchema{Fields: []schema.FieldDefinition{
		{Name: "Count", Type: &schema.FieldType{ID: "int"}, IsRequired: true},
		{Name: "When", Type: &schema.FieldType{ID: "datetime"}, IsRequired: true},
		{Name: "Title", Type: &schema.FieldType{ID: "string"}, IsRequired: true},
	}}
	got := PrepareRecordForAPI(Record{}, s)

	assert.Equal(t, int64(0), got["count"])
	v, ok := got["when"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "", got["title"])

	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":0,"when":null,"title":""}`, string(b))
}

func TestPrepareRecordForAPI_NilSchema(t *testing.T) {
	assert.Empty(t, PrepareRecordForAPI(Record{"a": 1}, nil))
}

func TestWithRelations(t *testing.T) {
	data := WithRelations(map[string]any{}, nil)
	assert.NotContains(t, data, RelationsKey)

	data = WithRelations(map[string]any{}, map[string][]string{"Company": {}})
	assert.Contains(t, data, RelationsKey)
}

func TestRecord_Get(t *testing.T) {
	r := Record{"firstName": "Ada", "Id": float64(7)}

	v, ok := r.Get("FirstName")
	assert.True(t, ok)
	assert.Equal(t, "Ada", v)
	assert.Equal(t, "7", r.ID())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRecord_Set(t *testing.T) {
	r := Record{"firstname": "old"}
	r.Set("FirstName", "new")
	assert.Equal(t, Record{"FirstName": "new"}, r)
}

func TestRecord_Relations(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "c1",
		"relations": {
			"Company": [{"id": "co1", "name": "Acme"}, {"id": 2}],
			"tag": [],
			"broken": [1, "x"]
		}
	}`), &r))

	rels := r.Relations()
	require.Len(t, rels["Company"], 2)
	assert.Equal(t, "co1", rels["Company"][0].ID)
	assert.Equal(t, "2", rels["Company"][1].ID)
	assert.Empty(t, rels["tag"])
	assert.Empty(t, rels["broken"])
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"name wins", Record{"id": "1", "Name": "Acme", "title": "T"}, "Acme"},
		{"title", Record{"id": "1", "title": "Boss"}, "Boss"},
		{"first name", Record{"id": "1", "FirstName": "Ada"}, "Ada"},
		{"any string", Record{"id": "1", "city": "Oslo", "count": 3}, "Oslo"},
		{"skips id", Record{"id": "abc", "ref": "abc"}, "abc"},
		{"id fallback", Record{"id": "1", "count": 3}, "1"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.rec))
		})
	}
}

func TestLabel(t *testing.T) {
	s := contactSchema()
	assert.Equal(t, "Ada", Label(Record{"id": "1", "firstName": "Ada"}, s))
	assert.Equal(t, "1", Label(Record{"id": "1"}, s))

	long := "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"
	assert.Equal(t, long[:40]+"...", Label(Record{"id": long}, nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	assert.Equal(t, "é...", Truncate("éé", 1))
}

func TestPayloadKey(t *testing.T) {
	assert.Equal(t, "firstName", PayloadKey("FirstName"))
	assert.Equal(t, "x", PayloadKey("X"))
	assert.Equal(t, "", PayloadKey(""))
}

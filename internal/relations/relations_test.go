package relations

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/matthewbaird/lowcode-console/internal/record"
	"github.com/matthewbaird/lowcode-console/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey_Idempotent(t *testing.T) {
	for _, s := range []string{"", "Contact", "contact", "CONTACT", "ÉtéPlan", "order2Line"} {
		once := NormalizeKey(s)
		assert.Equal(t, once, NormalizeKey(once), s)
	}
	assert.Equal(t, "contact", NormalizeKey("Contact"))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Contact", Capitalize("contact"))
	assert.Equal(t, "", Capitalize(""))
	assert.Equal(t, "ÉtéPlan", Capitalize("étéPlan"))
}

func TestGetRelationEntities(t *testing.T) {
	declared := []schema.RelationDefinition{{Entity: "Company"}, {Entity: "Tag"}}
	present := Selection{"tag": {"t1"}, "Project": {}, "company": {"c1"}, "alpha": nil}

	assert.Equal(t, []string{"company", "tag", "alpha", "project"}, GetRelationEntities(declared, present))
	assert.Empty(t, GetRelationEntities[[]string](nil, nil))
}

func TestGetByKey(t *testing.T) {
	m := map[string][]string{
		"Contact": {"cap"},
		"contact": {"canon"},
		"rawKey":  {"literal"},
		"empty":   {},
	}

	assert.Equal(t, []string{"literal"}, GetByKey(m, "rawKey"), "literal wins")
	assert.Equal(t, []string{"canon"}, GetByKey(m, "CONTACT"), "canonical before capitalized")
	assert.Equal(t, []string{"cap"}, GetByKey(m, "Contact"), "literal beats canonical")
	assert.Equal(t, []string{}, GetByKey(m, "empty"), "present but empty still wins")
	assert.Equal(t, []string{}, GetByKey(m, "missing"))

	onlyCap := map[string][]string{"Company": {"c1"}}
	assert.Equal(t, []string{"c1"}, GetByKey(onlyCap, "company"))

	first := GetByKey(m, "CONTACT")
	assert.Equal(t, first, GetByKey(m, "CONTACT"), "repeatable")
}

func TestBuildRelationsForAPI(t *testing.T) {
	tests := []struct {
		name     string
		sel      Selection
		declared []schema.RelationDefinition
		want     map[string][]string
	}{
		{
			name:     "declared relation",
			sel:      Selection{"contact": {"1", "2"}},
			declared: []schema.RelationDefinition{{Entity: "Contact"}},
			want:     map[string][]string{"Contact": {"1", "2"}},
		},
		{
			name:     "declared but unselected",
			sel:      Selection{},
			declared: []schema.RelationDefinition{{Entity: "Contact"}, {Entity: "Company"}},
			want:     map[string][]string{"Contact": {}, "Company": {}},
		},
		{
			name:     "ad-hoc relation",
			sel:      Selection{"project": {"p1"}},
			declared: []schema.RelationDefinition{{Entity: "Contact"}},
			want:     map[string][]string{"Contact": {}, "Project": {"p1"}},
		},
		{
			name:     "mixed-case selection key",
			sel:      Selection{"Contact": {"9"}},
			declared: []schema.RelationDefinition{{Entity: "contact"}},
			want:     map[string][]string{"contact": {"9"}},
		},
		{
			name:     "colliding selection keys prefer canonical",
			sel:      Selection{"Tag": {"old"}, "tag": {"new"}},
			declared: nil,
			want:     map[string][]string{"Tag": {"new"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildRelationsForAPI(tt.sel, tt.declared))
		})
	}
}

func TestBuildRelationsForAPI_EmptyListsSerialise(t *testing.T) {
	got := BuildRelationsForAPI(nil, []schema.RelationDefinition{{Entity: "Contact"}})
	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Contact":[]}`, string(b))
}

func TestExtractRelationsFromRecord(t *testing.T) {
	var r record.Record
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "1",
		"relations": {"Company": [{"id": "c1"}, {"id": "c2"}], "tag": []}
	}`), &r))

	assert.Equal(t, Selection{"company": {"c1", "c2"}, "tag": {}}, ExtractRelationsFromRecord(r))
	assert.Equal(t, Selection{}, ExtractRelationsFromRecord(record.Record{"id": "2"}))
}

func TestSelection_Set(t *testing.T) {
	s := Selection{}
	s.Set("Company", []string{"c1"})
	s.Set("Tag", nil)
	assert.Equal(t, Selection{"company": {"c1"}, "tag": {}}, s)
}

type fakeLister struct {
	calls   map[string]int
	records map[string][]record.Record
	fail    map[string]bool
}

func (f *fakeLister) ListRecords(_ context.Context, entity string, _ ...string) ([]record.Record, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[entity]++
	if f.fail[entity] {
		return nil, errors.New("boom")
	}
	return f.records[entity], nil
}

func TestOptionsCache(t *testing.T) {
	l := &fakeLister{
		records: map[string][]record.Record{
			"Company": {{"id": "c1", "name": "Acme"}, {"id": "c2", "title": "Globex"}},
		},
		fail: map[string]bool{"Tag": true},
	}
	c := NewOptionsCache(l)
	ctx := context.Background()

	c.Load(ctx, "Company", "Tag")
	c.Load(ctx, "company", "")

	assert.Equal(t, 1, l.calls["Company"], "cached by canonical key")
	assert.Zero(t, l.calls["company"])
	assert.Equal(t, []Option{{ID: "c1", Name: "Acme"}, {ID: "c2", Name: "Globex"}}, c.Options("COMPANY"))
	assert.Equal(t, []Option{}, c.Options("Tag"), "failures cache an empty list")
	assert.Equal(t, []Option{}, c.Options("Unknown"))
	assert.Len(t, c.Snapshot(), 2)
}

package activity

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testEntry(run, entity, state string, attempt int, final bool, offset time.Duration) Entry {
	return Entry{
		EventID:    fmt.Sprintf("%s-%s-%d", run, state, attempt),
		RunID:      run,
		EventType:  "generation_" + state,
		Entity:     entity,
		State:      state,
		Attempt:    attempt,
		Final:      final,
		Summary:    entity + " " + state,
		OccurredAt: base.Add(offset),
	}
}

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := NewSQLiteStore(db)
	require.NoError(t, s.CreateTable(context.Background()))
	return s
}

// stores runs each test against both implementations.
func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newSQLiteStore(t),
	}
}

func sampleEntries() []Entry {
	return []Entry{
		testEntry("r1", "Contact", "polling", 0, false, 0),
		testEntry("r1", "Contact", "polling", 1, false, 5*time.Second),
		testEntry("r1", "Contact", "completed", 2, true, 10*time.Second),
		testEntry("r2", "Company", "polling", 0, false, 20*time.Second),
		testEntry("r2", "Company", "failed", 0, true, 21*time.Second),
	}
}

func TestStore_WriteAndQuery(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.WriteEntries(ctx, sampleEntries()))

			all, cursor, total, err := store.Query(ctx, QueryOptions{})
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			assert.Empty(t, cursor)
			require.Len(t, all, 5)
			assert.Equal(t, "failed", all[0].State, "newest first")
			assert.True(t, all[0].Final)
			assert.True(t, all[0].OccurredAt.Equal(base.Add(21*time.Second)))

			contact, _, total, err := store.Query(ctx, QueryOptions{Entity: "Contact"})
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			for _, e := range contact {
				assert.Equal(t, "Contact", e.Entity)
			}

			finals, _, _, err := store.Query(ctx, QueryOptions{States: []string{"completed", "failed"}})
			require.NoError(t, err)
			assert.Len(t, finals, 2)
		})
	}
}

func TestStore_DuplicateEventIgnored(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := testEntry("r1", "Contact", "polling", 0, false, 0)
			require.NoError(t, store.WriteEntries(ctx, []Entry{e}))
			require.NoError(t, store.WriteEntries(ctx, []Entry{e}))

			_, _, total, err := store.Query(ctx, QueryOptions{})
			require.NoError(t, err)
			assert.Equal(t, 1, total)
		})
	}
}

func TestStore_Pagination(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.WriteEntries(ctx, sampleEntries()))

			page1, cursor, total, err := store.Query(ctx, QueryOptions{Limit: 2})
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			require.Len(t, page1, 2)
			require.NotEmpty(t, cursor)

			page2, _, total, err := store.Query(ctx, QueryOptions{Limit: 2, Cursor: cursor})
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			require.Len(t, page2, 2)
			assert.True(t, page2[0].OccurredAt.Before(page1[1].OccurredAt))
		})
	}
}

func TestStore_TimeWindow(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.WriteEntries(ctx, sampleEntries()))

			since := base.Add(5 * time.Second)
			until := base.Add(20 * time.Second)
			got, _, total, err := store.Query(ctx, QueryOptions{Since: &since, Until: &until})
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			assert.Len(t, got, 3)
		})
	}
}

func TestRuns(t *testing.T) {
	runs := Runs(sampleEntries())
	require.Len(t, runs, 2)

	assert.Equal(t, "r2", runs[0].RunID, "newest run first")
	assert.Equal(t, "failed", runs[0].State)
	require.NotNil(t, runs[0].FinishedAt)

	assert.Equal(t, "Contact", runs[1].Entity)
	assert.Equal(t, "completed", runs[1].State)
	assert.Equal(t, 2, runs[1].Attempts)
	assert.True(t, runs[1].StartedAt.Equal(base))

	open := Runs([]Entry{testEntry("r3", "Tag", "polling", 1, false, 0)})
	require.Len(t, open, 1)
	assert.Nil(t, open[0].FinishedAt)
}

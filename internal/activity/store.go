package activity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store is the interface for reading and writing journal entries.
type Store interface {
	// WriteEntries writes entries; already-stored event ids are ignored.
	WriteEntries(ctx context.Context, entries []Entry) error

	// Query returns entries newest first.
	Query(ctx context.Context, opts QueryOptions) (entries []Entry, nextCursor string, totalCount int, err error)
}

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore. Call CreateTable before use.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the generation_events table and its indexes.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS generation_events (
			event_id    TEXT PRIMARY KEY,
			run_id      TEXT NOT NULL,
			event_type  TEXT NOT NULL,
			entity      TEXT NOT NULL,
			state       TEXT NOT NULL,
			attempt     INTEGER NOT NULL DEFAULT 0,
			final       INTEGER NOT NULL DEFAULT 0,
			summary     TEXT NOT NULL,
			occurred_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_generation_entity_time
			ON generation_events (entity, occurred_at DESC);

		CREATE INDEX IF NOT EXISTS idx_generation_run
			ON generation_events (run_id, occurred_at);
	`)
	return err
}

// WriteEntries inserts entries in one statement.
func (s *SQLiteStore) WriteEntries(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(`INSERT OR IGNORE INTO generation_events (
		event_id, run_id, event_type, entity, state, attempt, final, summary, occurred_at
	) VALUES `)

	args := make([]any, 0, len(entries)*9)
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			e.EventID, e.RunID, e.EventType, e.Entity, e.State,
			e.Attempt, e.Final, e.Summary, e.OccurredAt.UnixNano(),
		)
	}

	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("writing generation events: %w", err)
	}
	return nil
}

// Query returns entries matching opts with cursor pagination.
func (s *SQLiteStore) Query(ctx context.Context, opts QueryOptions) ([]Entry, string, int, error) {
	limit := opts.limit()

	var conditions []string
	var args []any

	if opts.Entity != "" {
		conditions = append(conditions, "entity = ?")
		args = append(args, opts.Entity)
	}
	if opts.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, opts.RunID)
	}
	if len(opts.States) > 0 {
		placeholders := make([]string, len(opts.States))
		for i, st := range opts.States {
			placeholders[i] = "?"
			args = append(args, st)
		}
		conditions = append(conditions, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ", ")))
	}
	if opts.Since != nil {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, opts.Since.UnixNano())
	}
	if opts.Until != nil {
		conditions = append(conditions, "occurred_at <= ?")
		args = append(args, opts.Until.UnixNano())
	}

	where := "1 = 1"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}

	// The total ignores the cursor so pages report the same count.
	var totalCount int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM generation_events WHERE %s", where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, "", 0, fmt.Errorf("counting generation events: %w", err)
	}

	if cursor, ok := opts.cursorTime(); ok {
		where += " AND occurred_at < ?"
		args = append(args, cursor.UnixNano())
	}

	query := fmt.Sprintf(
		`SELECT event_id, run_id, event_type, entity, state, attempt, final, summary, occurred_at
		FROM generation_events
		WHERE %s
		ORDER BY occurred_at DESC, rowid DESC
		LIMIT ?`, where)
	args = append(args, limit+1) // fetch one extra for cursor

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", 0, fmt.Errorf("querying generation events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var occurred int64
		if err := rows.Scan(
			&e.EventID, &e.RunID, &e.EventType, &e.Entity, &e.State,
			&e.Attempt, &e.Final, &e.Summary, &occurred,
		); err != nil {
			return nil, "", 0, fmt.Errorf("scanning generation event: %w", err)
		}
		e.OccurredAt = time.Unix(0, occurred).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", 0, fmt.Errorf("reading generation events: %w", err)
	}

	var nextCursor string
	if len(entries) > limit {
		entries = entries[:limit]
		nextCursor = entries[len(entries)-1].OccurredAt.Format(time.RFC3339Nano)
	}

	return entries, nextCursor, totalCount, nil
}

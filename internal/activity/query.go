// Package activity is the journal of generation runs. Every state transition
// of a run is stored as an Entry; runs are reconstructed from their entries.
package activity

import (
	"sort"
	"time"
)

// Entry is one journaled generation event.
type Entry struct {
	EventID    string    `json:"eventId"`
	RunID      string    `json:"runId"`
	EventType  string    `json:"eventType"`
	Entity     string    `json:"entity"`
	State      string    `json:"state"`
	Attempt    int       `json:"attempt"`
	Final      bool      `json:"final"`
	Summary    string    `json:"summary"`
	OccurredAt time.Time `json:"occurredAt"`
}

// QueryOptions controls filtering and pagination for journal queries.
type QueryOptions struct {
	Entity string     // filter to one entity (exact name)
	RunID  string     // filter to one run
	States []string   // filter to specific states
	Since  *time.Time // inclusive lower bound
	Until  *time.Time // inclusive upper bound
	Limit  int        // max results (default: 100, max: 500)
	Cursor string     // cursor for pagination
}

// DefaultQueryOptions returns QueryOptions covering the last day.
func DefaultQueryOptions() QueryOptions {
	since := time.Now().Add(-24 * time.Hour)
	return QueryOptions{
		Since: &since,
		Limit: 100,
	}
}

func (o QueryOptions) limit() int {
	if o.Limit <= 0 || o.Limit > 500 {
		return 100
	}
	return o.Limit
}

func (o QueryOptions) cursorTime() (time.Time, bool) {
	if o.Cursor == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, o.Cursor)
	return t, err == nil
}

// Run summarises the entries of one generation run.
type Run struct {
	RunID      string     `json:"runId"`
	Entity     string     `json:"entity"`
	State      string     `json:"state"`
	Attempts   int        `json:"attempts"`
	Summary    string     `json:"summary"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Runs groups entries by run, newest run first. The latest entry of a run
// decides its state; once a final entry is seen only another final entry
// can replace it.
func Runs(entries []Entry) []Run {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})

	byID := make(map[string]*Run)
	for _, e := range sorted {
		r, ok := byID[e.RunID]
		if !ok {
			r = &Run{RunID: e.RunID, Entity: e.Entity, StartedAt: e.OccurredAt}
			byID[e.RunID] = r
		}
		if e.Attempt > r.Attempts {
			r.Attempts = e.Attempt
		}
		if r.FinishedAt != nil && !e.Final {
			continue
		}
		r.State = e.State
		r.Summary = e.Summary
		if e.Final {
			at := e.OccurredAt
			r.FinishedAt = &at
		}
	}

	out := make([]Run, 0, len(byID))
	for _, r := range byID {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].RunID < out[j].RunID
	})
	return out
}

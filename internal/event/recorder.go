// Package event provides generation event recording for the poller.
// Events are written to the activity journal, then published to the
// in-process event bus for downstream consumers.
package event

import (
	"context"

	"github.com/matthewbaird/lowcode-console/internal/activity"
)

// Recorder writes generation events.
type Recorder interface {
	Record(ctx context.Context, evt GenerationEvent) error
}

// Publisher sends generation events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt GenerationEvent)
}

// JournalRecorder implements Recorder by writing each event to an
// activity.Store. If a Publisher is set, the event is also published to the
// event bus after the store write succeeds.
type JournalRecorder struct {
	store activity.Store
	bus   Publisher
}

// NewJournalRecorder creates a JournalRecorder backed by the given store.
func NewJournalRecorder(store activity.Store) *JournalRecorder {
	return &JournalRecorder{store: store}
}

// SetPublisher attaches an event bus. Events are published after store writes.
func (r *JournalRecorder) SetPublisher(p Publisher) {
	r.bus = p
}

// Record journals the event and publishes it.
func (r *JournalRecorder) Record(ctx context.Context, evt GenerationEvent) error {
	entry := activity.Entry{
		EventID:    evt.ID,
		RunID:      evt.RunID,
		EventType:  evt.EventType,
		Entity:     evt.Entity,
		State:      evt.State,
		Attempt:    evt.Attempt,
		Final:      evt.Final,
		Summary:    evt.Summary,
		OccurredAt: evt.OccurredAt,
	}
	if err := r.store.WriteEntries(ctx, []activity.Entry{entry}); err != nil {
		return err
	}

	if r.bus != nil {
		r.bus.Publish(ctx, evt)
	}
	return nil
}

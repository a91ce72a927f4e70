package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generation event types.
const (
	TypeGenerationStarted   = "generation_started"
	TypeGenerationAttempt   = "generation_attempt"
	TypeGenerationCompleted = "generation_completed"
	TypeGenerationExhausted = "generation_exhausted"
	TypeGenerationFailed    = "generation_failed"
	TypeGenerationCancelled = "generation_cancelled"
)

// GenerationEvent is one state transition of a code-generation run.
type GenerationEvent struct {
	ID         string    `json:"id"`
	RunID      string    `json:"runId"`
	EventType  string    `json:"type"`
	Entity     string    `json:"entity"`
	State      string    `json:"state"`
	Attempt    int       `json:"attempt"`
	Final      bool      `json:"final"`
	Summary    string    `json:"summary"`
	OccurredAt time.Time `json:"occurredAt"`
}

func newID() string { return uuid.New().String() }

// NewRunID returns an identifier shared by all events of one run.
func NewRunID() string { return newID() }

func newGenerationEvent(runID, eventType, entity, state string, attempt int, final bool, summary string) GenerationEvent {
	return GenerationEvent{
		ID:         newID(),
		RunID:      runID,
		EventType:  eventType,
		Entity:     entity,
		State:      state,
		Attempt:    attempt,
		Final:      final,
		Summary:    summary,
		OccurredAt: time.Now().UTC(),
	}
}

func NewGenerationStarted(runID, entity, state string) GenerationEvent {
	return newGenerationEvent(runID, TypeGenerationStarted, entity, state, 0, false,
		fmt.Sprintf("Generation started for %s", entity))
}

func NewGenerationAttempt(runID, entity, state string, attempt int) GenerationEvent {
	return newGenerationEvent(runID, TypeGenerationAttempt, entity, state, attempt, false,
		fmt.Sprintf("Checked generation status of %s (attempt %d)", entity, attempt))
}

func NewGenerationCompleted(runID, entity, state string, attempt int) GenerationEvent {
	return newGenerationEvent(runID, TypeGenerationCompleted, entity, state, attempt, true,
		fmt.Sprintf("%s generated after %d checks", entity, attempt))
}

// NewGenerationExhausted marks a run that stopped polling without seeing
// completion. It is not a failure.
func NewGenerationExhausted(runID, entity, state string, attempt int) GenerationEvent {
	return newGenerationEvent(runID, TypeGenerationExhausted, entity, state, attempt, true,
		fmt.Sprintf("Stopped waiting for %s after %d checks", entity, attempt))
}

func NewGenerationFailed(runID, entity, state string, err error) GenerationEvent {
	return newGenerationEvent(runID, TypeGenerationFailed, entity, state, 0, true,
		fmt.Sprintf("Generation of %s failed: %v", entity, err))
}

func NewGenerationCancelled(runID, entity, state string, attempt int) GenerationEvent {
	return newGenerationEvent(runID, TypeGenerationCancelled, entity, state, attempt, true,
		fmt.Sprintf("Generation tracking of %s cancelled", entity))
}

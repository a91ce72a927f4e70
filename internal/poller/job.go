package poller

import (
	"context"
	"sync"
	"time"

	"github.com/matthewbaird/lowcode-console/internal/event"
)

// State is the lifecycle state of a generation run.
type State string

const (
	Idle       State = "idle"
	Requesting State = "requesting"
	Polling    State = "polling"
	Completed  State = "completed"
	Exhausted  State = "exhausted"
	Failed     State = "failed"
	Cancelled  State = "cancelled"
)

// Terminal reports whether no further transition can happen. Idle counts as
// terminal: nothing is in progress.
func (s State) Terminal() bool {
	return s != Requesting && s != Polling
}

// Result is a point-in-time view of a run.
type Result struct {
	RunID      string     `json:"runId"`
	Entity     string     `json:"entity"`
	State      State      `json:"state"`
	Attempts   int        `json:"attempts"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Job is one generation run for one entity.
type Job struct {
	RunID  string
	Entity string

	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	state      State
	attempts   int
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

func newJob(entity string, cancel context.CancelFunc) *Job {
	return &Job{
		RunID:     event.NewRunID(),
		Entity:    entity,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     Requesting,
		startedAt: time.Now().UTC(),
	}
}

// Done is closed once the run has ended and any final refresh has run.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Cancel stops the run.
func (j *Job) Cancel() {
	j.cancel()
}

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Attempts returns the number of polls made so far.
func (j *Job) Attempts() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.attempts
}

// Err returns the start failure of a Failed run.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Job) Result() Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	r := Result{
		RunID:     j.RunID,
		Entity:    j.Entity,
		State:     j.state,
		Attempts:  j.attempts,
		StartedAt: j.startedAt,
	}
	if j.err != nil {
		r.Error = j.err.Error()
	}
	if !j.finishedAt.IsZero() {
		at := j.finishedAt
		r.FinishedAt = &at
	}
	return r
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = s
}

func (j *Job) setAttempts(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.attempts = n
}

func (j *Job) end(s State, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = s
	j.err = err
	j.finishedAt = time.Now().UTC()
}

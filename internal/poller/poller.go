// Package poller tracks backend code generation per entity. A run first
// awaits the start call, then polls the entity list in the background until
// the entity reports itself generated, the attempts run out, or the context
// that scopes the run ends.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/matthewbaird/lowcode-console/internal/event"
	"github.com/matthewbaird/lowcode-console/internal/schema"
)

const (
	DefaultMaxAttempts = 36
	DefaultInterval    = 5 * time.Second
)

// ErrInProgress is returned by Start while a run for the entity is active.
var ErrInProgress = errors.New("poller: generation already in progress")

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("poller: closed")

// Gateway is the part of the gateway client the poller needs.
type Gateway interface {
	StartGeneration(ctx context.Context, name string) error
	ListEntities(ctx context.Context) ([]schema.EntitySchema, error)
}

// WaitFunc blocks for d or until ctx ends.
type WaitFunc func(ctx context.Context, d time.Duration) error

// RefreshFunc receives the entity list fetched when a run ends.
type RefreshFunc func(ctx context.Context, entities []schema.EntitySchema)

// Poller runs at most one generation run per entity name. Runs for
// different entities are independent.
type Poller struct {
	gw          Gateway
	recorder    event.Recorder
	onRefresh   RefreshFunc
	wait        WaitFunc
	maxAttempts int
	interval    time.Duration

	mu     sync.Mutex
	jobs   map[string]*Job // latest run per entity
	closed bool
	runs   sync.WaitGroup // one per run until its goroutine has unwound
}

// Option configures a Poller.
type Option func(*Poller)

// WithRecorder journals every state transition.
func WithRecorder(r event.Recorder) Option {
	return func(p *Poller) { p.recorder = r }
}

// WithRefresh installs the consumer of end-of-run entity list refreshes.
func WithRefresh(fn RefreshFunc) Option {
	return func(p *Poller) { p.onRefresh = fn }
}

// WithWait replaces the timer used between attempts.
func WithWait(fn WaitFunc) Option {
	return func(p *Poller) {
		if fn != nil {
			p.wait = fn
		}
	}
}

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// New creates a Poller backed by gw.
func New(gw Gateway, opts ...Option) *Poller {
	p := &Poller{
		gw:          gw,
		wait:        sleep,
		maxAttempts: DefaultMaxAttempts,
		interval:    DefaultInterval,
		jobs:        make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start requests generation of an entity and, once the request is accepted,
// polls for completion in the background. ctx scopes the whole run: when it
// ends, polling stops and the run is Cancelled. The first poll never begins
// before the start call has returned. A failed start call leaves the run in
// Failed and returns the gateway error.
func (p *Poller) Start(ctx context.Context, name string) (*Job, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if j, ok := p.jobs[name]; ok && !j.State().Terminal() {
		p.mu.Unlock()
		return nil, ErrInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	j := newJob(name, cancel)
	p.jobs[name] = j
	p.runs.Add(1)
	p.mu.Unlock()

	p.record(runCtx, event.NewGenerationStarted(j.RunID, name, string(Requesting)))

	if err := p.gw.StartGeneration(runCtx, name); err != nil {
		if runCtx.Err() != nil {
			p.finish(runCtx, j, Cancelled, nil)
		} else {
			p.finish(runCtx, j, Failed, err)
		}
		close(j.done)
		cancel()
		p.runs.Done()
		slog.WarnContext(ctx, "poller: start generation failed", "entity", name, "err", err)
		return nil, fmt.Errorf("starting generation of %s: %w", name, err)
	}

	j.setState(Polling)
	go p.poll(runCtx, j)
	return j, nil
}

// InProgress reports whether a run for name is requesting or polling.
func (p *Poller) InProgress(name string) bool {
	return !p.State(name).Terminal()
}

// State returns the state of the latest run for name, or Idle.
func (p *Poller) State(name string) State {
	p.mu.Lock()
	j, ok := p.jobs[name]
	p.mu.Unlock()
	if !ok {
		return Idle
	}
	return j.State()
}

// Job returns the latest run for name, or nil.
func (p *Poller) Job(name string) *Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jobs[name]
}

// Cancel stops an active run. It reports whether there was one.
func (p *Poller) Cancel(name string) bool {
	j := p.Job(name)
	if j == nil || j.State().Terminal() {
		return false
	}
	j.cancel()
	return true
}

// Close cancels every active run and waits until each has recorded its
// final transition and stopped. Start fails with ErrClosed afterwards. Call
// Close before stopping whatever the recorder publishes to.
func (p *Poller) Close() {
	p.mu.Lock()
	p.closed = true
	for _, j := range p.jobs {
		if !j.State().Terminal() {
			j.cancel()
		}
	}
	p.mu.Unlock()
	p.runs.Wait()
}

// Snapshot returns the latest run of every entity, sorted by entity name.
func (p *Poller) Snapshot() []Result {
	p.mu.Lock()
	jobs := make([]*Job, 0, len(p.jobs))
	for _, j := range p.jobs {
		jobs = append(jobs, j)
	}
	p.mu.Unlock()

	out := make([]Result, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Result())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Entity < out[k].Entity })
	return out
}

func (p *Poller) poll(ctx context.Context, j *Job) {
	defer p.runs.Done()
	defer close(j.done)
	defer j.cancel()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := p.wait(ctx, p.interval); err != nil {
			p.finish(ctx, j, Cancelled, nil)
			return
		}
		j.setAttempts(attempt)

		entities, err := p.gw.ListEntities(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.finish(ctx, j, Cancelled, nil)
				return
			}
			slog.DebugContext(ctx, "poller: poll failed", "entity", j.Entity, "attempt", attempt, "err", err)
			p.record(ctx, event.NewGenerationAttempt(j.RunID, j.Entity, string(Polling), attempt))
			continue
		}
		p.record(ctx, event.NewGenerationAttempt(j.RunID, j.Entity, string(Polling), attempt))

		if isGenerated(entities, j.Entity) {
			p.refresh(ctx, j.Entity)
			p.finish(ctx, j, Completed, nil)
			return
		}
	}

	// Running out of attempts is a soft timeout: generation may just be slow.
	p.finish(ctx, j, Exhausted, nil)
	slog.InfoContext(ctx, "poller: stopped waiting for generation", "entity", j.Entity, "attempts", p.maxAttempts)
	p.refresh(ctx, j.Entity)
}

// finish moves a run to a terminal state, which clears its in-progress
// marker, and records the transition.
func (p *Poller) finish(ctx context.Context, j *Job, s State, err error) {
	j.end(s, err)
	attempts := j.Attempts()
	var evt event.GenerationEvent
	switch s {
	case Completed:
		evt = event.NewGenerationCompleted(j.RunID, j.Entity, string(s), attempts)
	case Exhausted:
		evt = event.NewGenerationExhausted(j.RunID, j.Entity, string(s), attempts)
	case Failed:
		evt = event.NewGenerationFailed(j.RunID, j.Entity, string(s), err)
	default:
		evt = event.NewGenerationCancelled(j.RunID, j.Entity, string(s), attempts)
	}
	p.record(ctx, evt)
}

func (p *Poller) refresh(ctx context.Context, name string) {
	entities, err := p.gw.ListEntities(ctx)
	if err != nil {
		slog.WarnContext(ctx, "poller: refreshing entities failed", "entity", name, "err", err)
		return
	}
	if p.onRefresh != nil {
		p.onRefresh(ctx, entities)
	}
}

// record journals evt. Recording outlives cancellation of the run so the
// cancelled transition itself is kept.
func (p *Poller) record(ctx context.Context, evt event.GenerationEvent) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(context.WithoutCancel(ctx), evt); err != nil {
		slog.WarnContext(ctx, "poller: recording event failed", "type", evt.EventType, "entity", evt.Entity, "err", err)
	}
}

func isGenerated(entities []schema.EntitySchema, name string) bool {
	for _, e := range entities {
		if e.Name == name {
			return e.IsGenerated
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package eventbus provides an in-process pub/sub bus for generation events.
// The poller publishes after journaling; subscribers process events
// asynchronously in a single consumer goroutine.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/matthewbaird/lowcode-console/internal/event"
)

// Handler processes a generation event. Implementations must be safe for
// concurrent calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.GenerationEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.GenerationEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.GenerationEvent) error {
	return f(ctx, evt)
}

// Bus fans generation events out to its subscribers. Published events queue
// in a buffered channel and a single consumer dispatches them in publish
// order, so subscribers never see two events at once.
type Bus struct {
	mu          sync.RWMutex // guards subscribers and closed
	subscribers []namedHandler
	closed      bool

	events  chan event.GenerationEvent
	started chan struct{}
	done    chan struct{}
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a Bus that queues up to bufSize events.
func New(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	return &Bus{
		events:  make(chan event.GenerationEvent, bufSize),
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish queues evt without blocking. The event is dropped with a warning
// when the queue is full or the bus has been stopped.
func (b *Bus) Publish(ctx context.Context, evt event.GenerationEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		slog.WarnContext(ctx, "eventbus: bus stopped, dropping event", "type", evt.EventType, "id", evt.ID)
		return
	}
	select {
	case b.events <- evt:
	default:
		slog.WarnContext(ctx, "eventbus: buffer full, dropping event", "type", evt.EventType, "id", evt.ID)
	}
}

// Start launches the consumer. It runs until Stop, dispatching with a
// context detached from ctx's cancellation so that the final transitions
// published during shutdown still reach subscribers. Call it once.
func (b *Bus) Start(ctx context.Context) {
	close(b.started)
	go b.run(context.WithoutCancel(ctx))
}

func (b *Bus) run(ctx context.Context) {
	defer close(b.done)
	for evt := range b.events {
		b.dispatch(ctx, evt)
	}
}

// Stop closes the bus and waits for the consumer to finish. Later Publish
// calls drop their events. Stop is idempotent.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.events)
	}
	b.mu.Unlock()

	select {
	case <-b.started:
		<-b.done
	default:
	}
}

func (b *Bus) dispatch(ctx context.Context, evt event.GenerationEvent) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			slog.WarnContext(ctx, "eventbus: handler error", "handler", s.name, "type", evt.EventType, "err", err)
		}
	}
}

package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/matthewbaird/lowcode-console/internal/event"
)

// Broadcaster fans events out to dynamic listeners such as websocket
// connections. Slow listeners lose events rather than stall the bus.
type Broadcaster struct {
	mu        sync.Mutex
	listeners map[int]chan event.GenerationEvent
	next      int
	bufSize   int
}

// NewBroadcaster creates a Broadcaster whose listener channels hold bufSize events.
func NewBroadcaster(bufSize int) *Broadcaster {
	if bufSize < 1 {
		bufSize = 16
	}
	return &Broadcaster{listeners: make(map[int]chan event.GenerationEvent), bufSize: bufSize}
}

// Listen registers a listener. The returned cancel func unregisters it and
// closes the channel.
func (b *Broadcaster) Listen() (<-chan event.GenerationEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan event.GenerationEvent, b.bufSize)
	b.listeners[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
			close(ch)
		})
	}
}

// Len returns the number of registered listeners.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func (b *Broadcaster) HandleEvent(ctx context.Context, evt event.GenerationEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.listeners {
		select {
		case ch <- evt:
		default:
			slog.DebugContext(ctx, "eventbus: listener full, dropping event", "listener", id, "type", evt.EventType)
		}
	}
	return nil
}

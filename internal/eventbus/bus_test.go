package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/lowcode-console/internal/event"
)

func TestBus_DispatchesInOrder(t *testing.T) {
	bus := New(8)
	var mu sync.Mutex
	var got []string
	bus.Subscribe("collect", HandlerFunc(func(_ context.Context, evt event.GenerationEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt.EventType)
		return nil
	}))
	bus.Subscribe("failing", HandlerFunc(func(context.Context, event.GenerationEvent) error {
		return errors.New("ignored")
	}))
	bus.Start(context.Background())

	run := event.NewRunID()
	bus.Publish(context.Background(), event.NewGenerationStarted(run, "Contact", "polling"))
	bus.Publish(context.Background(), event.NewGenerationCompleted(run, "Contact", "completed", 3))
	bus.Stop()

	assert.Equal(t, []string{event.TypeGenerationStarted, event.TypeGenerationCompleted}, got)
}

func TestBus_DrainsOnCancel(t *testing.T) {
	bus := New(8)
	var count int
	var mu sync.Mutex
	bus.Subscribe("count", HandlerFunc(func(context.Context, event.GenerationEvent) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))
	for i := 0; i < 3; i++ {
		bus.Publish(context.Background(), event.NewGenerationAttempt("r", "Contact", "polling", i+1))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Start(ctx)
	bus.Stop()

	assert.Equal(t, 3, count)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := New(1)
	bus.Publish(context.Background(), event.NewGenerationStarted("r", "A", "polling"))
	bus.Publish(context.Background(), event.NewGenerationStarted("r", "B", "polling"))
	assert.Len(t, bus.events, 1)
}

func TestBus_PublishAfterStopDrops(t *testing.T) {
	bus := New(4)
	var count int
	bus.Subscribe("count", HandlerFunc(func(context.Context, event.GenerationEvent) error {
		count++
		return nil
	}))
	bus.Start(context.Background())
	bus.Publish(context.Background(), event.NewGenerationStarted("r", "Contact", "polling"))
	bus.Stop()

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), event.NewGenerationCancelled("r", "Contact", "cancelled", 1))
	})
	assert.NotPanics(t, bus.Stop, "second stop")
	assert.Equal(t, 1, count)
}

func TestBus_ConcurrentPublishAndStop(t *testing.T) {
	bus := New(64)
	bus.Start(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				bus.Publish(context.Background(), event.NewGenerationAttempt("r", "Contact", "polling", k+1))
			}
		}()
	}
	bus.Stop()
	wg.Wait()
}

func TestBus_StopWithoutStart(t *testing.T) {
	bus := New(1)
	done := make(chan struct{})
	go func() {
		bus.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a bus that was never started")
	}
}

func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster(1)
	ch1, cancel1 := b.Listen()
	ch2, cancel2 := b.Listen()
	assert.Equal(t, 2, b.Len())

	evt := event.NewGenerationStarted("r", "Contact", "polling")
	require.NoError(t, b.HandleEvent(context.Background(), evt))
	require.NoError(t, b.HandleEvent(context.Background(), evt), "full listeners drop")

	select {
	case got := <-ch1:
		assert.Equal(t, evt.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	assert.Len(t, ch2, 1)

	cancel1()
	cancel1()
	_, open := <-ch1
	assert.False(t, open)
	assert.Equal(t, 1, b.Len())
	cancel2()
	assert.Zero(t, b.Len())
}

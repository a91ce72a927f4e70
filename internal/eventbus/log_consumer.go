package eventbus

import (
	"context"
	"log/slog"

	"github.com/matthewbaird/lowcode-console/internal/event"
)

// LogConsumer logs all generation events for observability.
type LogConsumer struct {
	logger *slog.Logger
}

func NewLogConsumer(logger *slog.Logger) *LogConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogConsumer{logger: logger}
}

func (c *LogConsumer) HandleEvent(ctx context.Context, evt event.GenerationEvent) error {
	level := slog.LevelDebug
	if evt.Final || evt.EventType == event.TypeGenerationStarted {
		level = slog.LevelInfo
	}
	c.logger.Log(ctx, level, "event: "+evt.Summary,
		"type", evt.EventType, "entity", evt.Entity, "state", evt.State,
		"attempt", evt.Attempt, "run", evt.RunID)
	return nil
}

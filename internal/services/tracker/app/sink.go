package app

import (
	"context"
	"log"

	"github.com/louisbranch/pokeachieve/internal/services/tracker/engine"
)

// Sink receives unlock events outside the poll goroutine.
type Sink interface {
	Unlocked(ctx context.Context, event engine.UnlockEvent)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event engine.UnlockEvent)

// Unlocked calls f.
func (f SinkFunc) Unlocked(ctx context.Context, event engine.UnlockEvent) {
	f(ctx, event)
}

// LogSink writes unlocks to the process log.
type LogSink struct{}

// Unlocked logs the event.
func (LogSink) Unlocked(_ context.Context, event engine.UnlockEvent) {
	log.Printf("unlocked %q (%s) +%d points, session %s", event.Name, event.AchievementID, event.Points, event.SessionID)
}

package services

import (
	"context"

	"ecoxchange/internal/marketplace"
	"ecoxchange/models"
)

// EventSink receives market events. Publishing is best effort: sinks log
// their own failures and never block the user action for long.
type EventSink interface {
	Publish(ctx context.Context, event models.MarketEvent)
}

// StateObserver is told about every state a session moves to.
type StateObserver interface {
	StateChanged(sessionID string, state marketplace.State)
}

// Fanout forwards each event to every sink.
type Fanout []EventSink

func (f Fanout) Publish(ctx context.Context, event models.MarketEvent) {
	for _, sink := range f {
		sink.Publish(ctx, event)
	}
}

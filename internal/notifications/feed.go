package notifications

import (
	"context"
	"log/slog"

	"struggles/internal/middleware"
)

// Publisher announces that the data behind some topics changed.
type Publisher interface {
	Publish(ctx context.Context, topics ...string)
}

// Feed signals local watchers immediately and fans the change out to other
// instances through the Notifier when Redis is configured.
type Feed struct {
	hub      *Hub
	notifier *Notifier
}

// NewFeed returns a Feed over hub. notifier may be nil for a single instance.
func NewFeed(hub *Hub, notifier *Notifier) *Feed {
	return &Feed{hub: hub, notifier: notifier}
}

// Publish never fails the caller: the write it follows is already committed.
// Redis failures are logged and only affect other instances.
func (f *Feed) Publish(ctx context.Context, topics ...string) {
	for _, topic := range topics {
		f.hub.Signal(topic)
		if err := f.notifier.Publish(ctx, topic); err != nil {
			middleware.Logger.WarnContext(ctx, "live publish failed",
				slog.String("topic", topic), slog.String("error", err.Error()))
		}
	}
}

package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"

	"struggles/internal/middleware"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const livePattern = "live:*"

// ChatsTopic is the channel signalled when any chat of userID changes.
func ChatsTopic(userID string) string {
	return "live:chats:user:" + userID
}

// MessagesTopic is the channel signalled when a message is added to chatID.
func MessagesTopic(chatID string) string {
	return "live:messages:chat:" + chatID
}

// Notifier carries change signals between instances over Redis pub/sub. The
// payload is the publishing instance's origin ID.
type Notifier struct {
	rdb    *redis.Client
	origin string
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client makes every method a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, origin: uuid.NewString()}
}

// Origin identifies this process in published payloads.
func (n *Notifier) Origin() string { return n.origin }

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool { return n != nil && n.rdb != nil }

// Publish announces a change on topic to every instance.
func (n *Notifier) Publish(ctx context.Context, topic string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, topic, n.origin).Err()
}

// StartPatternSubscriber subscribes to `live:*` and calls onMessage for each
// incoming signal until ctx is done. It returns once the subscription is
// confirmed by the server.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, livePattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in live subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

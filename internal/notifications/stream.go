package notifications

import (
	"context"
	"log/slog"
	"sync"

	"struggles/internal/middleware"
	"struggles/internal/observability"
)

// FetchFunc loads the full, ordered result set a stream publishes.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Stream pushes a fresh snapshot every time its topic is signalled. Only the
// latest undelivered snapshot is kept. Fetch errors go to Errors and the
// stream keeps running; it ends only on Cancel, parent context cancellation
// or hub shutdown, after which Updates and Errors are closed.
type Stream[T any] struct {
	kind    string
	topic   string
	fetch   FetchFunc[T]
	updates chan []T
	errs    chan error
	cancel  context.CancelFunc
	once    sync.Once
	done    chan struct{}
}

// Open starts a stream on topic. The watcher is registered before the first
// fetch, so a change committed during that fetch still triggers a refresh.
func Open[T any](ctx context.Context, hub *Hub, kind, topic string, fetch FetchFunc[T]) (*Stream[T], error) {
	w, err := hub.Watch(topic)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[T]{
		kind:    kind,
		topic:   topic,
		fetch:   fetch,
		updates: make(chan []T, 1),
		errs:    make(chan error, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	observability.LiveSubscriptions.WithLabelValues(kind).Inc()
	go s.pump(ctx, hub, w)
	return s, nil
}

// Updates delivers full snapshots in commit order.
func (s *Stream[T]) Updates() <-chan []T { return s.updates }

// Errors delivers fetch failures. Unread errors are dropped; all are logged.
func (s *Stream[T]) Errors() <-chan error { return s.errs }

// Done is closed once the stream has stopped.
func (s *Stream[T]) Done() <-chan struct{} { return s.done }

// Cancel stops the stream and waits for it to release its watcher. Calling
// it again is a no-op.
func (s *Stream[T]) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *Stream[T]) pump(ctx context.Context, hub *Hub, w *Watcher) {
	defer close(s.done)
	defer close(s.errs)
	defer close(s.updates)
	defer observability.LiveSubscriptions.WithLabelValues(s.kind).Dec()
	defer hub.Unwatch(w)

	s.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-w.C:
			if !ok {
				return
			}
			s.refresh(ctx)
		}
	}
}

func (s *Stream[T]) refresh(ctx context.Context) {
	items, err := s.fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		observability.LiveErrors.WithLabelValues(s.kind).Inc()
		middleware.Logger.WarnContext(ctx, "live snapshot fetch failed",
			slog.String("kind", s.kind), slog.String("topic", s.topic), slog.String("error", err.Error()))
		select {
		case s.errs <- err:
		default:
		}
		return
	}

	// The pump is the only sender, so after draining a stale snapshot the
	// send cannot block.
	select {
	case s.updates <- items:
	default:
		select {
		case <-s.updates:
		default:
		}
		s.updates <- items
	}
	observability.LiveSnapshots.WithLabelValues(s.kind).Inc()
}

// Listen drives onUpdate from the stream on its own goroutine and returns the
// stream's cancel function. onUpdate may call the returned function itself.
func Listen[T any](s *Stream[T], onUpdate func([]T)) func() {
	go func() {
		for snapshot := range s.updates {
			onUpdate(snapshot)
		}
	}()
	go func() {
		for range s.errs {
		}
	}()
	return s.Cancel
}

// Package notifications delivers live snapshot streams. Change signals flow
// from writers through the Hub (and Redis, across instances) to open streams,
// which refetch and push the full result set.
package notifications

import (
	"context"
	"errors"
	"sync"

	"struggles/internal/middleware"
	"struggles/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
	// Max watchers across all topics
	maxWatchers = 50000
)

// ErrHubClosed is returned when registering on a hub that has shut down.
var ErrHubClosed = errors.New("live hub is shut down")

// Watcher receives a coalesced signal on C whenever its topic changes. C is
// closed when the hub shuts down.
type Watcher struct {
	topic  string
	C      chan struct{}
	closed bool
}

// Hub maps topics to watchers and userID to live websocket clients.
type Hub struct {
	mu         sync.RWMutex
	topics     map[string]map[*Watcher]struct{}
	watchers   int
	conns      map[string]map[*Client]struct{}
	totalConns int
	closed     bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Watcher]struct{}),
		conns:  make(map[string]map[*Client]struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "live hub" }

// Watch registers interest in topic.
func (h *Hub) Watch(topic string) (*Watcher, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.watchers >= maxWatchers {
		return nil, errors.New("live watcher limit reached")
	}

	w := &Watcher{topic: topic, C: make(chan struct{}, 1)}
	m, ok := h.topics[topic]
	if !ok {
		m = make(map[*Watcher]struct{})
		h.topics[topic] = m
	}
	m[w] = struct{}{}
	h.watchers++
	return w, nil
}

// Unwatch removes w. Safe to call more than once and after Shutdown.
func (h *Hub) Unwatch(w *Watcher) {
	if w == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if m, ok := h.topics[w.topic]; ok {
		if _, exists := m[w]; exists {
			delete(m, w)
			h.watchers--
		}
		if len(m) == 0 {
			delete(h.topics, w.topic)
		}
	}
}

// Signal wakes every watcher of topic. A watcher that has not consumed its
// previous signal keeps a single pending one.
func (h *Hub) Signal(topic string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for w := range h.topics[topic] {
		select {
		case w.C <- struct{}{}:
		default:
			observability.LiveSignalsDropped.Inc()
		}
	}
}

// Watchers reports how many watchers are registered for topic.
func (h *Hub) Watchers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Register a connection for a given userID. Returns the Client or error if limits exceeded.
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	middleware.ActiveWebSockets.Inc()
	return client, nil
}

// UnregisterClient drops client from the hub.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m, ok := h.conns[client.UserID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			middleware.ActiveWebSockets.Dec()
		}
		if len(m) == 0 {
			delete(h.conns, client.UserID)
		}
	}
}

// IsOnline reports whether a user currently has at least one live socket.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// StartWiring connects the Notifier to this hub: signals published by other
// instances are replayed locally. Echoes of this instance's own publishes are
// skipped since they were already signalled.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, origin string) {
		if origin == n.Origin() {
			return
		}
		h.Signal(channel)
	})
}

// Shutdown closes every watcher channel, which ends all streams, and tells
// every websocket client to close its connection.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for _, m := range h.topics {
		for w := range m {
			if !w.closed {
				w.closed = true
				close(w.C)
			}
		}
	}
	h.topics = make(map[string]map[*Watcher]struct{})
	h.watchers = 0

	for _, userConns := range h.conns {
		for client := range userConns {
			client.Disconnect()
		}
		middleware.ActiveWebSockets.Sub(float64(len(userConns)))
	}
	h.conns = make(map[string]map[*Client]struct{})
	h.totalConns = 0
	return nil
}

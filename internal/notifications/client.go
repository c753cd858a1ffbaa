package notifications

import (
	"log/slog"
	"sync"
	"time"

	"struggles/internal/middleware"
	"struggles/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Streams are server to client.
	maxMessageSize = 4096

	sendBuffer = 16
)

// WSHub is an interface for hubs that manage generic clients
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is a middleman between the websocket connection and a live stream.
type Client struct {
	Hub WSHub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound frames.
	Send chan []byte

	UserID string

	// Stream labels backpressure metrics, e.g. "chats" or "messages".
	Stream string

	closing   chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new Client instance
func NewClient(hub WSHub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Stream: hub.Name(),
		Send:    make(chan []byte, sendBuffer),
		closing: make(chan struct{}),
	}
}

// Disconnect asks WritePump to send a going-away close frame and stop. Only
// WritePump writes to the connection. Safe to call more than once.
func (c *Client) Disconnect() {
	c.closeOnce.Do(func() { close(c.closing) })
}

// ReadPump consumes control frames until the peer goes away. Inbound data
// frames are ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed",
					slog.String("user_id", c.UserID), slog.String("stream", c.Stream), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump pumps frames to the websocket connection until Send is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closing:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				middleware.Logger.Warn("failed to write close message",
					slog.String("user_id", c.UserID), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// TrySend queues a frame without blocking. Frames are full snapshots, so when
// the buffer is full the oldest queued frame is discarded to make room. It
// reports false only when the client is gone.
func (c *Client) TrySend(message []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Stream, "closed").Inc()
			sent = false
		}
	}()

	for {
		select {
		case c.Send <- message:
			return true
		default:
		}

		select {
		case _, ok := <-c.Send:
			if !ok {
				observability.WebSocketBackpressureDrops.WithLabelValues(c.Stream, "closed").Inc()
				return false
			}
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Stream, "superseded").Inc()
			middleware.Logger.Debug("websocket buffer full, replaced oldest frame",
				slog.String("user_id", c.UserID), slog.String("stream", c.Stream))
		default:
		}
	}
}

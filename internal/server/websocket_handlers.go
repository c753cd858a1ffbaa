package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"struggles/internal/middleware"
	"struggles/internal/models"
	"struggles/internal/notifications"
	"struggles/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Frame types pushed to live stream sockets.
const (
	frameChats    = service.StreamChats
	frameMessages = service.StreamMessages
	frameError    = "error"
)

// streamFrame is one websocket message. Payload carries a full snapshot.
type streamFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ChatsStreamHandler handles GET /api/ws/chats. Every change to one of the
// user's chats pushes the full, reordered chat list.
func (s *Server) ChatsStreamHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(middleware.LocalUserID).(string)
		ctx := middleware.WithUserID(context.Background(), userID)
		serveStream(ctx, s.hub, conn, userID, frameChats, func() (*notifications.Stream[models.Chat], error) {
			return s.chatService.SubscribeChatsForUser(ctx, userID)
		})
	})
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}

// MessagesStreamHandler handles GET /api/ws/chats/:id/messages. Participation
// is checked before the upgrade so outsiders get a plain 403.
func (s *Server) MessagesStreamHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(middleware.LocalUserID).(string)
		chatID := conn.Params("id")
		ctx := middleware.WithUserID(context.Background(), userID)
		serveStream(ctx, s.hub, conn, userID, frameMessages, func() (*notifications.Stream[models.Message], error) {
			return s.chatService.SubscribeMessages(ctx, chatID)
		})
	})
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if _, err := s.chatService.GetChatForUser(c.UserContext(), c.Params("id"), currentUserID(c)); err != nil {
			return models.Respond(c, err)
		}
		return upgrade(c)
	}
}

// serveStream ties a live stream to a socket for the life of the connection.
// Closing the socket cancels the stream; ending the stream (hub shutdown)
// leaves the hub to close the socket.
func serveStream[T any](
	ctx context.Context,
	hub *notifications.Hub,
	conn *websocket.Conn,
	userID, kind string,
	open func() (*notifications.Stream[T], error),
) {
	client, err := hub.Register(userID, conn)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "live stream rejected",
			slog.String("stream", kind), slog.String("error", err.Error()))
		writeFrameNow(conn, errorFrame(err))
		_ = conn.Close()
		return
	}
	client.Stream = kind

	stream, err := open()
	if err != nil {
		hub.UnregisterClient(client)
		writeFrameNow(conn, errorFrame(err))
		_ = conn.Close()
		return
	}

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		forwardStream(ctx, client, kind, stream)
	}()
	go client.WritePump()

	client.ReadPump()

	stream.Cancel()
	<-forwarded
	close(client.Send)
}

func forwardStream[T any](ctx context.Context, client *notifications.Client, kind string, stream *notifications.Stream[T]) {
	for {
		select {
		case snapshot, ok := <-stream.Updates():
			if !ok {
				return
			}
			if snapshot == nil {
				snapshot = []T{}
			}
			if frame, err := json.Marshal(streamFrame{Type: kind, Payload: snapshot}); err == nil {
				client.TrySend(frame)
			} else {
				middleware.Logger.ErrorContext(ctx, "encode live frame failed",
					slog.String("stream", kind), slog.String("error", err.Error()))
			}
		case err, ok := <-stream.Errors():
			if !ok {
				return
			}
			if frame, merr := json.Marshal(errorFrame(err)); merr == nil {
				client.TrySend(frame)
			}
		}
	}
}

// errorFrame exposes AppError messages; anything else is reported generically.
func errorFrame(err error) streamFrame {
	msg := "Live updates are temporarily unavailable"
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code != models.CodeUnavailable {
		msg = appErr.Message
	}
	return streamFrame{Type: frameError, Error: msg}
}

func writeFrameNow(conn *websocket.Conn, frame streamFrame) {
	if b, err := json.Marshal(frame); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, b)
	}
}

// Package service provides application business logic (chats, stories, users, teams).
package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"struggles/internal/models"
	"struggles/internal/notifications"
	"struggles/internal/observability"
	"struggles/internal/repository"
	"struggles/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// Stream kinds, used as metric labels.
const (
	StreamChats    = "chats"
	StreamMessages = "messages"
)

// ChatService provides chat and message business logic.
type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	hub      *notifications.Hub
	feed     notifications.Publisher
	clock    *models.MessageClock
}

// SendMessageInput is the input for sending a message.
type SendMessageInput struct {
	ChatID   string
	SenderID string
	Text     string
}

// NewChatService returns a new ChatService. feed defaults to signalling hub only.
func NewChatService(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	hub *notifications.Hub,
	feed notifications.Publisher,
) *ChatService {
	if feed == nil {
		feed = notifications.NewFeed(hub, nil)
	}
	return &ChatService{
		chatRepo: chatRepo,
		userRepo: userRepo,
		hub:      hub,
		feed:     feed,
		clock:    models.NewMessageClock(),
	}
}

// CreateOrGetChat returns the single chat between userA and userB, creating
// it on first contact. Argument order does not matter.
func (s *ChatService) CreateOrGetChat(ctx context.Context, userA, userB string) (*models.Chat, error) {
	span, ctx := observability.StartService(ctx, "ChatService", "CreateOrGetChat")
	defer span.End()

	if models.IsBlank(userA) || models.IsBlank(userB) {
		return nil, models.NewInvalidArgumentError("Both participants are required")
	}
	if userA == userB {
		return nil, models.NewInvalidArgumentError("Cannot start a chat with yourself")
	}

	users, err := s.userRepo.GetByIDs(ctx, []string{userA, userB})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(users) < 2 {
		missing := userB
		for _, u := range users {
			if u.ID == userB {
				missing = userA
			}
		}
		return nil, models.NewNotFoundError("User", missing)
	}

	_, now := s.clock.Next()
	chat, created, err := s.chatRepo.CreateOrGet(ctx, userA, userB, now)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.AddAttributes(attribute.String("chat.id", chat.ID), attribute.Bool("chat.created", created))
	chat.Participants = summaries(users, chat.ParticipantIDs)

	if created {
		observability.ChatsCreated.Inc()
		s.feed.Publish(ctx, notifications.ChatsTopic(chat.ParticipantA), notifications.ChatsTopic(chat.ParticipantB))
	}
	return chat, nil
}

// GetChatForUser returns the chat if userID is one of its participants.
func (s *ChatService) GetChatForUser(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	if models.IsBlank(chatID) {
		return nil, models.NewInvalidArgumentError("Chat ID is required")
	}
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, models.NewForbiddenError("You are not a participant in this chat")
	}
	if err := s.attachParticipants(ctx, []*models.Chat{chat}); err != nil {
		return nil, err
	}
	return chat, nil
}

// SendMessage appends a message and moves the chat summary in one transaction,
// then signals both participants and the chat's message stream.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	span, ctx := observability.StartService(ctx, "ChatService", "SendMessage",
		attribute.String("chat.id", in.ChatID))
	defer span.End()

	if models.IsBlank(in.ChatID) || models.IsBlank(in.SenderID) || models.IsBlank(in.Text) {
		return nil, models.NewInvalidArgumentError("Chat, sender and text are required")
	}
	if utf8.RuneCountInString(in.Text) > validation.MessageMaxLength {
		return nil, models.NewInvalidArgumentError(
			fmt.Sprintf("Message too long (max %d characters)", validation.MessageMaxLength))
	}

	chat, err := s.chatRepo.GetByID(ctx, in.ChatID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if !chat.HasParticipant(in.SenderID) {
		return nil, models.NewForbiddenError("You are not a participant in this chat")
	}

	id, createdAt := s.clock.Next()
	msg := &models.Message{
		ID:        id,
		ChatID:    chat.ID,
		SenderID:  in.SenderID,
		Text:      in.Text,
		CreatedAt: createdAt,
	}
	if _, err := s.chatRepo.AppendMessage(ctx, msg); err != nil {
		span.SetError(err)
		return nil, err
	}

	observability.MessagesSent.Inc()
	s.feed.Publish(ctx,
		notifications.MessagesTopic(chat.ID),
		notifications.ChatsTopic(chat.ParticipantA),
		notifications.ChatsTopic(chat.ParticipantB),
	)
	return msg, nil
}

// ListChats returns the user's chats, most recent activity first, with the
// participants' public summaries attached.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	if models.IsBlank(userID) {
		return nil, models.NewInvalidArgumentError("User ID is required")
	}
	chats, err := s.chatRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*models.Chat, len(chats))
	for i := range chats {
		ptrs[i] = &chats[i]
	}
	if err := s.attachParticipants(ctx, ptrs); err != nil {
		return nil, err
	}
	return chats, nil
}

// ListMessages returns the chat's messages oldest first.
func (s *ChatService) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	if models.IsBlank(chatID) {
		return nil, models.NewInvalidArgumentError("Chat ID is required")
	}
	return s.chatRepo.ListMessages(ctx, chatID)
}

// SubscribeChatsForUser streams the user's full chat list every time one of
// their chats changes.
func (s *ChatService) SubscribeChatsForUser(ctx context.Context, userID string) (*notifications.Stream[models.Chat], error) {
	if models.IsBlank(userID) {
		return nil, models.NewInvalidArgumentError("User ID is required")
	}
	return notifications.Open(ctx, s.hub, StreamChats, notifications.ChatsTopic(userID),
		func(ctx context.Context) ([]models.Chat, error) {
			return s.ListChats(ctx, userID)
		})
}

// SubscribeMessages streams the chat's full message list every time a message
// is added.
func (s *ChatService) SubscribeMessages(ctx context.Context, chatID string) (*notifications.Stream[models.Message], error) {
	if models.IsBlank(chatID) {
		return nil, models.NewInvalidArgumentError("Chat ID is required")
	}
	if _, err := s.chatRepo.GetByID(ctx, chatID); err != nil {
		return nil, err
	}
	return notifications.Open(ctx, s.hub, StreamMessages, notifications.MessagesTopic(chatID),
		func(ctx context.Context) ([]models.Message, error) {
			return s.chatRepo.ListMessages(ctx, chatID)
		})
}

func (s *ChatService) attachParticipants(ctx context.Context, chats []*models.Chat) error {
	if len(chats) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	ids := make([]string, 0, len(chats)*2)
	for _, c := range chats {
		for _, id := range c.ParticipantIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, c := range chats {
		c.Participants = summaries(users, c.ParticipantIDs)
	}
	return nil
}

// summaries returns the public summaries of ids in order, skipping unknown users.
func summaries(users []models.User, ids []string) []models.UserSummary {
	byID := make(map[string]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	out := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u.Summary())
		}
	}
	return out
}

package repository

import (
	"context"
	"time"

	"struggles/internal/models"
	"struggles/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for chat data operations
type ChatRepository interface {
	CreateOrGet(ctx context.Context, userA, userB string, now time.Time) (*models.Chat, bool, error)
	GetByID(ctx context.Context, id string) (*models.Chat, error)
	ListForUser(ctx context.Context, userID string) ([]models.Chat, error)
	AppendMessage(ctx context.Context, msg *models.Message) (*models.Chat, error)
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// chatRepository implements ChatRepository
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// CreateOrGet inserts the chat for the pair unless it exists and returns the
// stored row. The boolean reports whether this call created it. Concurrent
// callers race on the primary key, so exactly one insert wins.
func (r *chatRepository) CreateOrGet(ctx context.Context, userA, userB string, now time.Time) (*models.Chat, bool, error) {
	defer observability.TrackQuery("upsert", "chats")()

	chat := models.NewChat(userA, userB, now)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(chat)
	if res.Error != nil {
		return nil, false, models.NewUnavailableError(res.Error)
	}

	stored, err := r.GetByID(ctx, chat.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, res.RowsAffected > 0, nil
}

func (r *chatRepository) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).First(&chat, "id = ?", id).Error; err != nil {
		return nil, storeError(err, "Chat", id)
	}
	return &chat, nil
}

// ListForUser returns the user's chats, most recent activity first.
func (r *chatRepository) ListForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	defer observability.TrackQuery("select", "chats")()
	chats := []models.Chat{}
	err := r.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("last_message_at DESC").Order("id ASC").
		Find(&chats).Error
	if err != nil {
		return nil, models.NewUnavailableError(err)
	}
	return chats, nil
}

// AppendMessage inserts msg and moves the chat summary forward in a single
// transaction. The summary never moves back to an older message.
func (r *chatRepository) AppendMessage(ctx context.Context, msg *models.Message) (*models.Chat, error) {
	defer observability.TrackQuery("insert", "messages")()

	var chat models.Chat
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&chat, "id = ?", msg.ChatID).Error; err != nil {
			return storeError(err, "Chat", msg.ChatID)
		}
		if err := tx.Create(msg).Error; err != nil {
			return models.NewUnavailableError(err)
		}
		res := tx.Model(&models.Chat{}).
			Where("id = ? AND last_message_at <= ?", msg.ChatID, msg.CreatedAt).
			Updates(map[string]interface{}{
				"last_message":    msg.Text,
				"last_message_at": msg.CreatedAt,
			})
		if res.Error != nil {
			return models.NewUnavailableError(res.Error)
		}
		if res.RowsAffected > 0 {
			chat.LastMessage = msg.Text
			chat.LastMessageAt = msg.CreatedAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListMessages returns the chat's messages oldest first; ties on created_at
// fall back to the ID, which is monotonic.
func (r *chatRepository) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	defer observability.TrackQuery("select", "messages")()
	messages := []models.Message{}
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, models.NewUnavailableError(err)
	}
	return messages, nil
}

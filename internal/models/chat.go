package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// ChatCreatedText is the summary a chat carries until its first message.
const ChatCreatedText = "Chat created"

// chatIDSeparator never appears in user IDs (UUIDs), so a chat ID splits unambiguously.
const chatIDSeparator = "_"

// Chat is a two-party conversation. ParticipantA < ParticipantB always holds.
type Chat struct {
	ID             string        `gorm:"primaryKey;size:80" json:"id"`
	ParticipantA   string        `gorm:"size:36;not null;index" json:"-"`
	ParticipantB   string        `gorm:"size:36;not null;index" json:"-"`
	LastMessage    string        `gorm:"type:text;not null" json:"last_message"`
	LastMessageAt  time.Time     `gorm:"index" json:"last_message_at"`
	CreatedAt      time.Time     `json:"created_at"`
	ParticipantIDs []string      `gorm:"-" json:"participant_ids"`
	Participants   []UserSummary `gorm:"-" json:"participants,omitempty"`
}

// AfterFind derives ParticipantIDs from the stored pair.
func (c *Chat) AfterFind(_ *gorm.DB) error {
	c.ParticipantIDs = []string{c.ParticipantA, c.ParticipantB}
	return nil
}

// HasParticipant reports whether userID is one of the two parties.
func (c *Chat) HasParticipant(userID string) bool {
	return userID != "" && (c.ParticipantA == userID || c.ParticipantB == userID)
}

// OtherParticipant returns the party that is not userID.
func (c *Chat) OtherParticipant(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// SortedPair orders two user IDs so the chat identity is independent of argument order.
func SortedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// ChatIDFor derives the deterministic chat ID for an unordered pair of users.
func ChatIDFor(a, b string) string {
	lo, hi := SortedPair(a, b)
	return lo + chatIDSeparator + hi
}

// NewChat builds the record for a freshly created chat between a and b.
func NewChat(a, b string, now time.Time) *Chat {
	lo, hi := SortedPair(a, b)
	return &Chat{
		ID:             lo + chatIDSeparator + hi,
		ParticipantA:   lo,
		ParticipantB:   hi,
		LastMessage:    ChatCreatedText,
		LastMessageAt:  now,
		CreatedAt:      now,
		ParticipantIDs: []string{lo, hi},
	}
}

// Message is a single chat entry. IDs are monotonic ULIDs so (CreatedAt, ID) is a total order.
type Message struct {
	ID        string    `gorm:"primaryKey;size:26" json:"id"`
	ChatID    string    `gorm:"size:80;not null;index:idx_messages_chat_created,priority:1" json:"chat_id"`
	SenderID  string    `gorm:"size:36;not null" json:"sender_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index:idx_messages_chat_created,priority:2" json:"created_at"`
}

// IsBlank reports whether s has no non-whitespace content.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

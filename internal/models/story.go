package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthorSnapshot is the copy of the author's public profile stored on each story.
// It is refreshed only through a rename fan-out.
type AuthorSnapshot struct {
	ID        string `gorm:"size:36;index" json:"id"`
	Name      string `json:"name"`
	Username  string `gorm:"index" json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// Story is a published project narrative.
type Story struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	Title         string         `gorm:"not null" json:"title"`
	Description   string         `gorm:"size:300;not null" json:"description"`
	Story         string         `gorm:"type:text;not null" json:"story"`
	Tags          StringList     `gorm:"type:text" json:"tags"`
	ProjectURL    string         `json:"project_url"`
	SourceCodeURL string         `json:"source_code_url"`
	ImageURL      string         `json:"image_url"`
	VideoURL      string         `json:"video_url"`
	Author        AuthorSnapshot `gorm:"embedded;embeddedPrefix:author_" json:"author"`
	Upvotes       int            `gorm:"not null;default:0" json:"upvotes"`
	Comments      int            `gorm:"not null;default:0" json:"comments"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (s *Story) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// StringList is stored as a JSON array in a text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported StringList source %T", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

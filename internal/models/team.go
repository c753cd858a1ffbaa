package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Team groups users around a shared project. The owner is always a member.
type Team struct {
	ID          string       `gorm:"primaryKey;size:36" json:"id"`
	Name        string       `gorm:"not null" json:"name"`
	Description string       `gorm:"size:300;not null" json:"description"`
	OwnerID     string       `gorm:"size:36;not null;index" json:"owner_id"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
	Memberships []TeamMember `gorm:"foreignKey:TeamID" json:"-"`
	Members     []string     `gorm:"-" json:"members"`
}

func (t *Team) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// AfterFind flattens loaded memberships into Members, ordered by join time.
func (t *Team) AfterFind(_ *gorm.DB) error {
	if len(t.Memberships) == 0 {
		return nil
	}
	t.Members = make([]string, 0, len(t.Memberships))
	for _, m := range t.Memberships {
		t.Members = append(t.Members, m.UserID)
	}
	return nil
}

// TeamMember is one membership row.
type TeamMember struct {
	TeamID   string    `gorm:"primaryKey;size:36" json:"team_id"`
	UserID   string    `gorm:"primaryKey;size:36;index" json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

package seed

import (
	"context"
	"fmt"
	"log/slog"

	"struggles/internal/middleware"
	"struggles/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	StoriesPerUser  int
	ChatsPerUser    int
	MessagesPerChat int
	NumTeams        int
	FollowsPerUser  int
	MaxDays         int
	ShouldClean     bool
	SkipBcrypt      bool
	// RandSeed makes generated data reproducible when non-zero.
	RandSeed int64
}

// Result counts what a seeding run created.
type Result struct {
	Users    int `json:"users"`
	Stories  int `json:"stories"`
	Chats    int `json:"chats"`
	Messages int `json:"messages"`
	Teams    int `json:"teams"`
	Follows  int `json:"follows"`
}

// Seed populates the database with generated demo data.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	middleware.Logger.Info("starting database seeding",
		slog.Int("users", opts.NumUsers), slog.Int("stories_per_user", opts.StoriesPerUser))

	if opts.ShouldClean {
		if err := Clean(db); err != nil {
			return nil, fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	f := NewFactory(db, opts)
	res := &Result{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return res, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, u)
	}
	res.Users = len(users)

	for _, u := range users {
		for i := 0; i < opts.StoriesPerUser; i++ {
			if _, err := f.CreateStory(ctx, u); err != nil {
				return res, fmt.Errorf("failed to create story for %s: %w", u.Username, err)
			}
			res.Stories++
		}
	}

	if len(users) > 1 {
		seen := make(map[string]struct{})
		for i, u := range users {
			for j := 1; j <= opts.ChatsPerUser && j < len(users); j++ {
				other := users[(i+j)%len(users)]
				chat, err := f.CreateChat(ctx, u, other)
				if err != nil {
					return res, fmt.Errorf("failed to create chat: %w", err)
				}
				if _, dup := seen[chat.ID]; dup {
					continue
				}
				seen[chat.ID] = struct{}{}
				res.Chats++
				for k := 0; k < opts.MessagesPerChat; k++ {
					sender := u
					if k%2 == 1 {
						sender = other
					}
					if _, err := f.CreateMessage(ctx, chat, sender, ""); err != nil {
						return res, fmt.Errorf("failed to create message: %w", err)
					}
					res.Messages++
				}
			}

			for j := 1; j <= opts.FollowsPerUser && j < len(users); j++ {
				target := users[(i+j*2)%len(users)]
				if target.ID == u.ID {
					continue
				}
				created, err := f.Follow(ctx, u, target)
				if err != nil {
					return res, fmt.Errorf("failed to create follow: %w", err)
				}
				if created {
					res.Follows++
				}
			}
		}
	}

	for i := 0; i < opts.NumTeams && len(users) > 0; i++ {
		owner := users[i%len(users)]
		var members []*models.User
		for j := 1; j <= 3 && j < len(users); j++ {
			members = append(members, users[(i+j)%len(users)])
		}
		if _, err := f.CreateTeam(ctx, owner, members); err != nil {
			return res, fmt.Errorf("failed to create team: %w", err)
		}
		res.Teams++
	}

	middleware.Logger.Info("database seeding completed",
		slog.Int("users", res.Users), slog.Int("stories", res.Stories),
		slog.Int("chats", res.Chats), slog.Int("messages", res.Messages),
		slog.Int("teams", res.Teams))
	return res, nil
}

// Clean deletes all application rows, children first.
func Clean(db *gorm.DB) error {
	middleware.Logger.Warn("clearing existing data")
	all := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []interface{}{
		&models.Message{},
		&models.Chat{},
		&models.TeamMember{},
		&models.Team{},
		&models.Follow{},
		&models.Story{},
		&models.User{},
	} {
		if err := all.Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}

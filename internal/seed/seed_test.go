package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"struggles/internal/models"
	"struggles/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoFixture = `
users:
  - name: Ada Lovelace
    username: ada
    email: Ada@Example.com
    bio: First programmer.
  - name: Grace Hopper
    username: grace
    password: cobol-rules
stories:
  - author: ada
    title: The Analytical Engine never shipped
    description: Notes on building for hardware that did not exist yet.
    story: >-
      I wrote programs for a machine that was never finished. Every table had to be checked by hand,
      every loop reasoned about on paper, and every bug was a bug in my head first.
    tags: "History, math, history"
chats:
  - between: [grace, ada]
    messages:
      - from: ada
        text: hello
      - from: grace
        text: found a moth in the relay
teams:
  - owner: grace
    name: Compiler Club
    description: People who would rather write the compiler than the program.
    members: [ada]
follows:
  - follower: ada
    followee: grace
`

func TestApplyFixture(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	fx, err := LoadFixture(strings.NewReader(demoFixture))
	require.NoError(t, err)

	res, err := ApplyFixture(ctx, db, fx, Options{SkipBcrypt: true})
	require.NoError(t, err)
	assert.Equal(t, &Result{Users: 2, Stories: 1, Chats: 1, Messages: 2, Teams: 1, Follows: 1}, res)

	var ada models.User
	require.NoError(t, db.Where("username = ?", "ada").First(&ada).Error)
	assert.Equal(t, "ada@example.com", ada.Email)
	assert.Equal(t, DefaultPassword, ada.PasswordHash, "SkipBcrypt stores the plain default password")

	var story models.Story
	require.NoError(t, db.First(&story).Error)
	assert.Equal(t, models.StringList{"history", "math"}, story.Tags)
	assert.Equal(t, "Ada Lovelace", story.Author.Name)

	var chat models.Chat
	require.NoError(t, db.First(&chat).Error)
	assert.Equal(t, "found a moth in the relay", chat.LastMessage)

	var grace models.User
	require.NoError(t, db.Where("username = ?", "grace").First(&grace).Error)
	assert.Equal(t, 1, grace.Followers)
}

func TestLoadFixture_RejectsUnknownKeys(t *testing.T) {
	_, err := LoadFixture(strings.NewReader("users:\n  - name: Ada\n    handle: ada\n"))
	assert.Error(t, err)
}

func TestApplyFixture_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		yaml string
	}{
		{"unknown author", "stories:\n  - author: nobody\n    title: Something long enough\n"},
		{"bad username", "users:\n  - name: Ada Lovelace\n    username: Ada!\n"},
		{"one sided chat", "users:\n  - name: Ada Lovelace\n    username: ada\nchats:\n  - between: [ada]\n"},
		{"short team", "users:\n  - name: Ada Lovelace\n    username: ada\nteams:\n  - owner: ada\n    name: X\n    description: too short\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewTestDB(t)
			fx, err := LoadFixture(strings.NewReader(tt.yaml))
			require.NoError(t, err)
			_, err = ApplyFixture(ctx, db, fx, Options{SkipBcrypt: true})
			assert.Error(t, err)
		})
	}
}

func TestSeed_Generated(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	res, err := Seed(ctx, db, Options{
		NumUsers:        4,
		StoriesPerUser:  2,
		ChatsPerUser:    1,
		MessagesPerChat: 3,
		NumTeams:        2,
		FollowsPerUser:  1,
		MaxDays:         30,
		SkipBcrypt:      true,
		RandSeed:        42,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Users)
	assert.Equal(t, 8, res.Stories)
	assert.Equal(t, 4, res.Chats)
	assert.Equal(t, 12, res.Messages)
	assert.Equal(t, 2, res.Teams)

	var stories []models.Story
	require.NoError(t, db.Find(&stories).Error)
	for _, s := range stories {
		assert.GreaterOrEqual(t, len(s.Story), 100)
		assert.NotEmpty(t, s.Tags)
		assert.WithinDuration(t, time.Now(), s.CreatedAt, 31*24*time.Hour)
	}

	var messages int64
	require.NoError(t, db.Model(&models.Message{}).Count(&messages).Error)
	assert.EqualValues(t, 12, messages)
}

func TestClean(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	_, err := Seed(ctx, db, Options{NumUsers: 2, StoriesPerUser: 1, ChatsPerUser: 1, MessagesPerChat: 1, NumTeams: 1, SkipBcrypt: true})
	require.NoError(t, err)

	require.NoError(t, Clean(db))
	for _, m := range []interface{}{&models.User{}, &models.Story{}, &models.Chat{}, &models.Message{}, &models.Team{}, &models.TeamMember{}} {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n)
	}
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"struggles/internal/models"
	"struggles/internal/notifications"
	"struggles/internal/repository"
	"struggles/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = 2 * time.Second
	testPollInterval      = 10 * time.Millisecond
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

// recordingFeed captures published topics and forwards them to a hub.
type recordingFeed struct {
	mu     sync.Mutex
	topics []string
	hub    *notifications.Hub
}

func (f *recordingFeed) Publish(_ context.Context, topics ...string) {
	f.mu.Lock()
	f.topics = append(f.topics, topics...)
	f.mu.Unlock()
	if f.hub != nil {
		for _, t := range topics {
			f.hub.Signal(t)
		}
	}
}

func (f *recordingFeed) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...)
}

type chatRepoStub struct {
	createOrGetFn   func(context.Context, string, string, time.Time) (*models.Chat, bool, error)
	getByIDFn       func(context.Context, string) (*models.Chat, error)
	listForUserFn   func(context.Context, string) ([]models.Chat, error)
	appendMessageFn func(context.Context, *models.Message) (*models.Chat, error)
	listMessagesFn  func(context.Context, string) ([]models.Message, error)
}

func (s *chatRepoStub) CreateOrGet(ctx context.Context, a, b string, now time.Time) (*models.Chat, bool, error) {
	return s.createOrGetFn(ctx, a, b, now)
}
func (s *chatRepoStub) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	return s.getByIDFn(ctx, id)
}
func (s *chatRepoStub) ListForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	return s.listForUserFn(ctx, userID)
}
func (s *chatRepoStub) AppendMessage(ctx context.Context, msg *models.Message) (*models.Chat, error) {
	return s.appendMessageFn(ctx, msg)
}
func (s *chatRepoStub) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	return s.listMessagesFn(ctx, chatID)
}

func noopChatRepo() *chatRepoStub {
	return &chatRepoStub{
		createOrGetFn: func(_ context.Context, a, b string, now time.Time) (*models.Chat, bool, error) {
			return models.NewChat(a, b, now), true, nil
		},
		getByIDFn: func(_ context.Context, id string) (*models.Chat, error) {
			return nil, models.NewNotFoundError("Chat", id)
		},
		listForUserFn:   func(context.Context, string) ([]models.Chat, error) { return []models.Chat{}, nil },
		appendMessageFn: func(context.Context, *models.Message) (*models.Chat, error) { return &models.Chat{}, nil },
		listMessagesFn:  func(context.Context, string) ([]models.Message, error) { return []models.Message{}, nil },
	}
}

// fixture wires real repositories over an isolated SQLite database.
type fixture struct {
	users   repository.UserRepository
	stories repository.StoryRepository
	chats   repository.ChatRepository
	teams   repository.TeamRepository
	hub     *notifications.Hub
	feed    *recordingFeed
	dir     *UserDirectoryCache

	userSvc  *UserService
	storySvc *StoryService
	chatSvc  *ChatService
	teamSvc  *TeamService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	f := &fixture{
		users:   repository.NewUserRepository(db, nil),
		stories: repository.NewStoryRepository(db, nil),
		chats:   repository.NewChatRepository(db),
		teams:   repository.NewTeamRepository(db),
		hub:     notifications.NewHub(),
		dir:     NewUserDirectoryCache(time.Hour),
	}
	f.feed = &recordingFeed{hub: f.hub}
	f.userSvc = NewUserService(f.users, f.dir)
	f.storySvc = NewStoryService(f.stories, f.dir)
	f.chatSvc = NewChatService(f.chats, f.users, f.hub, f.feed)
	f.teamSvc = NewTeamService(f.teams)
	t.Cleanup(func() { _ = f.hub.Shutdown(context.Background()) })
	return f
}

// seedUser inserts a user with a fixed ID.
func (f *fixture) seedUser(t *testing.T, id, username, name string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           id,
		Name:         name,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		AvatarURL:    models.DefaultAvatarURL(name),
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

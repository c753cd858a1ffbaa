// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"struggles/internal/models"
	"struggles/internal/repository"
	"struggles/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password given to generated accounts.
const DefaultPassword = "password123"

var (
	projectTags = []string{
		"go", "react", "postgres", "redis", "websockets", "rust", "python", "kubernetes",
		"flutter", "swift", "nextjs", "graphql", "sqlite", "docker", "ml", "gamedev",
	}
	struggleOpeners = []string{
		"The first version fell over the moment real users showed up.",
		"We spent three weeks chasing a bug that only happened on Tuesdays.",
		"Nobody on the team had shipped anything this size before.",
		"The deadline was fixed and the requirements were not.",
		"Our database migrations kept failing in production and nowhere else.",
	}
)

// Factory builds domain entities and persists them through the repositories
// so seeded rows obey the same rules as live traffic.
type Factory struct {
	users   repository.UserRepository
	stories repository.StoryRepository
	chats   repository.ChatRepository
	teams   repository.TeamRepository
	clock   *models.MessageClock
	opts    Options
	rng     *rand.Rand
	hash    string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	return &Factory{
		users:   repository.NewUserRepository(db, nil),
		stories: repository.NewStoryRepository(db, nil),
		chats:   repository.NewChatRepository(db),
		teams:   repository.NewTeamRepository(db),
		clock:   models.NewMessageClock(),
		opts:    opts,
		// #nosec G404: acceptable for seeding
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (f *Factory) passwordHash(password string) (string, error) {
	if f.opts.SkipBcrypt {
		return password, nil
	}
	if password == DefaultPassword && f.hash != "" {
		return f.hash, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	if password == DefaultPassword {
		f.hash = string(hashed)
	}
	return string(hashed), nil
}

// BuildUser constructs a user with plausible profile fields but does not persist it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	base := strings.ToLower(first + "_" + last)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return -1
	}, base)
	if len(base) > 24 {
		base = base[:24]
	}
	username := fmt.Sprintf("%s%d", base, gofakeit.Number(10, 99999))

	user := &models.User{
		Name:     first + " " + last,
		Username: username,
		Email:    username + "@example.com",
		Bio:      truncate(gofakeit.Sentence(12), 160),
		Website:  "https://" + gofakeit.DomainName(),
	}
	for _, override := range overrides {
		override(user)
	}
	if user.AvatarURL == "" {
		user.AvatarURL = models.DefaultAvatarURL(user.Name)
	}
	return user
}

// CreateUser persists a generated user. The password is DefaultPassword
// unless an override sets PasswordHash.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if user.PasswordHash == "" {
		hash, err := f.passwordHash(DefaultPassword)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildStory constructs a story by author with a realistic created_at spread.
func (f *Factory) BuildStory(author *models.User, overrides ...func(*models.Story)) *models.Story {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	age := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute

	project := gofakeit.AppName()
	body := struggleOpeners[f.rng.Intn(len(struggleOpeners))] + "\n\n" +
		gofakeit.Paragraph(3, 4, 12, "\n\n")

	tags := make([]string, 0, 3)
	for i := 0; i < 1+f.rng.Intn(3); i++ {
		tags = append(tags, projectTags[f.rng.Intn(len(projectTags))])
	}

	story := &models.Story{
		Title:         truncate("How we shipped "+project, 120),
		Description:   truncate(gofakeit.Sentence(14), validation.StoryDescriptionMax),
		Story:         body,
		Tags:          validation.NormalizeTagList(tags),
		ProjectURL:    "https://" + strings.ToLower(strings.ReplaceAll(project, " ", "")) + ".example.com",
		SourceCodeURL: "https://github.com/" + author.Username + "/" + strings.ToLower(strings.ReplaceAll(project, " ", "-")),
		ImageURL:      fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", gofakeit.UUID()),
		Author: models.AuthorSnapshot{
			ID:        author.ID,
			Name:      author.Name,
			Username:  author.Username,
			AvatarURL: author.AvatarURL,
		},
		CreatedAt: time.Now().UTC().Add(-age),
	}
	for _, override := range overrides {
		override(story)
	}
	return story
}

// CreateStory persists a generated story for author.
func (f *Factory) CreateStory(ctx context.Context, author *models.User, overrides ...func(*models.Story)) (*models.Story, error) {
	story := f.BuildStory(author, overrides...)
	if err := validation.ValidateStory(validation.StoryFields{
		Title:         story.Title,
		Description:   story.Description,
		Story:         story.Story,
		ProjectURL:    story.ProjectURL,
		SourceCodeURL: story.SourceCodeURL,
		ImageURL:      story.ImageURL,
		VideoURL:      story.VideoURL,
	}); err != nil {
		return nil, fmt.Errorf("generated story is invalid: %w", err)
	}
	if err := f.stories.Create(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

// CreateChat returns the chat between a and b, creating it if needed.
func (f *Factory) CreateChat(ctx context.Context, a, b *models.User) (*models.Chat, error) {
	_, now := f.clock.Next()
	chat, _, err := f.chats.CreateOrGet(ctx, a.ID, b.ID, now)
	return chat, err
}

// CreateMessage appends a message from sender. Empty text is replaced by a
// generated sentence.
func (f *Factory) CreateMessage(ctx context.Context, chat *models.Chat, sender *models.User, text string) (*models.Message, error) {
	if text == "" {
		text = gofakeit.Sentence(f.rng.Intn(12) + 3)
	}
	id, at := f.clock.Next()
	msg := &models.Message{ID: id, ChatID: chat.ID, SenderID: sender.ID, Text: text, CreatedAt: at}
	if _, err := f.chats.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// CreateTeam persists a team owned by owner and adds members.
func (f *Factory) CreateTeam(ctx context.Context, owner *models.User, members []*models.User, overrides ...func(*models.Team)) (*models.Team, error) {
	team := &models.Team{
		Name:        truncate(gofakeit.Company()+" Builders", 80),
		Description: truncate(gofakeit.Sentence(12), validation.TeamDescriptionMax),
		OwnerID:     owner.ID,
	}
	for _, override := range overrides {
		override(team)
	}
	if err := f.teams.Create(ctx, team); err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.ID == owner.ID {
			continue
		}
		if _, err := f.teams.AddMember(ctx, team.ID, m.ID); err != nil {
			return nil, err
		}
	}
	return f.teams.GetByID(ctx, team.ID)
}

// Follow makes follower follow followee and reports whether the edge is new.
func (f *Factory) Follow(ctx context.Context, follower, followee *models.User) (bool, error) {
	return f.users.Follow(ctx, follower.ID, followee.ID)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

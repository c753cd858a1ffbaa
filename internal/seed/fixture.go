package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"struggles/internal/models"
	"struggles/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixture is a hand-written data set, usually loaded from YAML.
type Fixture struct {
	Users   []FixtureUser  `yaml:"users"`
	Stories []FixtureStory `yaml:"stories"`
	Chats   []FixtureChat  `yaml:"chats"`
	Teams   []FixtureTeam  `yaml:"teams"`
	Follows []FixtureEdge  `yaml:"follows"`
}

type FixtureUser struct {
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Bio      string `yaml:"bio"`
	Website  string `yaml:"website"`
}

type FixtureStory struct {
	Author        string `yaml:"author"`
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	Story         string `yaml:"story"`
	Tags          string `yaml:"tags"`
	ProjectURL    string `yaml:"project_url"`
	SourceCodeURL string `yaml:"source_code_url"`
	ImageURL      string `yaml:"image_url"`
	VideoURL      string `yaml:"video_url"`
}

type FixtureChat struct {
	Between  []string         `yaml:"between"`
	Messages []FixtureMessage `yaml:"messages"`
}

type FixtureMessage struct {
	From string `yaml:"from"`
	Text string `yaml:"text"`
}

type FixtureTeam struct {
	Owner       string   `yaml:"owner"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Members     []string `yaml:"members"`
}

type FixtureEdge struct {
	Follower string `yaml:"follower"`
	Followee string `yaml:"followee"`
}

// LoadFixture decodes a fixture. Unknown keys are rejected.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var fx Fixture
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &fx, nil
}

// LoadFixtureFile reads a fixture from path.
func LoadFixtureFile(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadFixture(f)
}

// ApplyFixture writes fx, referring to users by username. All fields go
// through the same validation as live requests.
func ApplyFixture(ctx context.Context, db *gorm.DB, fx *Fixture, opts Options) (*Result, error) {
	f := NewFactory(db, opts)
	res := &Result{}
	byUsername := make(map[string]*models.User, len(fx.Users))

	lookup := func(username string) (*models.User, error) {
		if u, ok := byUsername[username]; ok {
			return u, nil
		}
		u, err := f.users.GetByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("fixture references unknown user %q: %w", username, err)
		}
		byUsername[username] = u
		return u, nil
	}

	for _, fu := range fx.Users {
		fu.Email = strings.ToLower(strings.TrimSpace(fu.Email))
		if fu.Email == "" {
			fu.Email = fu.Username + "@example.com"
		}
		if err := firstErr(
			validation.ValidateName(fu.Name),
			validation.ValidateUsername(fu.Username),
			validation.ValidateEmail(fu.Email),
			validation.ValidateBio(fu.Bio),
			validation.ValidateOptionalURL("website", fu.Website),
		); err != nil {
			return res, fmt.Errorf("fixture user %q: %w", fu.Username, err)
		}
		password := fu.Password
		if password == "" {
			password = DefaultPassword
		}
		hash, err := f.passwordHash(password)
		if err != nil {
			return res, err
		}
		u, err := f.CreateUser(ctx, func(u *models.User) {
			u.Name, u.Username, u.Email = fu.Name, fu.Username, fu.Email
			u.Bio, u.Website, u.PasswordHash = fu.Bio, fu.Website, hash
			u.AvatarURL = ""
		})
		if err != nil {
			return res, fmt.Errorf("fixture user %q: %w", fu.Username, err)
		}
		byUsername[u.Username] = u
		res.Users++
	}

	for _, fs := range fx.Stories {
		author, err := lookup(fs.Author)
		if err != nil {
			return res, err
		}
		if _, err := f.CreateStory(ctx, author, func(s *models.Story) {
			s.Title, s.Description, s.Story = fs.Title, fs.Description, fs.Story
			s.Tags = validation.NormalizeTags(fs.Tags)
			s.ProjectURL, s.SourceCodeURL = fs.ProjectURL, fs.SourceCodeURL
			s.ImageURL, s.VideoURL = fs.ImageURL, fs.VideoURL
		}); err != nil {
			return res, fmt.Errorf("fixture story %q: %w", fs.Title, err)
		}
		res.Stories++
	}

	for _, fc := range fx.Chats {
		if len(fc.Between) != 2 {
			return res, fmt.Errorf("fixture chat needs exactly two users, got %v", fc.Between)
		}
		a, err := lookup(fc.Between[0])
		if err != nil {
			return res, err
		}
		b, err := lookup(fc.Between[1])
		if err != nil {
			return res, err
		}
		chat, err := f.CreateChat(ctx, a, b)
		if err != nil {
			return res, err
		}
		res.Chats++
		for _, m := range fc.Messages {
			sender, err := lookup(m.From)
			if err != nil {
				return res, err
			}
			if !chat.HasParticipant(sender.ID) {
				return res, fmt.Errorf("fixture message from %q is not in chat %s", m.From, chat.ID)
			}
			if models.IsBlank(m.Text) {
				return res, fmt.Errorf("fixture message from %q is blank", m.From)
			}
			if _, err := f.CreateMessage(ctx, chat, sender, m.Text); err != nil {
				return res, err
			}
			res.Messages++
		}
	}

	for _, ft := range fx.Teams {
		if err := validation.ValidateTeam(ft.Name, ft.Description); err != nil {
			return res, fmt.Errorf("fixture team %q: %w", ft.Name, err)
		}
		owner, err := lookup(ft.Owner)
		if err != nil {
			return res, err
		}
		members := make([]*models.User, 0, len(ft.Members))
		for _, name := range ft.Members {
			m, err := lookup(name)
			if err != nil {
				return res, err
			}
			members = append(members, m)
		}
		if _, err := f.CreateTeam(ctx, owner, members, func(t *models.Team) {
			t.Name, t.Description = ft.Name, ft.Description
		}); err != nil {
			return res, fmt.Errorf("fixture team %q: %w", ft.Name, err)
		}
		res.Teams++
	}

	for _, e := range fx.Follows {
		follower, err := lookup(e.Follower)
		if err != nil {
			return res, err
		}
		followee, err := lookup(e.Followee)
		if err != nil {
			return res, err
		}
		if follower.ID == followee.ID {
			return res, fmt.Errorf("fixture follow: %q cannot follow themselves", e.Follower)
		}
		created, err := f.Follow(ctx, follower, followee)
		if err != nil {
			return res, err
		}
		if created {
			res.Follows++
		}
	}

	return res, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

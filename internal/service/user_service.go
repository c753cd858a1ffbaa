package service

import (
	"context"
	"strings"
	"time"

	"struggles/internal/cache"
	"struggles/internal/models"
	"struggles/internal/observability"
	"struggles/internal/repository"
	"struggles/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserDirectoryCache holds the member list in process for a bounded time.
// Signups, profile edits and renames invalidate it. A nil cache always loads.
type UserDirectoryCache struct {
	snap *cache.Snapshot[[]models.UserSummary]
}

// NewUserDirectoryCache returns a directory cache with the given TTL.
func NewUserDirectoryCache(ttl time.Duration) *UserDirectoryCache {
	return &UserDirectoryCache{snap: cache.NewSnapshot[[]models.UserSummary](ttl)}
}

// Invalidate forces the next read to reload.
func (c *UserDirectoryCache) Invalidate() {
	if c != nil {
		c.snap.Invalidate()
	}
}

// RefreshedAt reports when the list was last loaded.
func (c *UserDirectoryCache) RefreshedAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.snap.RefreshedAt()
}

func (c *UserDirectoryCache) get(ctx context.Context, load func(context.Context) ([]models.UserSummary, error)) ([]models.UserSummary, error) {
	if c == nil {
		return load(ctx)
	}
	return c.snap.Get(ctx, load)
}

// UserService provides signup, authentication, profile and follow logic.
type UserService struct {
	userRepo  repository.UserRepository
	directory *UserDirectoryCache
}

// SignupInput is the input for creating an account.
type SignupInput struct {
	Name     string
	Username string
	Email    string
	Password string
}

// UpdateProfileInput carries the editable settings fields.
type UpdateProfileInput struct {
	UserID  string
	Name    string
	Bio     string
	Website string
}

// NewUserService returns a new UserService. directory may be nil.
func NewUserService(userRepo repository.UserRepository, directory *UserDirectoryCache) *UserService {
	return &UserService{userRepo: userRepo, directory: directory}
}

// Signup validates the input, hashes the password and creates the account.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := validation.ValidateName(in.Name); err != nil {
		return nil, models.NewInvalidArgumentError(err.Error())
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewInvalidArgumentError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewInvalidArgumentError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewInvalidArgumentError(err.Error())
	}

	if existing, err := s.userRepo.GetByUsername(ctx, in.Username); err == nil && existing != nil {
		return nil, models.NewConflictError("Username already taken")
	} else if err != nil && !models.HasCode(err, models.CodeNotFound) {
		return nil, err
	}
	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		AvatarURL:    models.DefaultAvatarURL(in.Name),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.directory.Invalidate()
	return user, nil
}

// Authenticate checks an email and password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.NewInvalidArgumentError("Email and password are required")
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthenticatedError("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.NewUnauthenticatedError("Invalid email or password")
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	if models.IsBlank(id) {
		return nil, models.NewInvalidArgumentError("User ID is required")
	}
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if models.IsBlank(username) {
		return nil, models.NewInvalidArgumentError("Username is required")
	}
	return s.userRepo.GetByUsername(ctx, username)
}

// ListAll returns every member's public summary, served from the directory
// cache while it is fresh.
func (s *UserService) ListAll(ctx context.Context) ([]models.UserSummary, error) {
	return s.directory.get(ctx, func(ctx context.Context) ([]models.UserSummary, error) {
		users, err := s.userRepo.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]models.UserSummary, 0, len(users))
		for i := range users {
			out = append(out, users[i].Summary())
		}
		return out, nil
	})
}

// DirectoryRefreshedAt reports when the member list was last loaded.
func (s *UserService) DirectoryRefreshedAt() time.Time {
	return s.directory.RefreshedAt()
}

// UpdateProfile validates and saves the settings form. A changed name is
// applied to all of the user's stories in the same transaction.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	span, ctx := observability.StartService(ctx, "UserService", "UpdateProfile")
	defer span.End()

	if models.IsBlank(in.UserID) {
		return nil, models.NewUnauthenticatedError("Sign in to update your profile")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Bio = strings.TrimSpace(in.Bio)
	in.Website = strings.TrimSpace(in.Website)

	if err := validation.ValidateName(in.Name); err != nil {
		return nil, models.NewInvalidArgumentError(err.Error())
	}
	if err := validation.ValidateBio(in.Bio); err != nil {
		return nil, models.NewInvalidArgumentError(err.Error())
	}
	if err := validation.ValidateOptionalURL("website", in.Website); err != nil {
		return nil, models.NewInvalidArgumentError(err.Error())
	}

	user, err := s.userRepo.UpdateProfile(ctx, in.UserID, repository.ProfileUpdate{
		Name:    in.Name,
		Bio:     in.Bio,
		Website: in.Website,
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	s.directory.Invalidate()
	return user, nil
}

// Follow makes followerID follow the user named username. Repeating it is a no-op.
func (s *UserService) Follow(ctx context.Context, followerID, username string) (*models.User, error) {
	target, err := s.followTarget(ctx, followerID, username)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.Follow(ctx, followerID, target.ID); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, target.ID)
}

// Unfollow removes the follow edge if present.
func (s *UserService) Unfollow(ctx context.Context, followerID, username string) (*models.User, error) {
	target, err := s.followTarget(ctx, followerID, username)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.Unfollow(ctx, followerID, target.ID); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, target.ID)
}

// IsFollowing reports whether followerID follows targetID. Anonymous viewers follow no one.
func (s *UserService) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	if followerID == "" || targetID == "" {
		return false, nil
	}
	return s.userRepo.IsFollowing(ctx, followerID, targetID)
}

func (s *UserService) followTarget(ctx context.Context, followerID, username string) (*models.User, error) {
	if models.IsBlank(followerID) {
		return nil, models.NewUnauthenticatedError("Sign in to follow members")
	}
	target, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if target.ID == followerID {
		return nil, models.NewInvalidArgumentError("You cannot follow yourself")
	}
	return target, nil
}

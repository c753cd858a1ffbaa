package service

import (
	"context"
	"strings"

	"struggles/internal/models"
	"struggles/internal/observability"
	"struggles/internal/repository"
	"struggles/internal/validation"
)

// StoryService provides story publishing and lookup.
type StoryService struct {
	storyRepo repository.StoryRepository
	directory *UserDirectoryCache
}

// CreateStoryInput is the input for publishing a story. Tags is the raw comma
// separated list as typed by the author.
type CreateStoryInput struct {
	Author        *models.User
	Title         string
	Description   string
	Story         string
	Tags          string
	ProjectURL    string
	SourceCodeURL string
	ImageURL      string
	VideoURL      string
}

// NewStoryService returns a new StoryService. directory may be nil.
func NewStoryService(storyRepo repository.StoryRepository, directory *UserDirectoryCache) *StoryService {
	return &StoryService{storyRepo: storyRepo, directory: directory}
}

// Create validates the fields, normalizes tags and stores the story with a
// snapshot of the author's public profile.
func (s *StoryService) Create(ctx context.Context, in CreateStoryInput) (*models.Story, error) {
	if in.Author == nil || in.Author.ID == "" {
		return nil, models.NewUnauthenticatedError("Sign in to publish a story")
	}
	fields := validation.StoryFields{
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Story:         strings.TrimSpace(in.Story),
		ProjectURL:    strings.TrimSpace(in.ProjectURL),
		SourceCodeURL: strings.TrimSpace(in.SourceCodeURL),
		ImageURL:      strings.TrimSpace(in.ImageURL),
		VideoURL:      strings.TrimSpace(in.VideoURL),
	}
	if err := validation.ValidateStory(fields); err != nil {
		return nil, models.NewInvalidArgumentError(err.Error())
	}

	story := &models.Story{
		Title:         fields.Title,
		Description:   fields.Description,
		Story:         fields.Story,
		Tags:          validation.NormalizeTags(in.Tags),
		ProjectURL:    fields.ProjectURL,
		SourceCodeURL: fields.SourceCodeURL,
		ImageURL:      fields.ImageURL,
		VideoURL:      fields.VideoURL,
		Author: models.AuthorSnapshot{
			ID:        in.Author.ID,
			Name:      in.Author.Name,
			Username:  in.Author.Username,
			AvatarURL: in.Author.AvatarURL,
		},
	}
	if err := s.storyRepo.Create(ctx, story); err != nil {
		return nil, err
	}
	observability.StoriesPublished.Inc()
	return story, nil
}

// List returns stories newest first.
func (s *StoryService) List(ctx context.Context, limit, offset int) ([]models.Story, error) {
	return s.storyRepo.List(ctx, limit, offset)
}

func (s *StoryService) ListByAuthorUsername(ctx context.Context, username string) ([]models.Story, error) {
	if models.IsBlank(username) {
		return nil, models.NewInvalidArgumentError("Username is required")
	}
	return s.storyRepo.ListByAuthorUsername(ctx, username)
}

func (s *StoryService) GetByID(ctx context.Context, id string) (*models.Story, error) {
	if models.IsBlank(id) {
		return nil, models.NewInvalidArgumentError("Story ID is required")
	}
	return s.storyRepo.GetByID(ctx, id)
}

// RenameAuthorEverywhere renames the user and every story they authored as
// one all-or-nothing write.
func (s *StoryService) RenameAuthorEverywhere(ctx context.Context, userID, newName string) error {
	span, ctx := observability.StartService(ctx, "StoryService", "RenameAuthorEverywhere")
	defer span.End()

	newName = strings.TrimSpace(newName)
	if models.IsBlank(userID) {
		return models.NewInvalidArgumentError("User ID is required")
	}
	if err := validation.ValidateName(newName); err != nil {
		return models.NewInvalidArgumentError(err.Error())
	}
	if err := s.storyRepo.RenameAuthorEverywhere(ctx, userID, newName); err != nil {
		span.SetError(err)
		return err
	}
	s.directory.Invalidate()
	return nil
}

package repository

import (
	"context"

	"struggles/internal/cache"
	"struggles/internal/models"
	"struggles/internal/observability"

	"gorm.io/gorm"
)

// StoryRepository defines persistence operations for stories.
type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id string) (*models.Story, error)
	List(ctx context.Context, limit, offset int) ([]models.Story, error)
	ListByAuthorUsername(ctx context.Context, username string) ([]models.Story, error)
	RenameAuthorEverywhere(ctx context.Context, userID, newName string) error
}

type storyRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewStoryRepository returns a new StoryRepository implementation. store may be nil.
func NewStoryRepository(db *gorm.DB, store *cache.Store) StoryRepository {
	return &storyRepository{db: db, cache: store}
}

func (r *storyRepository) Create(ctx context.Context, story *models.Story) error {
	defer observability.TrackQuery("insert", "stories")()
	if err := r.db.WithContext(ctx).Create(story).Error; err != nil {
		return models.NewUnavailableError(err)
	}
	return nil
}

func (r *storyRepository) GetByID(ctx context.Context, id string) (*models.Story, error) {
	var story models.Story
	err := r.cache.Aside(ctx, cache.StoryKey(id), &story, cache.StoryTTL, func() error {
		defer observability.TrackQuery("select", "stories")()
		return storeError(r.db.WithContext(ctx).First(&story, "id = ?", id).Error, "Story", id)
	})
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// List returns newest stories first.
func (r *storyRepository) List(ctx context.Context, limit, offset int) ([]models.Story, error) {
	defer observability.TrackQuery("select", "stories")()
	var stories []models.Story
	err := r.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(clampLimit(limit, 50, 200)).
		Offset(max(offset, 0)).
		Find(&stories).Error
	if err != nil {
		return nil, models.NewUnavailableError(err)
	}
	return stories, nil
}

func (r *storyRepository) ListByAuthorUsername(ctx context.Context, username string) ([]models.Story, error) {
	var stories []models.Story
	err := r.db.WithContext(ctx).
		Where("author_username = ?", username).
		Order("created_at DESC").Order("id DESC").
		Find(&stories).Error
	if err != nil {
		return nil, models.NewUnavailableError(err)
	}
	return stories, nil
}

// RenameAuthorEverywhere sets the user's name and every story's author name
// in one transaction. Either all rows change or none do.
func (r *storyRepository) RenameAuthorEverywhere(ctx context.Context, userID, newName string) error {
	var storyIDs []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := renameAuthorTx(tx, userID, newName)
		storyIDs = ids
		return err
	})
	if err != nil {
		return err
	}
	r.cache.Invalidate(ctx, append(cache.StoryKeys(storyIDs), cache.UserKey(userID))...)
	return nil
}

// renameAuthorTx runs the author fan-out on tx and returns the touched story IDs.
func renameAuthorTx(tx *gorm.DB, userID, newName string) ([]string, error) {
	defer observability.TrackQuery("update", "stories")()

	res := tx.Model(&models.User{}).Where("id = ?", userID).Update("name", newName)
	if res.Error != nil {
		return nil, models.NewUnavailableError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("User", userID)
	}

	var ids []string
	if err := tx.Model(&models.Story{}).Where("author_id = ?", userID).Pluck("id", &ids).Error; err != nil {
		return nil, models.NewUnavailableError(err)
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if err := tx.Model(&models.Story{}).Where("author_id = ?", userID).
		UpdateColumn("author_name", newName).Error; err != nil {
		return nil, models.NewUnavailableError(err)
	}
	return ids, nil
}

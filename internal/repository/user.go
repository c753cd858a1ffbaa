// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"struggles/internal/cache"
	"struggles/internal/models"
	"struggles/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileUpdate carries the editable profile fields. Username is immutable.
type ProfileUpdate struct {
	Name    string
	Bio     string
	Website string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*models.User, error)
	Follow(ctx context.Context, followerID, followeeID string) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
}

type userRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewUserRepository returns a new UserRepository implementation. store may be nil.
func NewUserRepository(db *gorm.DB, store *cache.Store) UserRepository {
	return &userRepository{db: db, cache: store}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		defer observability.TrackQuery("select", "users")()
		return storeError(r.db.WithContext(ctx).First(&user, "id = ?", id).Error, "User", id)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no account uses email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewUnavailableError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, storeError(err, "User", username)
	}
	return &user, nil
}

// GetByIDs returns the users that exist among ids, in no particular order.
func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, models.NewUnavailableError(err)
	}
	return users, nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	defer observability.TrackQuery("select", "users")()
	var users []models.User
	if err := r.db.WithContext(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, models.NewUnavailableError(err)
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Username or email already taken")
		}
		return models.NewUnavailableError(err)
	}
	return nil
}

// UpdateProfile applies in to the user. A name change is fanned out to the
// author snapshot of every story in the same transaction.
func (r *userRepository) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*models.User, error) {
	var (
		user     models.User
		storyIDs []string
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			return storeError(err, "User", id)
		}
		if in.Name != user.Name {
			ids, err := renameAuthorTx(tx, id, in.Name)
			if err != nil {
				return err
			}
			storyIDs = ids
		}
		user.Name = in.Name
		user.Bio = in.Bio
		user.Website = in.Website
		if err := tx.Model(&user).Select("name", "bio", "website", "updated_at").Updates(&user).Error; err != nil {
			return models.NewUnavailableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.cache.Invalidate(ctx, append(cache.StoryKeys(storyIDs), cache.UserKey(id))...)
	return &user, nil
}

// Follow records the edge and bumps both counters. It reports false when the
// edge already existed.
func (r *userRepository) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID})
		if res.Error != nil {
			return models.NewUnavailableError(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return adjustFollowCounters(tx, followerID, followeeID, 1)
	})
	if err != nil {
		return false, err
	}
	if created {
		r.cache.Invalidate(ctx, cache.UserKey(followerID), cache.UserKey(followeeID))
	}
	return created, nil
}

func (r *userRepository) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Delete(&models.Follow{})
		if res.Error != nil {
			return models.NewUnavailableError(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return adjustFollowCounters(tx, followerID, followeeID, -1)
	})
	if err != nil {
		return false, err
	}
	if removed {
		r.cache.Invalidate(ctx, cache.UserKey(followerID), cache.UserKey(followeeID))
	}
	return removed, nil
}

func (r *userRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&n).Error
	if err != nil {
		return false, models.NewUnavailableError(err)
	}
	return n > 0, nil
}

func adjustFollowCounters(tx *gorm.DB, followerID, followeeID string, delta int) error {
	if err := tx.Model(&models.User{}).Where("id = ?", followerID).
		UpdateColumn("following", gorm.Expr("following + ?", delta)).Error; err != nil {
		return models.NewUnavailableError(err)
	}
	if err := tx.Model(&models.User{}).Where("id = ?", followeeID).
		UpdateColumn("followers", gorm.Expr("followers + ?", delta)).Error; err != nil {
		return models.NewUnavailableError(err)
	}
	return nil
}

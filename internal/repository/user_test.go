package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"struggles/internal/cache"
	"struggles/internal/models"
	"struggles/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func createUser(t *testing.T, repo UserRepository, username string) *models.User {
	t.Helper()
	u := &models.User{
		Name:         "User " + username,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       string
		mockBehavior func()
		expectedCode string
	}{
		{
			name:   "Success",
			userID: "u1",
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email"}).
					AddRow("u1", "testuser", "test@example.com")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs("u1", 1).
					WillReturnRows(rows)
			},
		},
		{
			name:   "Not Found",
			userID: "u99",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs("u99", 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			expectedCode: models.CodeNotFound,
		},
		{
			name:   "Store Down",
			userID: "u2",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
					WillReturnError(errors.New("connection refused"))
			},
			expectedCode: models.CodeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedCode != "" {
				assert.True(t, models.HasCode(err, tt.expectedCode), "got %v", err)
			} else if assert.NoError(t, err) {
				assert.Equal(t, "testuser", user.Username)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CreateConflict(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db, nil)
	createUser(t, repo, "ada")

	dup := &models.User{Name: "Other", Username: "ada", Email: "other@example.com", PasswordHash: "x"}
	err := repo.Create(context.Background(), dup)
	assert.True(t, models.HasCode(err, models.CodeConflict), "got %v", err)
}

func TestUserRepository_Lookups(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()
	ada := createUser(t, repo, "ada")
	grace := createUser(t, repo, "grace")

	byName, err := repo.GetByUsername(ctx, "grace")
	require.NoError(t, err)
	assert.Equal(t, grace.ID, byName.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, byEmail.ID)

	missing, err := repo.GetByEmail(ctx, "none@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	some, err := repo.GetByIDs(ctx, []string{ada.ID, "ghost"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "ada", some[0].Username)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ada", all[0].Username)
}

func TestUserRepository_GetByIDUsesCache(t *testing.T) {
	db := testutil.NewTestDB(t)
	mr, rdb := testutil.NewTestRedis(t)
	repo := NewUserRepository(db, cache.NewStore(rdb))
	ctx := context.Background()
	ada := createUser(t, repo, "ada")

	_, err := repo.GetByID(ctx, ada.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.UserKey(ada.ID)))

	// The cached copy survives a direct write until something invalidates it.
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", ada.ID).Update("bio", "changed").Error)
	cached, err := repo.GetByID(ctx, ada.ID)
	require.NoError(t, err)
	assert.Empty(t, cached.Bio)

	_, err = repo.UpdateProfile(ctx, ada.ID, ProfileUpdate{Name: ada.Name, Bio: "fresh"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.UserKey(ada.ID)))

	fresh, err := repo.GetByID(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh", fresh.Bio)
}

func TestUserRepository_UpdateProfileRenamesStories(t *testing.T) {
	db := testutil.NewTestDB(t)
	users := NewUserRepository(db, nil)
	stories := NewStoryRepository(db, nil)
	ctx := context.Background()
	ada := createUser(t, users, "ada")
	createStory(t, stories, ada, "First story")

	updated, err := users.UpdateProfile(ctx, ada.ID, ProfileUpdate{Name: "Ada L", Website: "https://ada.dev"})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", updated.Name)
	assert.Equal(t, "https://ada.dev", updated.Website)

	list, err := stories.ListByAuthorUsername(ctx, "ada")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ada L", list[0].Author.Name)

	_, err = users.UpdateProfile(ctx, "ghost", ProfileUpdate{Name: "Nobody"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestUserRepository_Follow(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()
	ada := createUser(t, repo, "ada")
	grace := createUser(t, repo, "grace")

	created, err := repo.Follow(ctx, ada.ID, grace.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Follow(ctx, ada.ID, grace.ID)
	require.NoError(t, err)
	assert.False(t, created, "second follow is a no-op")

	following, err := repo.IsFollowing(ctx, ada.ID, grace.ID)
	require.NoError(t, err)
	assert.True(t, following)

	a, _ := repo.GetByID(ctx, ada.ID)
	g, _ := repo.GetByID(ctx, grace.ID)
	assert.Equal(t, 1, a.Following)
	assert.Equal(t, 1, g.Followers)

	removed, err := repo.Unfollow(ctx, ada.ID, grace.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Unfollow(ctx, ada.ID, grace.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	g, _ = repo.GetByID(ctx, grace.ID)
	assert.Equal(t, 0, g.Followers)
}

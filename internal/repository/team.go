package repository

import (
	"context"
	"time"

	"struggles/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TeamRepository defines persistence operations for teams.
type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id string) (*models.Team, error)
	List(ctx context.Context) ([]models.Team, error)
	ListForUser(ctx context.Context, userID string) ([]models.Team, error)
	AddMember(ctx context.Context, teamID, userID string) (bool, error)
}

type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository returns a new TeamRepository implementation.
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func preloadMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Memberships", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC").Order("user_id ASC")
	})
}

// Create stores the team and its owner's membership together.
func (r *teamRepository) Create(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner := team.OwnerID
		team.Memberships = nil
		if team.CreatedAt.IsZero() {
			team.CreatedAt = time.Now().UTC()
		}
		if err := tx.Omit(clause.Associations).Create(team).Error; err != nil {
			return models.NewUnavailableError(err)
		}
		member := models.TeamMember{TeamID: team.ID, UserID: owner, JoinedAt: team.CreatedAt}
		if err := tx.Create(&member).Error; err != nil {
			return models.NewUnavailableError(err)
		}
		team.Memberships = []models.TeamMember{member}
		team.Members = []string{owner}
		return nil
	})
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	var team models.Team
	if err := preloadMembers(r.db.WithContext(ctx)).First(&team, "id = ?", id).Error; err != nil {
		return nil, storeError(err, "Team", id)
	}
	return &team, nil
}

func (r *teamRepository) List(ctx context.Context) ([]models.Team, error) {
	teams := []models.Team{}
	err := preloadMembers(r.db.WithContext(ctx)).
		Order("created_at DESC").Order("id DESC").
		Find(&teams).Error
	if err != nil {
		return nil, models.NewUnavailableError(err)
	}
	return teams, nil
}

func (r *teamRepository) ListForUser(ctx context.Context, userID string) ([]models.Team, error) {
	teams := []models.Team{}
	err := preloadMembers(r.db.WithContext(ctx)).
		Where("id IN (?)", r.db.Model(&models.TeamMember{}).Select("team_id").Where("user_id = ?", userID)).
		Order("created_at DESC").Order("id DESC").
		Find(&teams).Error
	if err != nil {
		return nil, models.NewUnavailableError(err)
	}
	return teams, nil
}

// AddMember is idempotent; it reports whether a new membership was written.
func (r *teamRepository) AddMember(ctx context.Context, teamID, userID string) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Team{}).Where("id = ?", teamID).Count(&n).Error; err != nil {
			return models.NewUnavailableError(err)
		}
		if n == 0 {
			return models.NewNotFoundError("Team", teamID)
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.TeamMember{TeamID: teamID, UserID: userID, JoinedAt: time.Now().UTC()})
		if res.Error != nil {
			return models.NewUnavailableError(res.Error)
		}
		added = res.RowsAffected > 0
		return nil
	})
	return added, err
}

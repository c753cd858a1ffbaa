package service

import (
	"context"
	"strings"

	"struggles/internal/models"
	"struggles/internal/repository"
	"struggles/internal/validation"
)

// TeamService groups members around shared projects.
type TeamService struct {
	teamRepo repository.TeamRepository
}

// CreateTeamInput is the input for creating a team.
type CreateTeamInput struct {
	OwnerID     string
	Name        string
	Description string
}

func NewTeamService(teamRepo repository.TeamRepository) *TeamService {
	return &TeamService{teamRepo: teamRepo}
}

// Create stores a team with its owner as the first member.
func (s *TeamService) Create(ctx context.Context, in CreateTeamInput) (*models.Team, error) {
	if models.IsBlank(in.OwnerID) {
		return nil, models.NewUnauthenticatedError("Sign in to create a team")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.ValidateTeam(in.Name, in.Description); err != nil {
		return nil, models.NewInvalidArgumentError(err.Error())
	}

	team := &models.Team{
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     in.OwnerID,
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *TeamService) List(ctx context.Context) ([]models.Team, error) {
	return s.teamRepo.List(ctx)
}

func (s *TeamService) ListForUser(ctx context.Context, userID string) ([]models.Team, error) {
	if models.IsBlank(userID) {
		return nil, models.NewInvalidArgumentError("User ID is required")
	}
	return s.teamRepo.ListForUser(ctx, userID)
}

func (s *TeamService) GetByID(ctx context.Context, id string) (*models.Team, error) {
	if models.IsBlank(id) {
		return nil, models.NewInvalidArgumentError("Team ID is required")
	}
	return s.teamRepo.GetByID(ctx, id)
}

// Join adds userID to the team. Joining twice is a no-op.
func (s *TeamService) Join(ctx context.Context, teamID, userID string) (*models.Team, error) {
	if models.IsBlank(userID) {
		return nil, models.NewUnauthenticatedError("Sign in to join a team")
	}
	if models.IsBlank(teamID) {
		return nil, models.NewInvalidArgumentError("Team ID is required")
	}
	if _, err := s.teamRepo.AddMember(ctx, teamID, userID); err != nil {
		return nil, err
	}
	return s.teamRepo.GetByID(ctx, teamID)
}

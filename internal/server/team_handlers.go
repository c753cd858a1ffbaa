package server

import (
	"struggles/internal/models"
	"struggles/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GetTeams handles GET /api/teams
// @Summary List teams
// @Tags teams
// @Produce json
// @Success 200 {array} models.Team
// @Router /teams [get]
func (s *Server) GetTeams(c *fiber.Ctx) error {
	teams, err := s.teamService.List(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(teams)
}

// GetMyTeams handles GET /api/teams/mine
// @Summary Teams I belong to
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Team
// @Router /teams/mine [get]
func (s *Server) GetMyTeams(c *fiber.Ctx) error {
	teams, err := s.teamService.ListForUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(teams)
}

// GetTeam handles GET /api/teams/:id
// @Summary Get a team
// @Tags teams
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {object} models.Team
// @Failure 404 {object} models.ErrorResponse
// @Router /teams/{id} [get]
func (s *Server) GetTeam(c *fiber.Ctx) error {
	team, err := s.teamService.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(team)
}

// CreateTeam handles POST /api/teams
// @Summary Create a team
// @Tags teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createTeamRequest true "Team"
// @Success 201 {object} models.Team
// @Failure 400 {object} models.ErrorResponse
// @Router /teams [post]
func (s *Server) CreateTeam(c *fiber.Ctx) error {
	var req createTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewInvalidArgumentError("Invalid request body"))
	}

	team, err := s.teamService.Create(c.UserContext(), service.CreateTeamInput{
		OwnerID:     currentUserID(c),
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(team)
}

// JoinTeam handles POST /api/teams/:id/join
// @Summary Join a team
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param id path string true "Team ID"
// @Success 200 {object} models.Team
// @Failure 404 {object} models.ErrorResponse
// @Router /teams/{id}/join [post]
func (s *Server) JoinTeam(c *fiber.Ctx) error {
	team, err := s.teamService.Join(c.UserContext(), c.Params("id"), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(team)
}

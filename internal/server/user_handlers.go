package server

import (
	"struggles/internal/models"
	"struggles/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	Name    string `json:"name"`
	Bio     string `json:"bio"`
	Website string `json:"website"`
}

// profileResponse is a public profile as seen by the viewer.
type profileResponse struct {
	User        models.User `json:"user"`
	IsFollowing bool        `json:"is_following"`
	IsSelf      bool        `json:"is_self"`
}

// GetUsers handles GET /api/users
// @Summary Member directory
// @Tags users
// @Produce json
// @Success 200 {object} object{users=[]models.UserSummary,refreshed_at=string}
// @Router /users [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	users, err := s.userService.ListAll(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"users":        users,
		"refreshed_at": s.userService.DirectoryRefreshedAt(),
	})
}

// GetUserProfile handles GET /api/users/:username
// @Summary Public profile
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} profileResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	profile, err := s.loadProfile(c, c.Params("username"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(profile)
}

// GetUserStories handles GET /api/users/:username/stories
// @Summary Stories by a member
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {array} models.Story
// @Router /users/{username}/stories [get]
func (s *Server) GetUserStories(c *fiber.Ctx) error {
	stories, err := s.storyService.ListByAuthorUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(stories)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update profile settings
// @Description A name change is applied to every story by the user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body updateProfileRequest true "Profile"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewInvalidArgumentError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:  currentUserID(c),
		Name:    req.Name,
		Bio:     req.Bio,
		Website: req.Website,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(user)
}

// FollowUser handles POST /api/users/:username/follow
// @Summary Follow a member
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} models.User
// @Router /users/{username}/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	user, err := s.userService.Follow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(user.Public())
}

// UnfollowUser handles DELETE /api/users/:username/follow
// @Summary Unfollow a member
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} models.User
// @Router /users/{username}/follow [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	user, err := s.userService.Unfollow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(user.Public())
}

func (s *Server) loadProfile(c *fiber.Ctx, username string) (*profileResponse, error) {
	ctx := c.UserContext()
	user, err := s.userService.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	viewerID := currentUserID(c)
	following, err := s.userService.IsFollowing(ctx, viewerID, user.ID)
	if err != nil {
		return nil, err
	}
	return &profileResponse{
		User:        user.Public(),
		IsFollowing: following,
		IsSelf:      viewerID == user.ID,
	}, nil
}

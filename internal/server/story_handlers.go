package server

import (
	"struggles/internal/models"
	"struggles/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createStoryRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Story         string `json:"story"`
	Tags          string `json:"tags"`
	ProjectURL    string `json:"project_url"`
	SourceCodeURL string `json:"source_code_url"`
	ImageURL      string `json:"image_url"`
	VideoURL      string `json:"video_url"`
}

// GetStories handles GET /api/stories
// @Summary List stories
// @Description Newest first
// @Tags stories
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset"
// @Success 200 {array} models.Story
// @Router /stories [get]
func (s *Server) GetStories(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	stories, err := s.storyService.List(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(stories)
}

// GetStory handles GET /api/stories/:id
// @Summary Get a story
// @Tags stories
// @Produce json
// @Param id path string true "Story ID"
// @Success 200 {object} models.Story
// @Failure 404 {object} models.ErrorResponse
// @Router /stories/{id} [get]
func (s *Server) GetStory(c *fiber.Ctx) error {
	story, err := s.storyService.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(story)
}

// CreateStory handles POST /api/stories
// @Summary Publish a story
// @Description Tags are a comma separated list
// @Tags stories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createStoryRequest true "Story"
// @Success 201 {object} models.Story
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /stories [post]
func (s *Server) CreateStory(c *fiber.Ctx) error {
	var req createStoryRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewInvalidArgumentError("Invalid request body"))
	}

	story, err := s.storyService.Create(c.UserContext(), service.CreateStoryInput{
		Author:        currentUser(c),
		Title:         req.Title,
		Description:   req.Description,
		Story:         req.Story,
		Tags:          req.Tags,
		ProjectURL:    req.ProjectURL,
		SourceCodeURL: req.SourceCodeURL,
		ImageURL:      req.ImageURL,
		VideoURL:      req.VideoURL,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(story)
}

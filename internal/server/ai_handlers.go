package server

import (
	"struggles/internal/ai"
	"struggles/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GenerateStoryPrompt handles POST /api/ai/story-prompt
// @Summary Suggest a writing prompt
// @Tags ai
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ai.StoryPromptInput true "Project"
// @Success 200 {object} ai.StoryPromptOutput
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /ai/story-prompt [post]
func (s *Server) GenerateStoryPrompt(c *fiber.Ctx) error {
	var req ai.StoryPromptInput
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewInvalidArgumentError("Invalid request body"))
	}
	out, err := s.generator.GenerateStoryPrompt(c.UserContext(), req)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(out)
}

// GenerateProjectStory handles POST /api/ai/project-story
// @Summary Draft a project story
// @Tags ai
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ai.ProjectStoryInput true "Project details"
// @Success 200 {object} ai.ProjectStoryOutput
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /ai/project-story [post]
func (s *Server) GenerateProjectStory(c *fiber.Ctx) error {
	var req ai.ProjectStoryInput
	if err := c.BodyParser(&req); err != nil {
		return models.Respond(c, models.NewInvalidArgumentError("Invalid request body"))
	}
	out, err := s.generator.GenerateProjectStory(c.UserContext(), req)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(out)
}

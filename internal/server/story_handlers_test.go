package server

import (
	"net/http"
	"strings"
	"testing"

	"struggles/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStoryRequest() createStoryRequest {
	return createStoryRequest{
		Title:       "Shipping my first CLI",
		Description: "How a weekend tool turned into a month of yak shaving.",
		Story:       strings.Repeat("I kept rewriting the parser until it finally clicked. ", 4),
		Tags:        "Go, cli , go",
		ProjectURL:  "https://example.com/cli",
	}
}

func (ts *testServer) createStory(token string) models.Story {
	ts.t.Helper()
	resp := ts.do(http.MethodPost, "/api/stories", validStoryRequest(), token)
	requireStatus(ts.t, resp, fiber.StatusCreated)
	return decode[models.Story](ts.t, resp)
}

func TestCreateStory(t *testing.T) {
	ts := newTestServer(t, "")
	ada, token := ts.signup("Ada Lovelace", "ada")

	t.Run("anonymous", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/api/stories", validStoryRequest(), "")
		requireStatus(t, resp, fiber.StatusUnauthorized)
	})

	t.Run("invalid", func(t *testing.T) {
		req := validStoryRequest()
		req.Story = "too short"
		resp := ts.do(http.MethodPost, "/api/stories", req, token)
		requireStatus(t, resp, fiber.StatusBadRequest)
		assert.Equal(t, models.CodeInvalidArgument, decode[models.ErrorResponse](t, resp).Code)
	})

	t.Run("success", func(t *testing.T) {
		story := ts.createStory(token)
		assert.NotEmpty(t, story.ID)
		assert.Equal(t, ada.ID, story.Author.ID)
		assert.Equal(t, "Ada Lovelace", story.Author.Name)
		assert.Equal(t, "ada", story.Author.Username)
		assert.Equal(t, models.StringList{"go", "cli"}, story.Tags)

		resp := ts.do(http.MethodGet, "/api/stories/"+story.ID, nil, "")
		requireStatus(t, resp, fiber.StatusOK)
		assert.Equal(t, story.Title, decode[models.Story](t, resp).Title)
	})
}

func TestGetStories(t *testing.T) {
	ts := newTestServer(t, "")
	_, adaToken := ts.signup("Ada Lovelace", "ada")
	_, graceToken := ts.signup("Grace Hopper", "grace")

	first := ts.createStory(adaToken)
	second := ts.createStory(graceToken)

	resp := ts.do(http.MethodGet, "/api/stories", nil, "")
	requireStatus(t, resp, fiber.StatusOK)
	stories := decode[[]models.Story](t, resp)
	require.Len(t, stories, 2)
	assert.Equal(t, second.ID, stories[0].ID, "newest first")
	assert.Equal(t, first.ID, stories[1].ID)

	resp = ts.do(http.MethodGet, "/api/stories?limit=1&offset=1", nil, "")
	requireStatus(t, resp, fiber.StatusOK)
	stories = decode[[]models.Story](t, resp)
	require.Len(t, stories, 1)
	assert.Equal(t, first.ID, stories[0].ID)

	resp = ts.do(http.MethodGet, "/api/users/grace/stories", nil, "")
	requireStatus(t, resp, fiber.StatusOK)
	stories = decode[[]models.Story](t, resp)
	require.Len(t, stories, 1)
	assert.Equal(t, second.ID, stories[0].ID)
}

func TestGetStory_NotFound(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.do(http.MethodGet, "/api/stories/missing", nil, "")
	requireStatus(t, resp, fiber.StatusNotFound)
	assert.Equal(t, models.CodeNotFound, decode[models.ErrorResponse](t, resp).Code)
}

func TestUpdateProfile_RenamesStoryAuthor(t *testing.T) {
	ts := newTestServer(t, "")
	_, token := ts.signup("Ada Lovelace", "ada")
	story := ts.createStory(token)

	resp := ts.do(http.MethodPut, "/api/users/me", updateProfileRequest{
		Name:    "Ada King",
		Bio:     "Countess of Lovelace",
		Website: "https://example.com/ada",
	}, token)
	requireStatus(t, resp, fiber.StatusOK)
	updated := decode[models.User](t, resp)
	assert.Equal(t, "Ada King", updated.Name)
	assert.Equal(t, "Countess of Lovelace", updated.Bio)

	resp = ts.do(http.MethodGet, "/api/stories/"+story.ID, nil, "")
	requireStatus(t, resp, fiber.StatusOK)
	assert.Equal(t, "Ada King", decode[models.Story](t, resp).Author.Name)

	t.Run("invalid website", func(t *testing.T) {
		resp := ts.do(http.MethodPut, "/api/users/me", updateProfileRequest{
			Name: "Ada King", Website: "not a url",
		}, token)
		requireStatus(t, resp, fiber.StatusBadRequest)
	})

	t.Run("anonymous", func(t *testing.T) {
		resp := ts.do(http.MethodPut, "/api/users/me", updateProfileRequest{Name: "Nobody"}, "")
		requireStatus(t, resp, fiber.StatusUnauthorized)
	})
}

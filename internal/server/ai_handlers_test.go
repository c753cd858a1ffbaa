package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"struggles/internal/ai"
	"struggles/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateStoryPrompt(ctx context.Context, in ai.StoryPromptInput) (*ai.StoryPromptOutput, error) {
	args := m.Called(ctx, in)
	if out, ok := args.Get(0).(*ai.StoryPromptOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGenerator) GenerateProjectStory(ctx context.Context, in ai.ProjectStoryInput) (*ai.ProjectStoryOutput, error) {
	args := m.Called(ctx, in)
	if out, ok := args.Get(0).(*ai.ProjectStoryOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

var promptInput = ai.StoryPromptInput{
	ProjectName:      "Tiny Compiler",
	ProjectType:      "Developer tool",
	DevelopmentStage: "Prototype",
}

func TestAIRoutes_DisabledByFlag(t *testing.T) {
	ts := newTestServer(t, "ai_generation=off")
	_, token := ts.signup("Ada Lovelace", "ada")

	resp := ts.do(http.MethodPost, "/api/ai/story-prompt", promptInput, token)
	requireStatus(t, resp, fiber.StatusNotFound)
}

func TestAIRoutes_RequireSignIn(t *testing.T) {
	ts := newTestServer(t, allFlagsOn)

	resp := ts.do(http.MethodPost, "/api/ai/story-prompt", promptInput, "")
	requireStatus(t, resp, fiber.StatusUnauthorized)
}

func TestGenerateStoryPrompt(t *testing.T) {
	ts := newTestServer(t, allFlagsOn)
	_, token := ts.signup("Ada Lovelace", "ada")

	gen := new(mockGenerator)
	gen.On("GenerateStoryPrompt", mock.Anything, promptInput).
		Return(&ai.StoryPromptOutput{Prompt: "What almost made you quit?"}, nil).Once()
	ts.srv.generator = gen

	resp := ts.do(http.MethodPost, "/api/ai/story-prompt", promptInput, token)
	requireStatus(t, resp, fiber.StatusOK)
	assert.Equal(t, "What almost made you quit?", decode[ai.StoryPromptOutput](t, resp).Prompt)
	gen.AssertExpectations(t)
}

func TestGenerateProjectStory_BackendUnavailable(t *testing.T) {
	ts := newTestServer(t, allFlagsOn)
	_, token := ts.signup("Ada Lovelace", "ada")

	in := ai.ProjectStoryInput{
		ProjectName:    "Tiny Compiler",
		ProjectType:    "Developer tool",
		UserRole:       "Solo developer",
		KeyChallenge:   "Register allocation",
		KeySolution:    "Linear scan",
		TargetAudience: "Hobbyists",
	}
	gen := new(mockGenerator)
	gen.On("GenerateProjectStory", mock.Anything, in).
		Return(nil, models.NewUnavailableError(errors.New("quota exceeded"))).Once()
	ts.srv.generator = gen

	resp := ts.do(http.MethodPost, "/api/ai/project-story", in, token)
	requireStatus(t, resp, fiber.StatusServiceUnavailable)
	body := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, models.CodeUnavailable, body.Code)
	assert.NotContains(t, body.Error, "quota")
	gen.AssertExpectations(t)
}

func TestGenerateStoryPrompt_HTTPBackend(t *testing.T) {
	var gotKey string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": "  Describe the bug that taught you the most.  "}}},
			}},
		})
	}))
	t.Cleanup(backend.Close)

	ts := newTestServer(t, allFlagsOn)
	_, token := ts.signup("Ada Lovelace", "ada")
	ts.srv.generator = ai.NewHTTPGenerator(ai.HTTPConfig{
		Endpoint: backend.URL,
		APIKey:   "test-key",
		Model:    "test-model",
	})

	resp := ts.do(http.MethodPost, "/api/ai/story-prompt", promptInput, token)
	requireStatus(t, resp, fiber.StatusOK)
	assert.Equal(t, "Describe the bug that taught you the most.", decode[ai.StoryPromptOutput](t, resp).Prompt)
	require.Equal(t, "test-key", gotKey)

	t.Run("invalid input", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/api/ai/story-prompt", ai.StoryPromptInput{ProjectName: "x"}, token)
		requireStatus(t, resp, fiber.StatusBadRequest)
	})
}

func TestGenerateStoryPrompt_NotConfigured(t *testing.T) {
	ts := newTestServer(t, allFlagsOn)
	_, token := ts.signup("Ada Lovelace", "ada")

	resp := ts.do(http.MethodPost, "/api/ai/story-prompt", promptInput, token)
	requireStatus(t, resp, fiber.StatusServiceUnavailable)
}

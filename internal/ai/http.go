package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"struggles/internal/middleware"
	"struggles/internal/models"
	"struggles/internal/observability"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel/attribute"
)

// maxResponseBytes caps how much of a backend reply is read.
const maxResponseBytes = 1 << 20

var errNotConfigured = errors.New("text generation endpoint not configured")

// HTTPConfig configures an HTTPGenerator.
type HTTPConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// HTTPGenerator calls a Gemini style generateContent endpoint.
type HTTPGenerator struct {
	cfg    HTTPConfig
	client *retryablehttp.Client
}

// NewHTTPGenerator returns a generator for cfg. An empty endpoint yields a
// generator whose calls fail with UNAVAILABLE.
func NewHTTPGenerator(cfg HTTPConfig) *HTTPGenerator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = middleware.Logger
	// Hand the last failed response back instead of a generic give-up error.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPGenerator{cfg: cfg, client: client}
}

// Enabled reports whether an endpoint is configured.
func (g *HTTPGenerator) Enabled() bool {
	return g != nil && g.cfg.Endpoint != ""
}

func (g *HTTPGenerator) GenerateStoryPrompt(ctx context.Context, in StoryPromptInput) (*StoryPromptOutput, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	text, err := g.generate(ctx, FlowStoryPrompt, storyPromptTemplate, in)
	if err != nil {
		return nil, err
	}
	return &StoryPromptOutput{Prompt: text}, nil
}

func (g *HTTPGenerator) GenerateProjectStory(ctx context.Context, in ProjectStoryInput) (*ProjectStoryOutput, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	text, err := g.generate(ctx, FlowProjectStory, projectStoryTemplate, in)
	if err != nil {
		return nil, err
	}
	return &ProjectStoryOutput{Story: text}, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (g *HTTPGenerator) generate(ctx context.Context, flow string, tmpl *template.Template, data any) (text string, err error) {
	span, ctx := observability.StartService(ctx, "AIGenerator", flow,
		attribute.String("ai.model", g.cfg.Model))
	defer span.End()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.SetError(err)
		}
		observability.AIGenerations.WithLabelValues(flow, outcome).Inc()
	}()

	if !g.Enabled() {
		return "", models.NewUnavailableError(errNotConfigured)
	}

	prompt, err := render(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("render %s prompt: %w", flow, err)
	}
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, g.url(), body)
	if err != nil {
		return "", models.NewUnavailableError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("x-goog-api-key", g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", models.NewUnavailableError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", models.NewUnavailableError(err)
	}
	if resp.StatusCode/100 != 2 {
		return "", models.NewUnavailableError(fmt.Errorf("generation backend returned %d", resp.StatusCode))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", models.NewUnavailableError(fmt.Errorf("decode generation response: %w", err))
	}
	for _, c := range out.Candidates {
		var b strings.Builder
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			return s, nil
		}
	}
	return "", models.NewUnavailableError(errors.New("generation backend returned no text"))
}

// url appends the model path unless the endpoint already names a method.
func (g *HTTPGenerator) url() string {
	if strings.Contains(g.cfg.Endpoint, ":generateContent") || g.cfg.Model == "" {
		return g.cfg.Endpoint
	}
	return strings.TrimRight(g.cfg.Endpoint, "/") + "/models/" + g.cfg.Model + ":generateContent"
}

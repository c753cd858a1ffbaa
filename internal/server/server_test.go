package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"struggles/internal/config"
	"struggles/internal/models"
	"struggles/internal/service"
	"struggles/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testCookie   = "struggles_session"
	testSecret   = "test-secret-key-0123456789abcdef0123456789"
	testPassword = "password123"
	allFlagsOn   = "ai_generation=on,live_streams=on"
)

type testServer struct {
	t   *testing.T
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

func newTestServer(t *testing.T, flags string) *testServer {
	t.Helper()

	db := testutil.NewTestDB(t)
	mr, rdb := testutil.NewTestRedis(t)
	cfg := &config.Config{
		Env:               "test",
		JWTSecret:         testSecret,
		SessionCookieName: testCookie,
		FeatureFlags:      flags,
	}
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.hub.Shutdown(context.Background()) })

	return &testServer{t: t, srv: srv, app: srv.App(), db: db, mr: mr}
}

// signup creates an account through the service, bypassing the signup rate
// limit, and returns it with a session token.
func (ts *testServer) signup(name, username string) (*models.User, string) {
	ts.t.Helper()
	user, err := ts.srv.userService.Signup(context.Background(), service.SignupInput{
		Name:     name,
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	require.NoError(ts.t, err)
	token, _, err := ts.srv.sessions.Issue(user)
	require.NoError(ts.t, err)
	return user, token
}

func (ts *testServer) do(method, path string, body any, token string) *http.Response {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(ts.t, err)
	ts.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func requireStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		raw, _ := io.ReadAll(resp.Body)
		require.Equalf(t, status, resp.StatusCode, "body: %s", raw)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.do(http.MethodGet, "/health/live", nil, "")
	requireStatus(t, resp, fiber.StatusOK)

	resp = ts.do(http.MethodGet, "/health/ready", nil, "")
	requireStatus(t, resp, fiber.StatusOK)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, map[string]any{"database": "healthy", "redis": "healthy"}, body["checks"])

	ts.mr.SetError("LOADING redis is down")
	resp = ts.do(http.MethodGet, "/health/ready", nil, "")
	requireStatus(t, resp, fiber.StatusServiceUnavailable)
	body = decode[map[string]any](t, resp)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, "")

	ts.do(http.MethodGet, "/health/live", nil, "")
	resp := ts.do(http.MethodGet, "/metrics", nil, "")
	requireStatus(t, resp, fiber.StatusOK)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "http_requests_total")
}

func TestNewServerWithDeps_RequiresDatabase(t *testing.T) {
	_, err := NewServerWithDeps(&config.Config{}, nil, nil)
	assert.Error(t, err)
}

func TestFeatureFlagsEndpoint(t *testing.T) {
	ts := newTestServer(t, "ai_generation=on,live_streams=off")

	resp := ts.do(http.MethodGet, "/api/feature-flags", nil, "")
	requireStatus(t, resp, fiber.StatusOK)
	body := decode[struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}](t, resp)
	assert.Equal(t, "on", body.Raw["ai_generation"])
	assert.True(t, body.Evaluated["ai_generation"])
	assert.False(t, body.Evaluated["live_streams"])
}

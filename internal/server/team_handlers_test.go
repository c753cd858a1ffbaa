package server

import (
	"net/http"
	"testing"

	"struggles/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeams(t *testing.T) {
	ts := newTestServer(t, "")
	ada, adaToken := ts.signup("Ada Lovelace", "ada")
	grace, graceToken := ts.signup("Grace Hopper", "grace")

	resp := ts.do(http.MethodPost, "/api/teams", createTeamRequest{
		Name:        "Compiler Club",
		Description: "People who argue about parsers.",
	}, adaToken)
	requireStatus(t, resp, fiber.StatusCreated)
	team := decode[models.Team](t, resp)
	assert.Equal(t, ada.ID, team.OwnerID)
	assert.Equal(t, []string{ada.ID}, team.Members)

	resp = ts.do(http.MethodGet, "/api/teams/mine", nil, graceToken)
	requireStatus(t, resp, fiber.StatusOK)
	assert.Empty(t, decode[[]models.Team](t, resp))

	resp = ts.do(http.MethodPost, "/api/teams/"+team.ID+"/join", nil, graceToken)
	requireStatus(t, resp, fiber.StatusOK)
	assert.ElementsMatch(t, []string{ada.ID, grace.ID}, decode[models.Team](t, resp).Members)

	// Joining twice is a no-op.
	resp = ts.do(http.MethodPost, "/api/teams/"+team.ID+"/join", nil, graceToken)
	requireStatus(t, resp, fiber.StatusOK)
	assert.Len(t, decode[models.Team](t, resp).Members, 2)

	resp = ts.do(http.MethodGet, "/api/teams/mine", nil, graceToken)
	requireStatus(t, resp, fiber.StatusOK)
	mine := decode[[]models.Team](t, resp)
	require.Len(t, mine, 1)
	assert.Equal(t, team.ID, mine[0].ID)

	resp = ts.do(http.MethodGet, "/api/teams", nil, "")
	requireStatus(t, resp, fiber.StatusOK)
	assert.Len(t, decode[[]models.Team](t, resp), 1)

	resp = ts.do(http.MethodGet, "/api/teams/"+team.ID, nil, "")
	requireStatus(t, resp, fiber.StatusOK)
	assert.Equal(t, "Compiler Club", decode[models.Team](t, resp).Name)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		token  string
		status int
	}{
		{"create anonymous", http.MethodPost, "/api/teams", createTeamRequest{Name: "Night Owls", Description: "We ship after midnight."}, "", fiber.StatusUnauthorized},
		{"create invalid", http.MethodPost, "/api/teams", createTeamRequest{Name: "NO", Description: "short"}, adaToken, fiber.StatusBadRequest},
		{"join unknown", http.MethodPost, "/api/teams/missing/join", nil, graceToken, fiber.StatusNotFound},
		{"get unknown", http.MethodGet, "/api/teams/missing", nil, "", fiber.StatusNotFound},
		{"mine anonymous", http.MethodGet, "/api/teams/mine", nil, "", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireStatus(t, ts.do(tt.method, tt.path, tt.body, tt.token), tt.status)
		})
	}
}

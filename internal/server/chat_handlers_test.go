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

func (ts *testServer) openChat(token, otherID string) models.Chat {
	ts.t.Helper()
	resp := ts.do(http.MethodPost, "/api/chats", createChatRequest{UserID: otherID}, token)
	requireStatus(ts.t, resp, fiber.StatusOK)
	return decode[models.Chat](ts.t, resp)
}

func TestCreateOrGetChat(t *testing.T) {
	ts := newTestServer(t, "")
	ada, adaToken := ts.signup("Ada Lovelace", "ada")
	grace, graceToken := ts.signup("Grace Hopper", "grace")

	chat := ts.openChat(adaToken, grace.ID)
	assert.Equal(t, models.ChatIDFor(ada.ID, grace.ID), chat.ID)
	assert.ElementsMatch(t, []string{ada.ID, grace.ID}, chat.ParticipantIDs)
	assert.Equal(t, models.ChatCreatedText, chat.LastMessage)
	assert.Len(t, chat.Participants, 2)

	again := ts.openChat(graceToken, ada.ID)
	assert.Equal(t, chat.ID, again.ID, "either side resolves the same chat")

	var count int64
	require.NoError(t, ts.db.Model(&models.Chat{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	tests := []struct {
		name   string
		userID string
		token  string
		status int
	}{
		{"anonymous", grace.ID, "", fiber.StatusUnauthorized},
		{"self", ada.ID, adaToken, fiber.StatusBadRequest},
		{"missing partner", "", adaToken, fiber.StatusBadRequest},
		{"unknown partner", "00000000-0000-0000-0000-000000000000", adaToken, fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(http.MethodPost, "/api/chats", createChatRequest{UserID: tt.userID}, tt.token)
			requireStatus(t, resp, tt.status)
		})
	}
}

func TestSendAndListMessages(t *testing.T) {
	ts := newTestServer(t, "")
	ada, adaToken := ts.signup("Ada Lovelace", "ada")
	grace, graceToken := ts.signup("Grace Hopper", "grace")
	_, linusToken := ts.signup("Linus Torvalds", "linus")

	chat := ts.openChat(adaToken, grace.ID)
	path := "/api/chats/" + chat.ID + "/messages"

	resp := ts.do(http.MethodPost, path, sendMessageRequest{Text: "hello grace"}, adaToken)
	requireStatus(t, resp, fiber.StatusCreated)
	first := decode[models.Message](t, resp)
	assert.Equal(t, ada.ID, first.SenderID)
	assert.Equal(t, chat.ID, first.ChatID)

	resp = ts.do(http.MethodPost, path, sendMessageRequest{Text: "hi ada"}, graceToken)
	requireStatus(t, resp, fiber.StatusCreated)

	resp = ts.do(http.MethodGet, path, nil, graceToken)
	requireStatus(t, resp, fiber.StatusOK)
	messages := decode[[]models.Message](t, resp)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello grace", messages[0].Text, "oldest first")
	assert.Equal(t, "hi ada", messages[1].Text)
	assert.False(t, messages[1].CreatedAt.Before(messages[0].CreatedAt))

	resp = ts.do(http.MethodGet, "/api/chats", nil, adaToken)
	requireStatus(t, resp, fiber.StatusOK)
	chats := decode[[]models.Chat](t, resp)
	require.Len(t, chats, 1)
	assert.Equal(t, "hi ada", chats[0].LastMessage)

	resp = ts.do(http.MethodGet, "/api/chats/"+chat.ID, nil, graceToken)
	requireStatus(t, resp, fiber.StatusOK)
	assert.Equal(t, "hi ada", decode[models.Chat](t, resp).LastMessage)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		token  string
		status int
	}{
		{"outsider reads messages", http.MethodGet, path, nil, linusToken, fiber.StatusForbidden},
		{"outsider reads chat", http.MethodGet, "/api/chats/" + chat.ID, nil, linusToken, fiber.StatusForbidden},
		{"outsider sends", http.MethodPost, path, sendMessageRequest{Text: "let me in"}, linusToken, fiber.StatusForbidden},
		{"empty text", http.MethodPost, path, sendMessageRequest{Text: "   "}, adaToken, fiber.StatusBadRequest},
		{"text too long", http.MethodPost, path, sendMessageRequest{Text: strings.Repeat("a", 10001)}, adaToken, fiber.StatusBadRequest},
		{"unknown chat", http.MethodGet, "/api/chats/nope/messages", nil, adaToken, fiber.StatusNotFound},
		{"anonymous", http.MethodGet, "/api/chats", nil, "", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireStatus(t, ts.do(tt.method, tt.path, tt.body, tt.token), tt.status)
		})
	}
}

func TestGetChats_EmptyList(t *testing.T) {
	ts := newTestServer(t, "")
	_, token := ts.signup("Ada Lovelace", "ada")

	resp := ts.do(http.MethodGet, "/api/chats", nil, token)
	requireStatus(t, resp, fiber.StatusOK)
	assert.Empty(t, decode[[]models.Chat](t, resp))
}

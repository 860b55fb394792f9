package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ecommerce-chatbot/internal/dto"
	"ecommerce-chatbot/internal/models"
	"ecommerce-chatbot/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// implements ChatAsker for testing
type mockChat struct {
	askFunc func(ctx context.Context, query string) (*service.Reply, error)
}

func (m *mockChat) Ask(ctx context.Context, query string) (*service.Reply, error) {
	if m.askFunc != nil {
		return m.askFunc(ctx, query)
	}
	return &service.Reply{Route: models.RouteFAQ, Answer: "We accept cash on delivery."}, nil
}

// implements RouteClassifier for testing
type mockClassifier struct {
	route models.RouteName
	err   error
}

func (m *mockClassifier) Classify(_ context.Context, _ string) (models.RouteName, error) {
	return m.route, m.err
}

func newTestApp(chat ChatAsker, router RouteClassifier) (*fiber.App, *service.SessionService) {
	sessions := service.NewSessionService()
	h := NewChatHandler(chat, router, sessions, zap.NewNop())

	app := fiber.New()
	app.Get("/health", h.Health)
	app.Post("/api/v1/chat", h.Chat)
	app.Post("/api/v1/route", h.Route)
	app.Get("/api/v1/sessions/:id/messages", h.GetMessages)
	app.Delete("/api/v1/sessions/:id", h.DeleteSession)
	return app, sessions
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestChatCreatesSessionAndRecordsTurns(t *testing.T) {
	app, sessions := newTestApp(&mockChat{}, &mockClassifier{})

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/chat", `{"query":"Do you accept cash?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.ChatResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "faq", out.Route)
	assert.Equal(t, "We accept cash on delivery.", out.Answer)
	require.NotEmpty(t, out.SessionID)

	messages, err := sessions.Messages(out.SessionID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, "Do you accept cash?", messages[0].Content)
	assert.Equal(t, models.RoleAssistant, messages[1].Role)

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/sessions/"+out.SessionID+"/messages", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history dto.SessionMessagesResponse
	require.NoError(t, json.Unmarshal(body, &history))
	assert.Len(t, history.Messages, 2)
}

func TestChatReusesSession(t *testing.T) {
	app, sessions := newTestApp(&mockChat{}, &mockClassifier{})
	id := sessions.Create()

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/chat", `{"session_id":"`+id+`","query":"first"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/chat", `{"session_id":"`+id+`","query":"second"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	messages, err := sessions.Messages(id)
	require.NoError(t, err)
	assert.Len(t, messages, 4)
	assert.Equal(t, "second", messages[2].Content)
}

func TestChatErrors(t *testing.T) {
	chat := &mockChat{
		askFunc: func(_ context.Context, query string) (*service.Reply, error) {
			if strings.TrimSpace(query) == "" {
				return nil, service.ErrEmptyQuery
			}
			return nil, errors.New("boom")
		},
	}
	app, _ := newTestApp(chat, &mockClassifier{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"query":`, http.StatusBadRequest},
		{"empty query", `{"query":"  "}`, http.StatusBadRequest},
		{"bad session id", `{"session_id":"abc","query":"hi"}`, http.StatusBadRequest},
		{"unknown session", `{"session_id":"6f1c8d3e-2f5b-4d7a-9c1e-3b2a1f0e9d8c","query":"hi"}`, http.StatusNotFound},
		{"pipeline failure", `{"query":"hi"}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, http.MethodPost, "/api/v1/chat", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode, string(body))
		})
	}
}

func TestRoute(t *testing.T) {
	app, _ := newTestApp(&mockChat{}, &mockClassifier{route: models.RouteSQL})

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/route", `{"query":"Puma shoes under 3000"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"route":"sql"}`, string(body))

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/route", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouteClassificationUnavailable(t *testing.T) {
	app, _ := newTestApp(&mockChat{}, &mockClassifier{err: service.ErrClassification})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/route", `{"query":"hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSessionEndpoints(t *testing.T) {
	app, sessions := newTestApp(&mockChat{}, &mockClassifier{})
	id := sessions.Create()

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/sessions/not-a-uuid/messages", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/sessions/"+id+"/messages", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(&mockChat{}, &mockClassifier{})

	resp, body := doJSON(t, app, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

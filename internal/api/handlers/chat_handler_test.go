package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invoicehub/internal/dto"
	"invoicehub/internal/service"
)

type stubChatService struct {
	chatResp   *dto.ChatResponse
	chatErr    error
	historyErr error
	lastUserID uuid.UUID
}

func (s *stubChatService) HandleMessage(_ context.Context, userID uuid.UUID, _ *dto.ChatRequest) (*dto.ChatResponse, error) {
	s.lastUserID = userID
	return s.chatResp, s.chatErr
}

func (s *stubChatService) ListSessions(context.Context, uuid.UUID) ([]dto.SessionSummary, error) {
	return nil, nil
}

func (s *stubChatService) SessionHistory(context.Context, uuid.UUID, uuid.UUID) (*dto.SessionHistory, error) {
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return &dto.SessionHistory{}, nil
}

func (s *stubChatService) DeleteSession(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func newChatTestApp(svc ChatService, userID string) *fiber.App {
	app := fiber.New()

	// Stand-in for the JWT middleware.
	app.Use(func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("userID", userID)
		}
		return c.Next()
	})

	h := NewChatHandler(svc, zap.NewNop())
	app.Post("/chat", h.Chat)
	app.Get("/chat/sessions/:id", h.SessionHistory)

	return app
}

func TestChatHandlerSuccess(t *testing.T) {
	userID := uuid.New()
	svc := &stubChatService{chatResp: &dto.ChatResponse{Reply: "hi", SessionID: uuid.NewString()}}
	app := newChatTestApp(svc, userID.String())

	body, _ := json.Marshal(dto.ChatRequest{Message: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, userID, svc.lastUserID)
}

func TestChatHandlerEmptyMessage(t *testing.T) {
	app := newChatTestApp(&stubChatService{}, uuid.NewString())

	body, _ := json.Marshal(dto.ChatRequest{Message: ""})
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatHandlerMissingIdentity(t *testing.T) {
	app := newChatTestApp(&stubChatService{}, "")

	body, _ := json.Marshal(dto.ChatRequest{Message: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionHistoryHandlerBadID(t *testing.T) {
	app := newChatTestApp(&stubChatService{}, uuid.NewString())

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions/not-a-uuid", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionHistoryHandlerNotFound(t *testing.T) {
	app := newChatTestApp(&stubChatService{historyErr: service.ErrSessionNotFound}, uuid.NewString())

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions/"+uuid.NewString(), nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

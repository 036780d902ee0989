package service

import (
	"context"
	"fmt"
	"time"

	"invoicehub/internal/dto"
	"invoicehub/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStore is the slice of the session repository the chat service needs.
type SessionStore interface {
	Create(ctx context.Context, session *models.ChatSession) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.ChatSession, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.ChatSession, error)
	Touch(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	AddMessage(ctx context.Context, msg *models.ChatMessage) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*models.ChatMessage, error)
}

// Assistant produces a reply given the conversation so far.
type Assistant interface {
	Ask(ctx context.Context, history []*models.ChatMessage, message string) (string, error)
}

type ChatService struct {
	sessions  SessionStore
	assistant Assistant
	logger    *zap.Logger
}

func NewChatService(sessions SessionStore, assistant Assistant, logger *zap.Logger) *ChatService {
	return &ChatService{
		sessions:  sessions,
		assistant: assistant,
		logger:    logger,
	}
}

// HandleMessage routes a user message to the assistant and records both
// sides of the turn. An unknown or expired session ID silently starts a
// fresh session rather than failing the request.
func (s *ChatService) HandleMessage(ctx context.Context, userID uuid.UUID, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	session, err := s.resolveSession(ctx, userID, req.SessionID)
	if err != nil {
		return nil, err
	}

	history, err := s.sessions.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}

	reply, err := s.assistant.Ask(ctx, history, req.Message)
	if err != nil {
		return nil, fmt.Errorf("assistant failed: %w", err)
	}

	now := time.Now()
	userMsg := &models.ChatMessage{
		ID:        uuid.New(),
		SessionID: session.ID,
		Role:      models.ChatRoleUser,
		Content:   sanitizeUTF8(req.Message),
		CreatedAt: now,
	}
	modelMsg := &models.ChatMessage{
		ID:        uuid.New(),
		SessionID: session.ID,
		Role:      models.ChatRoleModel,
		Content:   sanitizeUTF8(reply),
		CreatedAt: now.Add(time.Millisecond),
	}

	if err := s.sessions.AddMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to record user message: %w", err)
	}
	if err := s.sessions.AddMessage(ctx, modelMsg); err != nil {
		return nil, fmt.Errorf("failed to record reply: %w", err)
	}
	if err := s.sessions.Touch(ctx, session.ID); err != nil {
		s.logger.Warn("Failed to bump session timestamp",
			zap.String("session_id", session.ID.String()),
			zap.Error(err),
		)
	}

	return &dto.ChatResponse{
		Reply:     reply,
		SessionID: session.ID.String(),
	}, nil
}

func (s *ChatService) resolveSession(ctx context.Context, userID uuid.UUID, sessionID string) (*models.ChatSession, error) {
	if sessionID != "" {
		id, err := uuid.Parse(sessionID)
		if err == nil {
			session, err := s.sessions.GetByID(ctx, id, userID)
			if err == nil {
				return session, nil
			}
		}
		s.logger.Warn("Session not found, creating a new one",
			zap.String("session_id", sessionID),
			zap.String("user_id", userID.String()),
		)
	}

	now := time.Now()
	session := &models.ChatSession{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ListSessions returns summaries of the user's conversations, most
// recently updated first.
func (s *ChatService) ListSessions(ctx context.Context, userID uuid.UUID) ([]dto.SessionSummary, error) {
	sessions, err := s.sessions.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	summaries := make([]dto.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		messages, err := s.sessions.ListMessages(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load messages for session %s: %w", session.ID, err)
		}

		summaries = append(summaries, dto.SessionSummary{
			ID:          session.ID.String(),
			LastMessage: lastMessage(messages),
			LastUpdated: session.UpdatedAt,
		})
	}

	return summaries, nil
}

// lastMessage picks the text shown in the session list: the newest
// assistant reply, or the user message that preceded it when the
// assistant has not answered yet.
func lastMessage(messages []*models.ChatMessage) string {
	if len(messages) == 0 {
		return ""
	}

	last := messages[len(messages)-1]
	if last.Role == models.ChatRoleModel {
		return last.Content
	}
	if len(messages) >= 2 {
		return messages[len(messages)-2].Content
	}
	return last.Content
}

// SessionHistory returns the full message log of one conversation.
func (s *ChatService) SessionHistory(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionHistory, error) {
	session, err := s.sessions.GetByID(ctx, sessionID, userID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	messages, err := s.sessions.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session messages: %w", err)
	}

	texts := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.Content != "" {
			texts = append(texts, msg.Content)
		}
	}

	return &dto.SessionHistory{
		ID:       session.ID.String(),
		Messages: texts,
	}, nil
}

// DeleteSession removes one conversation and its messages.
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	if _, err := s.sessions.GetByID(ctx, sessionID, userID); err != nil {
		return ErrSessionNotFound
	}
	return s.sessions.Delete(ctx, sessionID, userID)
}

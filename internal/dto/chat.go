package dto

import "time"

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
	// SessionID continues an existing conversation. When empty a new
	// session is created.
	SessionID string `json:"session_id,omitempty"`
}

type ChatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

type SessionSummary struct {
	ID          string    `json:"id"`
	LastMessage string    `json:"last_message"`
	LastUpdated time.Time `json:"last_updated"`
}

type SessionHistory struct {
	ID       string   `json:"id"`
	Messages []string `json:"messages"`
}

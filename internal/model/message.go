package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleTool  Role = "tool"
)

// Message is one entry in a session's history. Immutable once appended.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the request to send a message to the agent.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse is the blocking (non-streaming) reply to a message.
type MessageResponse struct {
	SessionID    string `json:"session_id"`
	Response     string `json:"response"`
	MessageCount int    `json:"message_count"`
}

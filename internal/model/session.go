// Package model defines data structures for the event discovery platform.
package model

import (
	"time"
)

// WorkflowState is the position of a conversation in the event discovery task.
type WorkflowState string

const (
	// StateAwaitingLocation means the agent still needs a city and country.
	StateAwaitingLocation WorkflowState = "awaiting_location"
	// StateHaveCityCenter means the city center has been resolved but no
	// event list has been presented yet.
	StateHaveCityCenter WorkflowState = "have_city_center"
	// StateEventsPresented means an event list was just produced.
	StateEventsPresented WorkflowState = "events_presented"
	// StateAwaitingSelection means the agent asked for a numeric selection.
	StateAwaitingSelection WorkflowState = "awaiting_selection"
	// StateSelectionResolved means map links were delivered; a new location
	// message restarts the workflow.
	StateSelectionResolved WorkflowState = "selection_resolved"
)

// Conversation carries the workflow context that survives between turns.
// It is persisted inside the session record; there is no independent store
// for event sets or city centers.
type Conversation struct {
	State      WorkflowState `json:"state"`
	CityCenter *CityCenter   `json:"city_center,omitempty"`
	Events     []Event       `json:"events,omitempty"`
}

// NewConversation returns conversation context at the start of the workflow.
func NewConversation() Conversation {
	return Conversation{State: StateAwaitingLocation}
}

// Session represents one user's conversation with the agent.
type Session struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	Messages     []Message    `json:"messages"`
	Context      Conversation `json:"context"`
	CreatedAt    time.Time    `json:"created_at"`
	LastActivity time.Time    `json:"last_activity"`
}

// CreateSessionRequest is the request to create a new session.
type CreateSessionRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// SessionResponse is the response when creating a session.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionInfoResponse is detailed session information.
type SessionInfoResponse struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	State        string    `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

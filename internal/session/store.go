// Package session owns per-user conversation history: TTL-based expiry,
// history trimming, transactional turn appends, and per-session turn
// serialization.
package session

import (
	"context"
	"errors"

	"github.com/cityscout-ai/event-discovery-platform/internal/model"
)

var (
	// ErrNotFound is returned when a session does not exist. A lookup on an
	// expired session is indistinguishable from one that never existed.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned by stores that can tell expiry apart from
	// absence. Callers should treat it like ErrNotFound.
	ErrExpired = errors.New("session expired")

	// ErrBusy is returned when a turn is already in flight for the session.
	ErrBusy = errors.New("session busy")
)

// Store persists sessions in a key-value backend with per-key expiry.
type Store interface {
	// Create makes a new session owned by userID and returns it.
	Create(ctx context.Context, userID string) (*model.Session, error)

	// Load returns the session or ErrNotFound/ErrExpired.
	Load(ctx context.Context, sessionID string) (*model.Session, error)

	// AppendTurn appends a whole turn's messages and the updated
	// conversation context in one write, refreshing the expiry horizon and
	// trimming history from the front. It returns the resulting message
	// count. Either the whole turn is recorded or none of it.
	AppendTurn(ctx context.Context, sessionID string, msgs []model.Message, conv model.Conversation) (int, error)

	// Touch refreshes the expiry horizon without appending.
	Touch(ctx context.Context, sessionID string) error

	// Delete removes the session.
	Delete(ctx context.Context, sessionID string) error

	// List returns all active session IDs.
	List(ctx context.Context) ([]string, error)

	// Ping checks backend health.
	Ping(ctx context.Context) error
}

// trimHistory drops the oldest messages so at most max remain. max <= 0
// disables trimming.
func trimHistory(msgs []model.Message, max int) []model.Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}
	return msgs[len(msgs)-max:]
}

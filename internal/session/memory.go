package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cityscout-ai/event-discovery-platform/internal/model"
)

type memoryEntry struct {
	session   model.Session
	expiresAt time.Time
}

// MemoryStore is an in-process Store with TTL expiry. Used in development
// and tests; production deployments use the NATS KV store.
type MemoryStore struct {
	ttl         time.Duration
	maxMessages int

	mu       sync.RWMutex
	sessions map[string]*memoryEntry

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(ttl time.Duration, maxMessages int) *MemoryStore {
	return &MemoryStore{
		ttl:         ttl,
		maxMessages: maxMessages,
		sessions:    make(map[string]*memoryEntry),
		now:         time.Now,
	}
}

// Create makes a new session owned by userID.
func (s *MemoryStore) Create(ctx context.Context, userID string) (*model.Session, error) {
	now := s.now()
	sess := model.Session{
		ID:           uuid.Must(uuid.NewV7()).String(),
		UserID:       userID,
		Messages:     []model.Message{},
		Context:      model.NewConversation(),
		CreatedAt:    now,
		LastActivity: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &memoryEntry{session: sess, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()

	out := sess
	return &out, nil
}

// Load returns the session, ErrExpired past the horizon, or ErrNotFound.
func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.sessions, sessionID)
		return nil, ErrExpired
	}

	out := entry.session
	out.Messages = append([]model.Message(nil), entry.session.Messages...)
	return &out, nil
}

// AppendTurn appends messages and context in one write.
func (s *MemoryStore) AppendTurn(ctx context.Context, sessionID string, msgs []model.Message, conv model.Conversation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return 0, ErrNotFound
	}
	now := s.now()
	if now.After(entry.expiresAt) {
		delete(s.sessions, sessionID)
		return 0, ErrExpired
	}

	entry.session.Messages = trimHistory(append(entry.session.Messages, msgs...), s.maxMessages)
	entry.session.Context = conv
	entry.session.LastActivity = now
	entry.expiresAt = now.Add(s.ttl)

	return len(entry.session.Messages), nil
}

// Touch refreshes the expiry horizon.
func (s *MemoryStore) Touch(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	now := s.now()
	if now.After(entry.expiresAt) {
		delete(s.sessions, sessionID)
		return ErrExpired
	}

	entry.session.LastActivity = now
	entry.expiresAt = now.Add(s.ttl)
	return nil
}

// Delete removes the session. Deleting an absent session is not an error.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// List returns active session IDs.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	ids := make([]string, 0, len(s.sessions))
	for id, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// SetClock replaces the time source. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

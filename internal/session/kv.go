package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/cityscout-ai/event-discovery-platform/internal/model"
	natsclient "github.com/cityscout-ai/event-discovery-platform/internal/nats"
)

// BucketName is the JetStream KV bucket holding session records.
const BucketName = "SESSIONS"

// KVStore persists sessions in a NATS JetStream key-value bucket. The bucket
// TTL ages out the latest revision of a key, so every Put refreshes the
// expiry horizon — an expired session simply disappears and a later Load is
// indistinguishable from one that never existed.
//
// Concurrent Get/Put on the same key is not atomic; the TurnGuard serializes
// turns per session above this layer.
type KVStore struct {
	kv          jetstream.KeyValue
	client      *natsclient.Client
	maxMessages int
}

// NewKVStore binds to the session bucket, creating it if needed.
func NewKVStore(ctx context.Context, client *natsclient.Client, ttl time.Duration, maxMessages int) (*KVStore, error) {
	js := client.JetStream()

	kv, err := js.KeyValue(ctx, BucketName)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      BucketName,
			Description: "Conversation sessions with TTL expiry",
			TTL:         ttl,
			Storage:     jetstream.FileStorage,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create session bucket: %w", err)
		}
	}

	return &KVStore{
		kv:          kv,
		client:      client,
		maxMessages: maxMessages,
	}, nil
}

// Create makes a new session owned by userID.
func (s *KVStore) Create(ctx context.Context, userID string) (*model.Session, error) {
	now := time.Now()
	sess := &model.Session{
		ID:           uuid.Must(uuid.NewV7()).String(),
		UserID:       userID,
		Messages:     []model.Message{},
		Context:      model.NewConversation(),
		CreatedAt:    now,
		LastActivity: now,
	}

	if err := s.put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Load returns the session or ErrNotFound.
func (s *KVStore) Load(ctx context.Context, sessionID string) (*model.Session, error) {
	entry, err := s.kv.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(entry.Value(), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// AppendTurn appends messages and the updated context in one write. The
// write refreshes the TTL.
func (s *KVStore) AppendTurn(ctx context.Context, sessionID string, msgs []model.Message, conv model.Conversation) (int, error) {
	sess, err := s.Load(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	sess.Messages = trimHistory(append(sess.Messages, msgs...), s.maxMessages)
	sess.Context = conv
	sess.LastActivity = time.Now()

	if err := s.put(ctx, sess); err != nil {
		return 0, err
	}
	return len(sess.Messages), nil
}

// Touch rewrites the record to refresh the TTL.
func (s *KVStore) Touch(ctx context.Context, sessionID string) error {
	sess, err := s.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.LastActivity = time.Now()
	return s.put(ctx, sess)
}

// Delete removes the session.
func (s *KVStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.kv.Delete(ctx, sessionID); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns all active session IDs.
func (s *KVStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return keys, nil
}

// Ping reports backend connectivity.
func (s *KVStore) Ping(ctx context.Context) error {
	if !s.client.IsConnected() {
		return errors.New("NATS not connected")
	}
	return nil
}

func (s *KVStore) put(ctx context.Context, sess *model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if _, err := s.kv.Put(ctx, sess.ID, data); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

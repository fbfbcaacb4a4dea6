package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityscout-ai/event-discovery-platform/internal/agent"
	"github.com/cityscout-ai/event-discovery-platform/internal/model"
	"github.com/cityscout-ai/event-discovery-platform/internal/session"
	"github.com/cityscout-ai/event-discovery-platform/pkg/logger"
)

// fakeRunner emits its chunks after an optional delay, simulating a slow
// tool phase followed by text output.
type fakeRunner struct {
	delay  time.Duration
	chunks []string
	err    error
}

func (f *fakeRunner) RunTurn(ctx context.Context, conv *model.Conversation, userText string, emit agent.EmitFunc) (string, error) {
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}

	var reply string
	for _, chunk := range f.chunks {
		reply += chunk
		if emit != nil {
			emit(chunk)
		}
	}
	conv.State = model.StateAwaitingSelection
	return reply, nil
}

func newTestManager(t *testing.T, runner TurnRunner, statusInterval time.Duration) (*Manager, *session.MemoryStore, string) {
	t.Helper()
	store := session.NewMemoryStore(time.Hour, 50)
	sess, err := store.Create(context.Background(), "user-1")
	require.NoError(t, err)

	m := NewManager(store, session.NewTurnGuard(), runner, statusInterval, time.Second, logger.NewNop())
	return m, store, sess.ID
}

func collect(t *testing.T, ch <-chan model.StreamEvent) []model.StreamEvent {
	t.Helper()
	var events []model.StreamEvent
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("stream did not terminate")
		}
	}
}

func TestStreamTurn_StatusThenTextThenDone(t *testing.T) {
	runner := &fakeRunner{delay: 120 * time.Millisecond, chunks: []string{"part one ", "part two"}}
	m, _, sessionID := newTestManager(t, runner, 25*time.Millisecond)

	events := collect(t, m.StreamTurn(context.Background(), sessionID, "Limassol, Cyprus"))
	require.NotEmpty(t, events)

	// Immediate acknowledgment first, then periodic liveness updates while
	// the tool phase runs.
	assert.Equal(t, model.StreamEventStatus, events[0].Type)
	assert.Equal(t, "Processing your request...", events[0].Content)

	var statusCount, textCount, doneCount int
	firstText := -1
	for i, ev := range events {
		switch ev.Type {
		case model.StreamEventStatus:
			statusCount++
			if firstText >= 0 {
				t.Fatalf("status event at %d after text started", i)
			}
		case model.StreamEventText:
			textCount++
			if firstText < 0 {
				firstText = i
			}
		case model.StreamEventDone:
			doneCount++
			assert.Equal(t, len(events)-1, i, "done must be the terminal event")
		}
	}

	assert.GreaterOrEqual(t, statusCount, 3)
	assert.Equal(t, 2, textCount)
	assert.Equal(t, 1, doneCount)
	assert.Equal(t, "part one ", events[firstText].Content)

	// Both sides of the turn were recorded.
	assert.Equal(t, 2, events[len(events)-1].MessageCount)
}

func TestStreamTurn_AppendsWholeTurn(t *testing.T) {
	runner := &fakeRunner{chunks: []string{"hello"}}
	m, store, sessionID := newTestManager(t, runner, time.Minute)

	collect(t, m.StreamTurn(context.Background(), sessionID, "hi"))

	sess, err := store.Load(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, model.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, "hi", sess.Messages[0].Content)
	assert.Equal(t, model.RoleAgent, sess.Messages[1].Role)
	assert.Equal(t, "hello", sess.Messages[1].Content)
	assert.Equal(t, model.StateAwaitingSelection, sess.Context.State)
}

func TestStreamTurn_UnknownSession(t *testing.T) {
	runner := &fakeRunner{chunks: []string{"hello"}}
	m, _, _ := newTestManager(t, runner, time.Minute)

	events := collect(t, m.StreamTurn(context.Background(), "2b7c2f64-0000-7000-8000-000000000000", "hi"))

	last := events[len(events)-1]
	assert.Equal(t, model.StreamEventDone, last.Type)

	var sawExpiredText bool
	for _, ev := range events {
		if ev.Type == model.StreamEventText {
			assert.Contains(t, ev.Content, "expired")
			sawExpiredText = true
		}
	}
	assert.True(t, sawExpiredText)
}

func TestStreamTurn_BusySession(t *testing.T) {
	runner := &fakeRunner{chunks: []string{"hello"}}
	m, _, sessionID := newTestManager(t, runner, time.Minute)

	require.NoError(t, m.guard.Acquire(sessionID))
	defer m.guard.Release(sessionID)

	events := collect(t, m.StreamTurn(context.Background(), sessionID, "hi"))

	var sawBusyText bool
	for _, ev := range events {
		if ev.Type == model.StreamEventText {
			assert.Contains(t, ev.Content, "still working")
			sawBusyText = true
		}
	}
	assert.True(t, sawBusyText)
	assert.Equal(t, model.StreamEventDone, events[len(events)-1].Type)
}

func TestStreamTurn_AbandonedTurnAppendsNothing(t *testing.T) {
	runner := &fakeRunner{delay: 500 * time.Millisecond, chunks: []string{"hello"}}
	m, store, sessionID := newTestManager(t, runner, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	ch := m.StreamTurn(ctx, sessionID, "hi")

	// Let a status or two through, then disconnect.
	time.Sleep(50 * time.Millisecond)
	cancel()

	events := collect(t, ch)
	for _, ev := range events {
		assert.NotEqual(t, model.StreamEventDone, ev.Type, "abandoned turn must not complete")
	}

	sess, err := store.Load(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Empty(t, sess.Messages)
}

func TestStreamTurn_RunnerFailureStillTerminates(t *testing.T) {
	runner := &fakeRunner{err: assert.AnError}
	m, store, sessionID := newTestManager(t, runner, time.Minute)

	events := collect(t, m.StreamTurn(context.Background(), sessionID, "hi"))

	last := events[len(events)-1]
	assert.Equal(t, model.StreamEventDone, last.Type)

	var sawApology bool
	for _, ev := range events {
		if ev.Type == model.StreamEventText {
			sawApology = true
		}
	}
	assert.True(t, sawApology)

	// A failed turn is not recorded.
	sess, err := store.Load(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Empty(t, sess.Messages)
}

// touchRecorder counts expiry refreshes issued while a turn is in flight.
type touchRecorder struct {
	session.Store
	touches int
}

func (r *touchRecorder) Touch(ctx context.Context, sessionID string) error {
	r.touches++
	return r.Store.Touch(ctx, sessionID)
}

func TestStreamTurn_RefreshesExpiryDuringLongTurn(t *testing.T) {
	store := session.NewMemoryStore(time.Hour, 50)
	sess, err := store.Create(context.Background(), "user-1")
	require.NoError(t, err)

	recorder := &touchRecorder{Store: store}
	runner := &fakeRunner{delay: 120 * time.Millisecond, chunks: []string{"hello"}}
	m := NewManager(recorder, session.NewTurnGuard(), runner, 25*time.Millisecond, time.Second, logger.NewNop())

	collect(t, m.StreamTurn(context.Background(), sess.ID, "hi"))
	assert.GreaterOrEqual(t, recorder.touches, 2)
}

func TestSendTurn(t *testing.T) {
	runner := &fakeRunner{chunks: []string{"here are events"}}
	m, _, sessionID := newTestManager(t, runner, time.Minute)

	resp, err := m.SendTurn(context.Background(), sessionID, "Limassol, Cyprus")
	require.NoError(t, err)
	assert.Equal(t, sessionID, resp.SessionID)
	assert.Equal(t, "here are events", resp.Response)
	assert.Equal(t, 2, resp.MessageCount)
}

func TestSendTurn_Busy(t *testing.T) {
	runner := &fakeRunner{chunks: []string{"hello"}}
	m, _, sessionID := newTestManager(t, runner, time.Minute)

	require.NoError(t, m.guard.Acquire(sessionID))
	defer m.guard.Release(sessionID)

	_, err := m.SendTurn(context.Background(), sessionID, "hi")
	assert.ErrorIs(t, err, session.ErrBusy)
}

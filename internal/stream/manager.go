// Package stream wraps one orchestrator turn in an ordered event stream:
// periodic liveness status updates race the in-flight work, text deltas
// follow once output is available, and exactly one done event terminates
// the stream — even on failure.
package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cityscout-ai/event-discovery-platform/internal/agent"
	"github.com/cityscout-ai/event-discovery-platform/internal/middleware"
	"github.com/cityscout-ai/event-discovery-platform/internal/model"
	"github.com/cityscout-ai/event-discovery-platform/internal/session"
	"github.com/cityscout-ai/event-discovery-platform/pkg/logger"
	"github.com/cityscout-ai/event-discovery-platform/pkg/metrics"
)

// TurnRunner executes one workflow turn. Satisfied by *agent.Orchestrator.
type TurnRunner interface {
	RunTurn(ctx context.Context, conv *model.Conversation, userText string, emit agent.EmitFunc) (string, error)
}

// Escalating liveness wording: signals the agent is alive without implying
// a progress percentage.
var statusMessages = []string{
	"Still searching for information...",
	"This is taking a bit longer than expected, please wait...",
	"Almost there, still processing...",
	"Thank you for your patience, still working on it...",
}

const processingStatus = "Processing your request..."

// Manager multiplexes orchestrator output and status pings into per-turn
// event streams, and owns the transactional history append at turn end.
type Manager struct {
	store          session.Store
	guard          *session.TurnGuard
	runner         TurnRunner
	statusInterval time.Duration
	turnTimeout    time.Duration
	logger         *logger.Logger
}

// NewManager creates a streaming session manager.
func NewManager(store session.Store, guard *session.TurnGuard, runner TurnRunner, statusInterval, turnTimeout time.Duration, log *logger.Logger) *Manager {
	return &Manager{
		store:          store,
		guard:          guard,
		runner:         runner,
		statusInterval: statusInterval,
		turnTimeout:    turnTimeout,
		logger:         log,
	}
}

// StreamTurn runs one turn for the session and returns its event stream.
// The channel is closed after the terminal done event. Cancelling ctx
// abandons the turn; an abandoned turn appends nothing to history.
func (m *Manager) StreamTurn(ctx context.Context, sessionID, userText string) <-chan model.StreamEvent {
	out := make(chan model.StreamEvent, 16)
	go m.run(ctx, sessionID, userText, out)
	return out
}

type turnResult struct {
	reply string
	err   error
}

func (m *Manager) run(ctx context.Context, sessionID, userText string, out chan<- model.StreamEvent) {
	defer close(out)
	start := time.Now()
	log := m.logger.WithSession(middleware.GetCorrelationID(ctx), sessionID)

	send := func(ev model.StreamEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	// Immediate acknowledgment before any tool call begins.
	if !send(model.StatusEvent(processingStatus)) {
		return
	}

	sess, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			send(model.TextEvent("Your session has expired or doesn't exist. Please start a new one."))
		} else {
			log.Error("failed to load session", zap.Error(err))
			send(model.TextEvent("Something went wrong loading your session. Please try again."))
		}
		send(model.DoneEvent(0))
		return
	}

	if err := m.guard.Acquire(sessionID); err != nil {
		metrics.SessionsBusyTotal.Inc()
		send(model.TextEvent("I'm still working on your previous message — give me a moment and try again."))
		send(model.DoneEvent(len(sess.Messages)))
		return
	}
	defer m.guard.Release(sessionID)

	turnCtx, cancel := context.WithTimeout(ctx, m.turnTimeout)
	defer cancel()

	conv := sess.Context
	textCh := make(chan string, 16)
	resultCh := make(chan turnResult, 1)

	go func() {
		reply, runErr := m.runner.RunTurn(turnCtx, &conv, userText, func(chunk string) {
			select {
			case textCh <- chunk:
			case <-turnCtx.Done():
			}
		})
		resultCh <- turnResult{reply: reply, err: runErr}
	}()

	ticker := time.NewTicker(m.statusInterval)
	defer ticker.Stop()

	var res turnResult
	textStarted := false
	statusIdx := 0

loop:
	for {
		select {
		case <-ctx.Done():
			// Client disconnected: abandon the turn, append nothing.
			log.Info("turn abandoned by client")
			return
		case <-ticker.C:
			// Keep-alive: a near-TTL session must not expire under a turn
			// that is still inside its 120s ceiling.
			if err := m.store.Touch(turnCtx, sessionID); err != nil {
				log.Warn("failed to refresh session expiry", zap.Error(err))
			}
			if !textStarted {
				if !send(model.StatusEvent(statusMessages[statusIdx%len(statusMessages)])) {
					return
				}
				statusIdx++
			}
		case chunk := <-textCh:
			textStarted = true
			if !send(model.TextEvent(chunk)) {
				return
			}
		case res = <-resultCh:
			break loop
		}
	}

	// Drain chunks buffered before the result landed; they precede done.
	for {
		select {
		case chunk := <-textCh:
			if !send(model.TextEvent(chunk)) {
				return
			}
			continue
		default:
		}
		break
	}

	if res.err != nil {
		log.Error("turn failed", zap.Error(res.err))
		metrics.RecordTurn(string(sess.Context.State), "error", time.Since(start).Seconds())
		send(model.TextEvent("I'm sorry, something went wrong while working on that. Please try again."))
		send(model.DoneEvent(len(sess.Messages)))
		return
	}

	count, err := m.appendTurn(turnCtx, sess, userText, res.reply, conv)
	if err != nil {
		log.Error("failed to append turn", zap.Error(err))
		metrics.RecordTurn(string(conv.State), "append_error", time.Since(start).Seconds())
		send(model.TextEvent("I couldn't save this exchange; please resend your message."))
		send(model.DoneEvent(len(sess.Messages)))
		return
	}

	metrics.RecordTurn(string(conv.State), "ok", time.Since(start).Seconds())
	send(model.DoneEvent(count))
}

// SendTurn runs one turn without streaming and returns the full reply.
func (m *Manager) SendTurn(ctx context.Context, sessionID, userText string) (*model.MessageResponse, error) {
	sess, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := m.guard.Acquire(sessionID); err != nil {
		metrics.SessionsBusyTotal.Inc()
		return nil, err
	}
	defer m.guard.Release(sessionID)

	turnCtx, cancel := context.WithTimeout(ctx, m.turnTimeout)
	defer cancel()

	conv := sess.Context
	reply, err := m.runner.RunTurn(turnCtx, &conv, userText, nil)
	if err != nil {
		return nil, fmt.Errorf("turn failed: %w", err)
	}

	count, err := m.appendTurn(turnCtx, sess, userText, reply, conv)
	if err != nil {
		return nil, fmt.Errorf("failed to append turn: %w", err)
	}

	return &model.MessageResponse{
		SessionID:    sessionID,
		Response:     reply,
		MessageCount: count,
	}, nil
}

// appendTurn records the whole exchange — user message and agent reply —
// in a single transactional write.
func (m *Manager) appendTurn(ctx context.Context, sess *model.Session, userText, reply string, conv model.Conversation) (int, error) {
	now := time.Now()
	msgs := []model.Message{
		{
			ID:        uuid.Must(uuid.NewV7()).String(),
			SessionID: sess.ID,
			Role:      model.RoleUser,
			Content:   userText,
			CreatedAt: now,
		},
		{
			ID:        uuid.Must(uuid.NewV7()).String(),
			SessionID: sess.ID,
			Role:      model.RoleAgent,
			Content:   reply,
			CreatedAt: now,
		},
	}

	count, err := m.store.AppendTurn(ctx, sess.ID, msgs, conv)
	if err != nil {
		return 0, err
	}

	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAgent)).Inc()
	return count, nil
}

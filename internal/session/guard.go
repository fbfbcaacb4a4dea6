package session

import (
	"sync"
)

// TurnGuard serializes turns per session: a second concurrent turn on the
// same session is rejected rather than interleaved into history.
type TurnGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewTurnGuard creates an empty guard.
func NewTurnGuard() *TurnGuard {
	return &TurnGuard{inflight: make(map[string]struct{})}
}

// Acquire marks a turn in flight for the session. Returns ErrBusy if one
// already is.
func (g *TurnGuard) Acquire(sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inflight[sessionID]; busy {
		return ErrBusy
	}
	g.inflight[sessionID] = struct{}{}
	return nil
}

// Release clears the in-flight mark. Safe to call for a session that was
// never acquired.
func (g *TurnGuard) Release(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, sessionID)
}

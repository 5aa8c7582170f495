package calls

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrCallInProgress is returned when an agent tries to start a second call.
	ErrCallInProgress = errors.New("a call is already in progress")
	// ErrNoActiveCall is returned when there is nothing to end.
	ErrNoActiveCall = errors.New("no active call")
)

// Session is the ephemeral state of one active call. Nothing is persisted
// until the call ends and the call log write succeeds.
type Session struct {
	AgentID   uuid.UUID `json:"agent_id"`
	LeadID    uuid.UUID `json:"lead_id"`
	StartedAt time.Time `json:"started_at"`
}

// Duration of the call so far, in whole seconds.
func (s *Session) Duration(now time.Time) int {
	return int(now.Sub(s.StartedAt).Seconds())
}

// SessionManager enforces the single-call-at-a-time policy per agent.
// Sessions live in memory only; a crashed process simply loses unfinished
// call state, matching the UI model where an abandoned tab does the same.
type SessionManager struct {
	mu     sync.Mutex
	active map[uuid.UUID]*Session // keyed by agent
}

func NewSessionManager() *SessionManager {
	return &SessionManager{active: make(map[uuid.UUID]*Session)}
}

// Start begins a call for the agent. Fails if the agent already has one.
func (m *SessionManager) Start(agentID, leadID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.active[agentID]; busy {
		return nil, ErrCallInProgress
	}
	s := &Session{AgentID: agentID, LeadID: leadID, StartedAt: time.Now()}
	m.active[agentID] = s
	return s, nil
}

// Active returns the agent's in-progress session, if any. The session is NOT
// removed: ending a call only clears it after the log write succeeds, so a
// failed submit can be retried without losing state.
func (m *SessionManager) Active(agentID uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.active[agentID]
	return s, ok
}

// Finish clears the agent's session after a successful call log write.
func (m *SessionManager) Finish(agentID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, agentID)
}

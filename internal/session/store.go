package session

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
	"github.com/lucinedinatale/chatbot-backend/pkg/prefixed_uuid"
)

const idPrefix = "sess"

// Store is an in-memory session store. Sessions are created on first access
// and removed by Clear or by the periodic TTL sweep.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	ttl          time.Duration
	historyLimit int
	now          func() time.Time
	log          logger.Logger
}

// NewStore creates a session store with the given inactivity TTL and
// per-session history cap.
func NewStore(ttl time.Duration, historyLimit int, log logger.Logger) *Store {
	return &Store{
		sessions:     make(map[string]*Session),
		ttl:          ttl,
		historyLimit: historyLimit,
		now:          time.Now,
		log:          log,
	}
}

// NewID generates a fresh session identifier.
func NewID() string {
	return prefixed_uuid.New(idPrefix).String()
}

// ValidID reports whether id looks like an identifier this store issued.
// Arbitrary client-chosen keys are still accepted when non-empty.
func ValidID(id string) bool {
	return id != "" && !strings.ContainsAny(id, " \t\n")
}

// Get returns the session for id, creating and storing a new one if none
// exists. Repeated calls with the same id return the same conversation.
// The returned value is a copy; use Set and AppendMessage to mutate.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		now := st.now()
		s = &Session{
			ID:             id,
			Mode:           ModeAIChat,
			Escalation:     EscalationNone,
			History:        []Message{},
			CreatedAt:      now,
			LastActivityAt: now,
		}
		st.sessions[id] = s
		st.log.Debug("Session created", logger.SessionIDField(id))
	}
	s.LastActivityAt = st.now()
	return s.Clone()
}

// Peek returns the session for id without creating one. The second return
// value reports whether it exists.
func (st *Store) Peek(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Set applies a partial update to the session for id, creating it first if
// needed. Fields not named in the patch keep their current values.
func (st *Store) Set(id string, patch Patch) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		now := st.now()
		s = &Session{
			ID:             id,
			Mode:           ModeAIChat,
			Escalation:     EscalationNone,
			History:        []Message{},
			CreatedAt:      now,
			LastActivityAt: now,
		}
		st.sessions[id] = s
	}
	patch.apply(s)
	s.LastActivityAt = st.now()
	return s.Clone()
}

// AppendMessage adds a message to the session history, trimming the oldest
// entries once the history cap is reached.
func (st *Store) AppendMessage(id, role, content string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return
	}
	s.History = append(s.History, Message{
		Role:      role,
		Content:   content,
		Timestamp: st.now(),
	})
	if len(s.History) > st.historyLimit {
		s.History = s.History[len(s.History)-st.historyLimit:]
	}
	s.LastActivityAt = st.now()
}

// Clear removes the session for id. Missing ids are a no-op.
func (st *Store) Clear(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// All returns a snapshot of every live session, oldest activity first.
func (st *Store) All() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s.Clone())
	}
	sortByLastActivity(out)
	return out
}

// Pending returns all sessions waiting for an operator, oldest first.
func (st *Store) Pending() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []*Session
	for _, s := range st.sessions {
		if s.Mode == ModeOperatorPending {
			out = append(out, s.Clone())
		}
	}
	sortByLastActivity(out)
	return out
}

// ActiveFor returns the sessions currently owned by the given operator.
func (st *Store) ActiveFor(operatorID string) []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []*Session
	for _, s := range st.sessions {
		if s.Mode == ModeOperatorActive && s.Operator != nil && s.Operator.ID == operatorID {
			out = append(out, s.Clone())
		}
	}
	sortByLastActivity(out)
	return out
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle longer than the TTL and returns how many were
// dropped. Intended to run on a schedule.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-st.ttl)
	removed := 0
	for id, s := range st.sessions {
		if s.LastActivityAt.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		st.log.Info("Expired sessions removed",
			logger.IntField("removed", removed),
			logger.IntField("remaining", len(st.sessions)),
		)
	}
	return removed
}

func sortByLastActivity(sessions []*Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActivityAt.Before(sessions[j].LastActivityAt)
	})
}

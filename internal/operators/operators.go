// Package operators tracks human operator presence and owns the handover of
// chats from the assistant to a person.
package operators

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lucinedinatale/chatbot-backend/internal/session"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
)

var (
	// ErrSessionNotFound means the chat does not exist or has expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAlreadyTaken means another operator owns the chat.
	ErrAlreadyTaken = errors.New("chat already taken by another operator")
	// ErrNotPending means the chat is not waiting for an operator.
	ErrNotPending = errors.New("chat is not waiting for an operator")
	// ErrOperatorNotAvailable means the operator is offline or stale.
	ErrOperatorNotAvailable = errors.New("operator is not available")
	// ErrNotAuthorized means the operator does not own the chat.
	ErrNotAuthorized = errors.New("operator does not own this chat")
)

// Operator is a registered support operator.
type Operator struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Online     bool      `json:"online"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Registry tracks operator presence and serializes chat ownership changes.
// An operator counts as available only while online and seen within the
// liveness window.
type Registry struct {
	mu        sync.Mutex
	operators map[string]*Operator
	sessions  *session.Store
	liveness  time.Duration
	now       func() time.Time
	log       logger.Logger
}

// NewRegistry creates an operator registry bound to the session store.
func NewRegistry(sessions *session.Store, liveness time.Duration, log logger.Logger) *Registry {
	return &Registry{
		operators: make(map[string]*Operator),
		sessions:  sessions,
		liveness:  liveness,
		now:       time.Now,
		log:       log,
	}
}

// SetStatus upserts an operator and marks them online or offline. Any status
// report refreshes the liveness clock.
func (r *Registry) SetStatus(id, name string, online bool) Operator {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, ok := r.operators[id]
	if !ok {
		op = &Operator{ID: id}
		r.operators[id] = op
	}
	if name != "" {
		op.Name = name
	}
	op.Online = online
	op.LastSeenAt = r.now()

	r.log.Info("Operator status updated",
		logger.OperatorIDField(id),
		logger.BoolField("online", online),
	)
	return *op
}

// Heartbeat refreshes the liveness clock for a known operator. Unknown ids
// are ignored so polling cannot register operators implicitly.
func (r *Registry) Heartbeat(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if op, ok := r.operators[id]; ok {
		op.LastSeenAt = r.now()
	}
}

// Get returns the operator record for id.
func (r *Registry) Get(id string) (Operator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, ok := r.operators[id]
	if !ok {
		return Operator{}, false
	}
	return *op, true
}

// Available returns operators that are online and recently seen.
func (r *Registry) Available() []Operator {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.liveness)
	var out []Operator
	for _, op := range r.operators {
		if op.Online && !op.LastSeenAt.Before(cutoff) {
			out = append(out, *op)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AnyAvailable reports whether at least one operator can take a chat.
func (r *Registry) AnyAvailable() bool {
	return len(r.Available()) > 0
}

// Take assigns a pending chat to the operator. Exactly one of several
// concurrent calls for the same chat succeeds.
func (r *Registry) Take(sessionID, operatorID string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, ok := r.operators[operatorID]
	if !ok || !op.Online || op.LastSeenAt.Before(r.now().Add(-r.liveness)) {
		return nil, ErrOperatorNotAvailable
	}

	s, ok := r.sessions.Peek(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	switch s.Mode {
	case session.ModeOperatorActive:
		if s.Operator != nil && s.Operator.ID == operatorID {
			return s, nil
		}
		return nil, ErrAlreadyTaken
	case session.ModeOperatorPending:
		// fall through to assignment
	default:
		return nil, ErrNotPending
	}

	updated := r.sessions.Set(sessionID, session.Patch{
		Mode:     session.ModePtr(session.ModeOperatorActive),
		Operator: &session.OperatorRef{ID: op.ID, Name: op.Name},
	})
	op.LastSeenAt = r.now()

	r.log.Info("Chat taken by operator",
		logger.SessionIDField(sessionID),
		logger.OperatorIDField(operatorID),
	)
	return updated, nil
}

// SendMessage appends an operator reply to a chat the operator owns.
func (r *Registry) SendMessage(sessionID, operatorID, text string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.owned(sessionID, operatorID)
	if err != nil {
		return nil, err
	}

	r.sessions.AppendMessage(sessionID, session.RoleOperator, text)
	if op, ok := r.operators[operatorID]; ok {
		op.LastSeenAt = r.now()
	}
	return r.sessions.Set(s.ID, session.Patch{}), nil
}

// EndChat validates ownership and returns a final snapshot of the chat.
// The caller archives the transcript and removes the session afterwards.
func (r *Registry) EndChat(sessionID, operatorID string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.owned(sessionID, operatorID)
	if err != nil {
		return nil, err
	}

	r.log.Info("Chat released by operator",
		logger.SessionIDField(sessionID),
		logger.OperatorIDField(operatorID),
	)
	return s, nil
}

func (r *Registry) owned(sessionID, operatorID string) (*session.Session, error) {
	s, ok := r.sessions.Peek(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Mode != session.ModeOperatorActive || s.Operator == nil {
		return nil, ErrNotPending
	}
	if s.Operator.ID != operatorID {
		return nil, ErrNotAuthorized
	}
	return s, nil
}

// Package session holds per-visitor conversation state for the chat widget.
// Sessions live in memory and expire after a period of inactivity.
package session

import (
	"time"
)

// Mode describes who is currently answering the visitor.
type Mode string

const (
	// ModeAIChat means the assistant is answering.
	ModeAIChat Mode = "ai_chat"
	// ModeOperatorPending means the visitor asked for a human and is waiting.
	ModeOperatorPending Mode = "operator_pending"
	// ModeOperatorActive means a human operator has taken over the chat.
	ModeOperatorActive Mode = "operator_active"
)

// EscalationStage tracks progress through the human handover flow.
type EscalationStage string

const (
	// EscalationNone is the default stage with no handover in progress.
	EscalationNone EscalationStage = "none"
	// EscalationRequested means the assistant offered an operator and is
	// waiting for the visitor to confirm.
	EscalationRequested EscalationStage = "requested"
	// EscalationContactRequested means no operator was available and the
	// visitor was asked for an email address or phone number.
	EscalationContactRequested EscalationStage = "contact_requested"
	// EscalationTicketCreated means a support ticket was filed for the visitor.
	EscalationTicketCreated EscalationStage = "ticket_created"
)

// ContactMethod identifies how the visitor wants to be reached.
type ContactMethod string

const (
	ContactEmail ContactMethod = "email"
	ContactPhone ContactMethod = "phone"
)

// Contact is a visitor-supplied contact detail captured during handover.
type Contact struct {
	Method ContactMethod `json:"method"`
	Value  string        `json:"value"`
}

// OperatorRef identifies the operator who owns an active chat.
type OperatorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Role values for conversation history entries.
const (
	RoleUser     = "user"
	RoleBot      = "bot"
	RoleOperator = "operator"
)

// Message is a single entry in the conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the full conversation state for one widget visitor.
type Session struct {
	ID               string          `json:"id"`
	Mode             Mode            `json:"mode"`
	Escalation       EscalationStage `json:"escalation"`
	OriginalQuestion string          `json:"original_question,omitempty"`
	Contact          *Contact        `json:"contact,omitempty"`
	Operator         *OperatorRef    `json:"operator,omitempty"`
	WhatsAppNumber   string          `json:"whatsapp_number,omitempty"`
	History          []Message       `json:"history"`
	CreatedAt        time.Time       `json:"created_at"`
	LastActivityAt   time.Time       `json:"last_activity_at"`
}

// Clone returns a deep copy safe to hand outside the store.
func (s *Session) Clone() *Session {
	out := *s
	if s.Contact != nil {
		c := *s.Contact
		out.Contact = &c
	}
	if s.Operator != nil {
		o := *s.Operator
		out.Operator = &o
	}
	out.History = make([]Message, len(s.History))
	copy(out.History, s.History)
	return &out
}

// Patch is a partial update applied to a session. Nil fields are left
// untouched; the Clear flags reset their pointer field to nil.
type Patch struct {
	Mode             *Mode
	Escalation       *EscalationStage
	OriginalQuestion *string
	Contact          *Contact
	ClearContact     bool
	Operator         *OperatorRef
	ClearOperator    bool
	WhatsAppNumber   *string
}

func (p Patch) apply(s *Session) {
	if p.Mode != nil {
		s.Mode = *p.Mode
	}
	if p.Escalation != nil {
		s.Escalation = *p.Escalation
	}
	if p.OriginalQuestion != nil {
		s.OriginalQuestion = *p.OriginalQuestion
	}
	if p.Contact != nil {
		c := *p.Contact
		s.Contact = &c
	}
	if p.ClearContact {
		s.Contact = nil
	}
	if p.Operator != nil {
		o := *p.Operator
		s.Operator = &o
	}
	if p.ClearOperator {
		s.Operator = nil
	}
	if p.WhatsAppNumber != nil {
		s.WhatsAppNumber = *p.WhatsAppNumber
	}
}

// ModePtr is a convenience helper for building patches.
func ModePtr(m Mode) *Mode { return &m }

// StagePtr is a convenience helper for building patches.
func StagePtr(e EscalationStage) *EscalationStage { return &e }

// StringPtr is a convenience helper for building patches.
func StringPtr(s string) *string { return &s }

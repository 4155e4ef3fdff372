// Package orchestrator drives a chat turn end to end: input validation,
// rate limiting, booking resolution, model completion and the human
// handover state machine all converge here.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lucinedinatale/chatbot-backend/internal/booking"
	"github.com/lucinedinatale/chatbot-backend/internal/completion"
	"github.com/lucinedinatale/chatbot-backend/internal/logsink"
	"github.com/lucinedinatale/chatbot-backend/internal/operators"
	"github.com/lucinedinatale/chatbot-backend/internal/ratelimit"
	"github.com/lucinedinatale/chatbot-backend/internal/session"
	"github.com/lucinedinatale/chatbot-backend/internal/ticket"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
	"github.com/lucinedinatale/chatbot-backend/pkg/metrics"
)

// Action is a tappable suggestion rendered under the reply.
type Action struct {
	Type  string `json:"type"` // "link" | "operator" | "checkout"
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// maxActions caps how many suggestions a single reply may carry.
const maxActions = 3

// Request is one inbound widget message.
type Request struct {
	SessionID string
	Message   string
	IP        string
}

// Response is what the widget renders for a turn.
type Response struct {
	SessionID string       `json:"session_id"`
	Reply     string       `json:"reply"`
	Mode      session.Mode `json:"mode"`
	Actions   []Action     `json:"actions,omitempty"`
	TicketID  string       `json:"ticket_id,omitempty"`
}

// Completer produces a classified model answer for a conversation.
type Completer interface {
	Complete(ctx context.Context, history []session.Message, userMessage string) (completion.Classification, error)
}

// TicketCreator files support tickets.
type TicketCreator interface {
	Create(ctx context.Context, t ticket.Ticket) ticket.Result
}

// BookingResolver turns purchase intent into a cart operation.
type BookingResolver interface {
	Resolve(ctx context.Context, sessionID, message string) booking.Resolution
}

// Sink records conversation exchanges.
type Sink interface {
	Append(e logsink.Entry)
}

// Notifier confirms WhatsApp opt-ins. May be nil when notifications are off.
type Notifier interface {
	NotifyWelcome(phone string)
}

// Config carries the orchestrator's tunables.
type Config struct {
	MaxMessageLength int
	CalendarURL      string
	SupportEmail     string
}

// Orchestrator coordinates one chat turn across all collaborators.
type Orchestrator struct {
	sessions  *session.Store
	limiter   *ratelimit.Limiter
	operators *operators.Registry
	completer Completer
	resolver  BookingResolver
	tickets   TicketCreator
	sink      Sink
	notifier  Notifier
	cfg       Config
	log       logger.Logger

	messagesTotal    prometheus.Counter
	escalationsTotal prometheus.Counter
	ticketsTotal     prometheus.Counter
	bookingsTotal    prometheus.Counter
}

// New wires an orchestrator. The metrics instance may be nil in tests.
func New(
	sessions *session.Store,
	limiter *ratelimit.Limiter,
	registry *operators.Registry,
	completer Completer,
	resolver BookingResolver,
	tickets TicketCreator,
	sink Sink,
	notifier Notifier,
	m *metrics.Metrics,
	cfg Config,
	log logger.Logger,
) *Orchestrator {
	o := &Orchestrator{
		sessions:  sessions,
		limiter:   limiter,
		operators: registry,
		completer: completer,
		resolver:  resolver,
		tickets:   tickets,
		sink:      sink,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
	}
	if m != nil {
		o.messagesTotal = m.NewCounter("messages_total", "Total visitor messages handled")
		o.escalationsTotal = m.NewCounter("escalations_total", "Total conversations escalated to an operator")
		o.ticketsTotal = m.NewCounter("tickets_total", "Total support tickets filed")
		o.bookingsTotal = m.NewCounter("bookings_total", "Total carts filled from chat")
	}
	return o
}

// HandleMessage processes one visitor message and produces the reply.
func (o *Orchestrator) HandleMessage(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if len(message) > o.cfg.MaxMessageLength {
		return nil, &MessageTooLongError{Max: o.cfg.MaxMessageLength}
	}

	sessionID := req.SessionID
	if !session.ValidID(sessionID) {
		sessionID = session.NewID()
	}

	if res := o.limiter.Check(sessionID); !res.Allowed {
		return nil, &RateLimitedError{ResetIn: res.ResetIn}
	}

	inc(o.messagesTotal)
	s := o.sessions.Get(sessionID)
	o.sessions.AppendMessage(sessionID, session.RoleUser, message)

	var resp *Response
	var intent string

	switch s.Mode {
	case session.ModeOperatorActive:
		resp = o.operatorActiveTurn(s)
		intent = "operator_chat"
	case session.ModeOperatorPending:
		resp = o.operatorPendingTurn(s)
		intent = "operator_wait"
	default:
		resp, intent = o.assistantTurn(ctx, s, message)
	}
	resp.SessionID = sessionID

	if resp.Reply != "" {
		o.sessions.AppendMessage(sessionID, session.RoleBot, resp.Reply)
	}

	o.sink.Append(logsink.Entry{
		SessionID:      sessionID,
		UserMessage:    message,
		BotReply:       resp.Reply,
		IP:             req.IP,
		Actions:        actionTypes(resp.Actions),
		ResponseTimeMs: time.Since(start).Milliseconds(),
		Intent:         intent,
	})
	return resp, nil
}

// assistantTurn runs the AI side of the state machine.
func (o *Orchestrator) assistantTurn(ctx context.Context, s *session.Session, message string) (*Response, string) {
	switch s.Escalation {
	case session.EscalationRequested:
		if isAffirmation(message) {
			return o.escalate(s, s.OriginalQuestion), "escalation_confirmed"
		}
		// offer declined, back to normal conversation
		s = o.sessions.Set(s.ID, session.Patch{Escalation: session.StagePtr(session.EscalationNone)})

	case session.EscalationContactRequested:
		return o.contactTurn(ctx, s, message)
	}

	if s.WhatsAppNumber != "" && isOptOut(message) {
		s = o.sessions.Set(s.ID, session.Patch{WhatsAppNumber: session.StringPtr("")})
		return &Response{
			Reply: "Va bene, non riceverai più notifiche su WhatsApp per questa conversazione.",
			Mode:  s.Mode,
		}, "whatsapp_optout"
	}

	if booking.Detect(message) {
		return o.bookingTurn(ctx, s, message)
	}

	if wantsOperator(message) {
		return o.offerOperator(s, message), "operator_offer"
	}

	result, err := o.completer.Complete(ctx, s.History, message)
	if err != nil {
		o.log.Error("Completion failed, using fallback reply",
			logger.SessionIDField(s.ID),
			logger.ErrorField(err),
		)
		return &Response{
			Reply: "Mi dispiace, in questo momento non riesco a rispondere. Riprova tra poco oppure chiedi di parlare con un operatore.",
			Mode:  s.Mode,
			Actions: []Action{
				{Type: "operator", Label: "Parla con un operatore"},
			},
		}, "fallback"
	}

	if result.Kind == completion.KindOperatorRequest {
		return o.offerOperator(s, message), "operator_offer"
	}

	resp := &Response{Reply: result.Reply, Mode: s.Mode}
	if result.LowConfidence {
		o.sessions.Set(s.ID, session.Patch{
			Escalation:       session.StagePtr(session.EscalationRequested),
			OriginalQuestion: session.StringPtr(message),
		})
		resp.Reply += "\n\nVuoi che ti metta in contatto con un operatore?"
		resp.Actions = append(resp.Actions, Action{Type: "operator", Label: "Sì, chiama un operatore"})
		return resp, "low_confidence"
	}

	resp.Actions = suggestActions(message)
	return resp, "info"
}

// offerOperator asks the visitor to confirm the handover before anything
// happens. The confirmation on the next turn is what escalates.
func (o *Orchestrator) offerOperator(s *session.Session, question string) *Response {
	o.sessions.Set(s.ID, session.Patch{
		Escalation:       session.StagePtr(session.EscalationRequested),
		OriginalQuestion: session.StringPtr(question),
	})
	return &Response{
		Reply: "Vuoi che ti metta in contatto con un operatore? Rispondi \"sì\" per confermare.",
		Mode:  s.Mode,
		Actions: []Action{
			{Type: "operator", Label: "Sì, chiama un operatore"},
		},
	}
}

// escalate hands the visitor over: to the pending queue when someone is
// available, otherwise to contact collection for a ticket.
func (o *Orchestrator) escalate(s *session.Session, question string) *Response {
	inc(o.escalationsTotal)
	if question == "" {
		question = s.OriginalQuestion
	}

	if o.operators.AnyAvailable() {
		updated := o.sessions.Set(s.ID, session.Patch{
			Mode:             session.ModePtr(session.ModeOperatorPending),
			Escalation:       session.StagePtr(session.EscalationRequested),
			OriginalQuestion: session.StringPtr(question),
		})
		return &Response{
			Reply: "Ti metto in contatto con un operatore: resta in chat, ti risponderà a breve.",
			Mode:  updated.Mode,
		}
	}

	updated := o.sessions.Set(s.ID, session.Patch{
		Escalation:       session.StagePtr(session.EscalationContactRequested),
		OriginalQuestion: session.StringPtr(question),
	})
	return &Response{
		Reply: "Al momento nessun operatore è disponibile. Lasciami un'email o un numero di telefono e ti ricontatteremo al più presto.",
		Mode:  updated.Mode,
	}
}

// contactTurn collects a contact detail and files the ticket.
func (o *Orchestrator) contactTurn(ctx context.Context, s *session.Session, message string) (*Response, string) {
	contact, ok := extractContact(message)
	if !ok {
		return &Response{
			Reply: "Non ho riconosciuto un contatto valido. Puoi scrivermi un'email (es. nome@esempio.it) o un numero di telefono?",
			Mode:  s.Mode,
		}, "contact_invalid"
	}

	patch := session.Patch{Contact: contact}
	if contact.Method == session.ContactPhone {
		patch.WhatsAppNumber = session.StringPtr(contact.Value)
	}
	s = o.sessions.Set(s.ID, patch)

	if contact.Method == session.ContactPhone && o.notifier != nil {
		o.notifier.NotifyWelcome(contact.Value)
	}

	result := o.tickets.Create(ctx, ticket.Ticket{
		SessionID:     s.ID,
		ContactMethod: string(contact.Method),
		ContactValue:  contact.Value,
		Question:      s.OriginalQuestion,
		Transcript:    s.History,
	})
	inc(o.ticketsTotal)

	if !result.Success {
		// stay in contact collection so the visitor can retry
		return &Response{
			Reply: fmt.Sprintf(
				"Non sono riuscito a registrare la richiesta (riferimento %s). Riprova più tardi oppure scrivici a %s.",
				result.ID, o.cfg.SupportEmail,
			),
			Mode:     s.Mode,
			TicketID: result.ID,
		}, "ticket_failed"
	}
	o.sessions.Set(s.ID, session.Patch{Escalation: session.StagePtr(session.EscalationTicketCreated)})

	return &Response{
		Reply: fmt.Sprintf(
			"Perfetto! Ho registrato la tua richiesta con riferimento %s. Ti ricontatteremo a %s.",
			result.ID, contact.Value,
		),
		Mode:     s.Mode,
		TicketID: result.ID,
	}, "ticket_created"
}

// bookingTurn resolves purchase intent against the cart.
func (o *Orchestrator) bookingTurn(ctx context.Context, s *session.Session, message string) (*Response, string) {
	res := o.resolver.Resolve(ctx, s.ID, message)

	resp := &Response{Reply: res.Reply, Mode: s.Mode}
	switch res.Outcome {
	case booking.OutcomeAdded:
		inc(o.bookingsTotal)
		resp.Actions = append(resp.Actions, Action{Type: "checkout", Label: "Vai al pagamento", URL: res.CheckoutURL})
	case booking.OutcomeCalendar, booking.OutcomeBlackout:
		resp.Actions = append(resp.Actions, Action{Type: "link", Label: "Apri il calendario", URL: o.cfg.CalendarURL})
	}
	if len(resp.Actions) > maxActions {
		resp.Actions = resp.Actions[:maxActions]
	}
	return resp, "booking_" + string(res.Outcome)
}

func (o *Orchestrator) operatorPendingTurn(s *session.Session) *Response {
	return &Response{
		Reply: "Un operatore ti risponderà a breve, resta in chat.",
		Mode:  s.Mode,
	}
}

func (o *Orchestrator) operatorActiveTurn(s *session.Session) *Response {
	// the operator reads and answers through the console; no AI reply
	return &Response{Reply: "", Mode: s.Mode}
}

// ReleaseChat archives and closes a chat an operator has finished with.
// The full transcript goes to the log sink first, a ticket records the
// conversation, and only then is the session removed.
func (o *Orchestrator) ReleaseChat(ctx context.Context, sessionID, operatorID, reason string) (ticket.Result, error) {
	s, err := o.operators.EndChat(sessionID, operatorID)
	if err != nil {
		return ticket.Result{}, err
	}

	transcript := make([]logsink.TranscriptLine, len(s.History))
	for i, m := range s.History {
		transcript[i] = logsink.TranscriptLine{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	o.sink.Append(logsink.Entry{
		SessionID:   sessionID,
		UserMessage: s.OriginalQuestion,
		BotReply:    fmt.Sprintf("chat chiusa dall'operatore %s", operatorID),
		Intent:      "operator_release",
		Transcript:  transcript,
	})

	contactMethod, contactValue := "", ""
	if s.Contact != nil {
		contactMethod, contactValue = string(s.Contact.Method), s.Contact.Value
	}
	result := o.tickets.Create(ctx, ticket.Ticket{
		SessionID:     sessionID,
		ContactMethod: contactMethod,
		ContactValue:  contactValue,
		Question:      s.OriginalQuestion,
		Reason:        reason,
		Transcript:    s.History,
	})
	inc(o.ticketsTotal)

	o.sessions.Clear(sessionID)
	return result, nil
}

func actionTypes(actions []Action) []string {
	if len(actions) == 0 {
		return nil
	}
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Type
	}
	return out
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

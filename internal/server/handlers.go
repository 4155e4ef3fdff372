package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lucinedinatale/chatbot-backend/internal/operators"
	"github.com/lucinedinatale/chatbot-backend/internal/orchestrator"
	"github.com/lucinedinatale/chatbot-backend/internal/session"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// operatorAuth guards the operator console routes with a shared token.
// Left open when no token is configured, which is the local dev setup.
func (s *Server) operatorAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.cfg.Security.OperatorToken
		if token != "" && r.Header.Get("X-Operator-Token") != token {
			writeError(w, http.StatusUnauthorized, "invalid operator token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// handleChat processes one widget message.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.Security.MaxRequestSize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get("X-Session-ID")
	}

	resp, err := s.orch.HandleMessage(r.Context(), orchestrator.Request{
		SessionID: req.SessionID,
		Message:   req.Message,
		IP:        r.RemoteAddr,
	})
	if err != nil {
		s.writeChatError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLong *orchestrator.MessageTooLongError
	var limited *orchestrator.RateLimitedError

	switch {
	case errors.Is(err, orchestrator.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message must not be empty")
	case errors.As(err, &tooLong):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("message must not exceed %d characters", tooLong.Max))
	case errors.As(err, &limited):
		w.Header().Set("Retry-After", strconv.Itoa(int(limited.ResetIn.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, "too many messages, slow down")
	default:
		s.log.Error("Chat turn failed",
			logger.StringField("correlation_id", logger.GetCorrelationIDFromContext(r.Context())),
			logger.ErrorField(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type messagesResponse struct {
	SessionID string            `json:"session_id"`
	Mode      session.Mode      `json:"mode"`
	Messages  []session.Message `json:"messages"`
}

// handleChatMessages lets the widget poll for operator replies.
// The since parameter skips messages the widget already rendered.
func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	s2, ok := s.sessions.Peek(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	messages := s2.History
	if since := r.URL.Query().Get("since"); since != "" {
		n, err := strconv.Atoi(since)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		if n > len(messages) {
			n = len(messages)
		}
		messages = messages[n:]
	}

	writeJSON(w, http.StatusOK, messagesResponse{
		SessionID: sessionID,
		Mode:      s2.Mode,
		Messages:  messages,
	})
}

// handleOperatorList returns the operators currently available.
func (s *Server) handleOperatorList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"operators": s.registry.Available(),
	})
}

type operatorStatusRequest struct {
	OperatorID string `json:"operator_id"`
	Name       string `json:"name"`
	Online     bool   `json:"online"`
}

// handleOperatorStatus lets operators go online and offline.
func (s *Server) handleOperatorStatus(w http.ResponseWriter, r *http.Request) {
	var req operatorStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OperatorID == "" {
		writeError(w, http.StatusBadRequest, "operator_id is required")
		return
	}

	op := s.registry.SetStatus(req.OperatorID, req.Name, req.Online)
	writeJSON(w, http.StatusOK, op)
}

// handleOperatorMe returns the caller's own registration.
func (s *Server) handleOperatorMe(w http.ResponseWriter, r *http.Request) {
	operatorID := r.Header.Get("X-Operator-ID")
	op, ok := s.registry.Get(operatorID)
	if !ok {
		writeError(w, http.StatusNotFound, "operator not registered")
		return
	}
	s.registry.Heartbeat(operatorID)
	writeJSON(w, http.StatusOK, op)
}

type pendingChat struct {
	SessionID        string `json:"session_id"`
	OriginalQuestion string `json:"original_question,omitempty"`
	LastActivityAt   string `json:"last_activity_at"`
	Messages         int    `json:"messages"`
}

// handleOperatorPending lists chats waiting for a human, oldest first.
// Polling this endpoint doubles as the operator's liveness heartbeat.
func (s *Server) handleOperatorPending(w http.ResponseWriter, r *http.Request) {
	s.registry.Heartbeat(r.Header.Get("X-Operator-ID"))

	pending := s.sessions.Pending()
	out := make([]pendingChat, 0, len(pending))
	for _, p := range pending {
		out = append(out, pendingChat{
			SessionID:        p.ID,
			OriginalQuestion: p.OriginalQuestion,
			LastActivityAt:   p.LastActivityAt.Format("2006-01-02T15:04:05Z07:00"),
			Messages:         len(p.History),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": out})
}

type takeRequest struct {
	SessionID  string `json:"session_id"`
	OperatorID string `json:"operator_id"`
}

// handleOperatorTake assigns a pending chat to the calling operator.
func (s *Server) handleOperatorTake(w http.ResponseWriter, r *http.Request) {
	var req takeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" || req.OperatorID == "" {
		writeError(w, http.StatusBadRequest, "session_id and operator_id are required")
		return
	}

	chat, err := s.registry.Take(req.SessionID, req.OperatorID)
	if err != nil {
		s.writeOperatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

type operatorMessageRequest struct {
	SessionID  string `json:"session_id"`
	OperatorID string `json:"operator_id"`
	Message    string `json:"message"`
}

// handleOperatorMessage appends an operator reply and notifies the visitor
// on WhatsApp when they opted in.
func (s *Server) handleOperatorMessage(w http.ResponseWriter, r *http.Request) {
	var req operatorMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" || req.OperatorID == "" {
		writeError(w, http.StatusBadRequest, "session_id and operator_id are required")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	chat, err := s.registry.SendMessage(req.SessionID, req.OperatorID, req.Message)
	if err != nil {
		s.writeOperatorError(w, err)
		return
	}

	if s.notifier.Enabled() && chat.WhatsAppNumber != "" && chat.Operator != nil {
		s.notifier.NotifyOperatorReply(chat.WhatsAppNumber, chat.Operator.Name, req.Message)
	}

	writeJSON(w, http.StatusOK, chat)
}

// handleOperatorChats lists the chats the calling operator currently owns.
func (s *Server) handleOperatorChats(w http.ResponseWriter, r *http.Request) {
	operatorID := r.Header.Get("X-Operator-ID")
	if operatorID == "" {
		writeError(w, http.StatusBadRequest, "X-Operator-ID header is required")
		return
	}
	s.registry.Heartbeat(operatorID)
	writeJSON(w, http.StatusOK, map[string]any{"chats": s.sessions.ActiveFor(operatorID)})
}

// handleOperatorChatMessages returns the transcript of one chat.
func (s *Server) handleOperatorChatMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	s.registry.Heartbeat(r.Header.Get("X-Operator-ID"))

	chat, ok := s.sessions.Peek(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{
		SessionID: sessionID,
		Mode:      chat.Mode,
		Messages:  chat.History,
	})
}

type releaseRequest struct {
	SessionID  string `json:"session_id"`
	OperatorID string `json:"operator_id"`
	Reason     string `json:"reason,omitempty"`
}

type releaseResponse struct {
	SessionID string `json:"session_id"`
	TicketID  string `json:"ticket_id"`
	Archived  bool   `json:"archived"`
}

// handleOperatorRelease closes a chat: the transcript is archived, a ticket
// records the conversation, then the session is removed.
func (s *Server) handleOperatorRelease(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" || req.OperatorID == "" {
		writeError(w, http.StatusBadRequest, "session_id and operator_id are required")
		return
	}

	result, err := s.orch.ReleaseChat(r.Context(), req.SessionID, req.OperatorID, req.Reason)
	if err != nil {
		s.writeOperatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, releaseResponse{
		SessionID: req.SessionID,
		TicketID:  result.ID,
		Archived:  result.Success,
	})
}

func (s *Server) writeOperatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, operators.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, operators.ErrAlreadyTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, operators.ErrNotPending):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, operators.ErrOperatorNotAvailable):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, operators.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		s.log.Error("Operator request failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

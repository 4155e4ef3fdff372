// Package logsink ships conversation transcripts to an external collector
// without ever blocking the chat path.
package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/lucinedinatale/chatbot-backend/internal/config"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
)

// TranscriptLine is one message of a full conversation dump.
type TranscriptLine struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Entry is one logged chat exchange. Transcript is only set on
// conversation-closing entries and carries the whole history.
type Entry struct {
	SessionID      string           `json:"sessionId"`
	UserMessage    string           `json:"userMessage"`
	BotReply       string           `json:"botReply"`
	IP             string           `json:"ip,omitempty"`
	Actions        []string         `json:"actions,omitempty"`
	ResponseTimeMs int64            `json:"responseTimeMs"`
	Intent         string           `json:"intent,omitempty"`
	Transcript     []TranscriptLine `json:"transcript,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// Sink buffers entries on a channel and posts them from a single worker.
// When the buffer is full the entry is dropped and a warning logged; chat
// latency is never traded for log completeness.
type Sink struct {
	url     string
	entries chan Entry
	client  *http.Client
	log     logger.Logger
	wg      sync.WaitGroup
	once    sync.Once
}

// New creates a sink and starts its worker. A disabled config returns a
// sink that silently discards entries.
func New(cfg config.LogSinkConfig, log logger.Logger) *Sink {
	s := &Sink{
		url:     cfg.URL,
		entries: make(chan Entry, cfg.BufferSize),
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
	if !cfg.Enabled {
		s.url = ""
	}

	s.wg.Add(1)
	go s.worker()
	return s
}

// Append queues an entry for delivery. Never blocks.
func (s *Sink) Append(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case s.entries <- e:
	default:
		s.log.Warn("Conversation log buffer full, dropping entry",
			logger.SessionIDField(e.SessionID),
		)
	}
}

// Close stops accepting entries and waits for the worker to drain the buffer.
func (s *Sink) Close() {
	s.once.Do(func() {
		close(s.entries)
	})
	s.wg.Wait()
}

func (s *Sink) worker() {
	defer s.wg.Done()
	for e := range s.entries {
		s.post(e)
	}
}

func (s *Sink) post(e Entry) {
	if s.url == "" {
		return
	}

	body, err := json.Marshal(e)
	if err != nil {
		s.log.Error("Failed to encode conversation log entry", logger.ErrorField(err))
		return
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		s.log.Error("Failed to build conversation log request", logger.ErrorField(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("Conversation log delivery failed", logger.ErrorField(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.log.Warn("Conversation log collector rejected entry",
			logger.IntField("status", resp.StatusCode),
		)
	}
}

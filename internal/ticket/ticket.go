// Package ticket files support tickets with the external ticketing platform.
// The client never fails the caller: timeouts degrade to a locally generated
// ticket reference so the visitor flow can continue.
package ticket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lucinedinatale/chatbot-backend/internal/config"
	"github.com/lucinedinatale/chatbot-backend/internal/session"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
)

// Ticket is the payload filed with the ticketing platform.
type Ticket struct {
	SessionID     string            `json:"session_id"`
	ContactMethod string            `json:"contact_method"`
	ContactValue  string            `json:"contact_value"`
	Question      string            `json:"question"`
	Reason        string            `json:"reason,omitempty"`
	Transcript    []session.Message `json:"transcript,omitempty"`
}

// Result reports the outcome of a ticket creation attempt. Success with
// TimeoutFallback set means the platform did not answer in time and the
// ticket ID is a local placeholder the staff can reconcile later.
type Result struct {
	ID              string `json:"id"`
	Success         bool   `json:"success"`
	TimeoutFallback bool   `json:"timeout_fallback,omitempty"`
	StatusCode      int    `json:"status_code,omitempty"`
}

// Client files tickets over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	log     logger.Logger
	now     func() time.Time
}

// NewClient creates a ticket client from configuration.
func NewClient(cfg config.TicketsConfig, log logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
		now:     time.Now,
	}
}

type createResponse struct {
	ID string `json:"id"`
}

// Create files a ticket and always returns a usable Result. A slow platform
// yields a LOCAL- reference marked as a timeout fallback; any other failure
// yields an ERROR- reference with Success false.
func (c *Client) Create(ctx context.Context, t Ticket) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(t)
	if err != nil {
		c.log.Error("Failed to encode ticket", logger.ErrorField(err), logger.SessionIDField(t.SessionID))
		return c.errorResult(0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		c.log.Error("Failed to build ticket request", logger.ErrorField(err))
		return c.errorResult(0)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			ref := fmt.Sprintf("LOCAL-%d", c.now().UnixMilli())
			c.log.Warn("Ticket platform timed out, using local reference",
				logger.StringField("ticket_id", ref),
				logger.SessionIDField(t.SessionID),
			)
			return Result{ID: ref, Success: true, TimeoutFallback: true}
		}
		c.log.Error("Ticket request failed", logger.ErrorField(err), logger.SessionIDField(t.SessionID))
		return c.errorResult(0)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("Ticket platform rejected request",
			logger.IntField("status", resp.StatusCode),
			logger.SessionIDField(t.SessionID),
		)
		return c.errorResult(resp.StatusCode)
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.ID == "" {
		c.log.Error("Ticket platform returned an unreadable response",
			logger.ErrorField(err),
			logger.SessionIDField(t.SessionID),
		)
		return c.errorResult(resp.StatusCode)
	}

	c.log.Info("Ticket created",
		logger.StringField("ticket_id", out.ID),
		logger.SessionIDField(t.SessionID),
	)
	return Result{ID: out.ID, Success: true}
}

func (c *Client) errorResult(status int) Result {
	return Result{
		ID:         fmt.Sprintf("ERROR-%d", c.now().UnixMilli()),
		Success:    false,
		StatusCode: status,
	}
}

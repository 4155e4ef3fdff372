package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lucinedinatale/chatbot-backend/internal/config"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
	"github.com/lucinedinatale/chatbot-backend/pkg/prefixed_uuid"
)

// CartRequest asks the shop to add tickets to a visitor cart.
type CartRequest struct {
	RequestID string `json:"request_id"`
	EventDate string `json:"event_date"` // "2025-12-20"
	EventName string `json:"event_name"` // "20 Dicembre 2025 - 18:00"
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity"`
	SessionID string `json:"session_id"`
}

// CartResult is the shop's answer with the checkout link to show the visitor.
type CartResult struct {
	Success     bool   `json:"success"`
	CheckoutURL string `json:"checkout_url"`
	Message     string `json:"message,omitempty"`
}

// CartClient adds tickets to the shop cart over HTTP.
type CartClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	log     logger.Logger
}

// NewCartClient creates a cart client from configuration.
func NewCartClient(cfg config.CartConfig, log logger.Logger) *CartClient {
	return &CartClient{
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// Add puts tickets for the given date into the cart. The error is for the
// caller to translate; raw shop errors never reach the visitor.
func (c *CartClient) Add(ctx context.Context, sessionID string, date Date, variant string, quantity int) (*CartResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqID := prefixed_uuid.New("evt").String()
	payload := CartRequest{
		RequestID: reqID,
		EventDate: fmt.Sprintf("%04d-%02d-%02d", date.Year, date.Month, date.Day),
		EventName: date.Label(),
		Variant:   variant,
		Quantity:  quantity,
		SessionID: sessionID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding cart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building cart request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("Cart request failed",
			logger.StringField("request_id", reqID),
			logger.SessionIDField(sessionID),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("cart request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("Cart rejected request",
			logger.StringField("request_id", reqID),
			logger.IntField("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("cart returned status %d", resp.StatusCode)
	}

	var out CartResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding cart response: %w", err)
	}
	if !out.Success || out.CheckoutURL == "" {
		return nil, fmt.Errorf("cart could not add the tickets")
	}

	c.log.Info("Tickets added to cart",
		logger.StringField("request_id", reqID),
		logger.SessionIDField(sessionID),
		logger.StringField("event", payload.EventName),
		logger.IntField("quantity", quantity),
	)
	return &out, nil
}

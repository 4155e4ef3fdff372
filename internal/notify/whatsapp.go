// Package notify sends WhatsApp notifications to visitors who opted in to
// receive operator replies off-widget.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/lucinedinatale/chatbot-backend/internal/config"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
)

var phoneDigitsRe = regexp.MustCompile(`\D`)

// NormalizePhone converts an Italian phone number to E.164 form. Numbers
// without a prefix are assumed to be Italian mobiles.
func NormalizePhone(raw string) string {
	digits := phoneDigitsRe.ReplaceAllString(raw, "")
	if strings.HasPrefix(digits, "39") && len(digits) == 12 {
		return "+" + digits
	}
	if len(digits) == 10 {
		return "+39" + digits
	}
	return "+" + digits
}

// WhatsAppNotifier sends template messages through the WhatsApp Business API.
// Delivery is fire and forget; a lost notification never breaks the chat.
type WhatsAppNotifier struct {
	enabled  bool
	baseURL  string
	token    string
	sender   string
	template string
	client   *http.Client
	log      logger.Logger
}

// NewWhatsAppNotifier creates a notifier from configuration.
func NewWhatsAppNotifier(cfg config.WhatsAppConfig, log logger.Logger) *WhatsAppNotifier {
	return &WhatsAppNotifier{
		enabled:  cfg.Enabled,
		baseURL:  cfg.BaseURL,
		token:    cfg.Token,
		sender:   cfg.Sender,
		template: cfg.TemplateName,
		client:   &http.Client{Timeout: cfg.Timeout},
		log:      log,
	}
}

// Enabled reports whether notifications are configured.
func (n *WhatsAppNotifier) Enabled() bool {
	return n.enabled
}

type templateMessage struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Template string   `json:"template"`
	Params   []string `json:"params"`
}

// welcomeTemplate confirms the opt-in right after a visitor leaves their
// number.
const welcomeTemplate = "whatsapp_welcome"

// NotifyOperatorReply sends the visitor a template message telling them an
// operator answered. Runs in the background and only logs failures.
func (n *WhatsAppNotifier) NotifyOperatorReply(phone, operatorName, preview string) {
	if !n.enabled || phone == "" {
		return
	}
	go func() {
		if err := n.send(context.Background(), phone, n.template, []string{operatorName, preview}); err != nil {
			n.log.Warn("WhatsApp notification failed",
				logger.StringField("operator_name", operatorName),
				logger.ErrorField(err),
			)
		}
	}()
}

// NotifyWelcome confirms to a visitor that their number was registered.
func (n *WhatsAppNotifier) NotifyWelcome(phone string) {
	if !n.enabled || phone == "" {
		return
	}
	go func() {
		if err := n.send(context.Background(), phone, welcomeTemplate, nil); err != nil {
			n.log.Warn("WhatsApp welcome failed", logger.ErrorField(err))
		}
	}()
}

func (n *WhatsAppNotifier) send(ctx context.Context, phone, template string, params []string) error {
	msg := templateMessage{
		From:     n.sender,
		To:       NormalizePhone(phone),
		Template: template,
		Params:   params,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding template message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending template message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	n.log.Info("WhatsApp notification sent", logger.StringField("template", template))
	return nil
}

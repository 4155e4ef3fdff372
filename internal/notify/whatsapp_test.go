package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lucinedinatale/chatbot-backend/internal/config"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"333 123 4567", "+393331234567"},
		{"3331234567", "+393331234567"},
		{"+39 333 123 4567", "+393331234567"},
		{"+393331234567", "+393331234567"},
		{"39 333 1234567", "+393331234567"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.raw))
		})
	}
}

func TestNotifyOperatorReply(t *testing.T) {
	got := make(chan templateMessage, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var msg templateMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		got <- msg
	}))
	defer server.Close()

	n := NewWhatsAppNotifier(config.WhatsAppConfig{
		Enabled:      true,
		BaseURL:      server.URL,
		Token:        "tok",
		Sender:       "+390000000000",
		TemplateName: "operator_reply",
		Timeout:      5 * time.Second,
	}, logger.NewLogger(logger.Config{Level: logger.ErrorLevel}))

	n.NotifyOperatorReply("333 123 4567", "Giulia", "Buonasera!")

	select {
	case msg := <-got:
		assert.Equal(t, "+393331234567", msg.To)
		assert.Equal(t, "operator_reply", msg.Template)
		assert.Equal(t, []string{"Giulia", "Buonasera!"}, msg.Params)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}
}

func TestNotifyWelcome(t *testing.T) {
	got := make(chan templateMessage, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg templateMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		got <- msg
	}))
	defer server.Close()

	n := NewWhatsAppNotifier(config.WhatsAppConfig{
		Enabled: true,
		BaseURL: server.URL,
		Sender:  "+390000000000",
		Timeout: 5 * time.Second,
	}, logger.NewLogger(logger.Config{Level: logger.ErrorLevel}))

	n.NotifyWelcome("3331234567")

	select {
	case msg := <-got:
		assert.Equal(t, "+393331234567", msg.To)
		assert.Equal(t, "whatsapp_welcome", msg.Template)
	case <-time.After(2 * time.Second):
		t.Fatal("welcome was not delivered")
	}
}

func TestDisabledNotifierSendsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("disabled notifier must not call the gateway")
	}))
	defer server.Close()

	n := NewWhatsAppNotifier(config.WhatsAppConfig{
		Enabled: false,
		BaseURL: server.URL,
		Timeout: time.Second,
	}, logger.NewLogger(logger.Config{Level: logger.ErrorLevel}))

	assert.False(t, n.Enabled())
	n.NotifyOperatorReply("3331234567", "Giulia", "ciao")
	time.Sleep(100 * time.Millisecond)
}

package ticket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lucinedinatale/chatbot-backend/internal/config"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logger.Logger {
	return logger.NewLogger(logger.Config{Level: logger.ErrorLevel})
}

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(config.TicketsConfig{
		BaseURL: url,
		APIKey:  "secret",
		Timeout: timeout,
	}, testLogger())
}

func TestCreateSuccess(t *testing.T) {
	var gotAuth string
	var gotBody Ticket
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "TCK-1042"})
	}))
	defer server.Close()

	c := newTestClient(server.URL, 8*time.Second)
	res := c.Create(context.Background(), Ticket{
		SessionID:     "sess-1",
		ContactMethod: "email",
		ContactValue:  "mario@example.com",
		Question:      "Posso portare il cane?",
	})

	assert.True(t, res.Success)
	assert.False(t, res.TimeoutFallback)
	assert.Equal(t, "TCK-1042", res.ID)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "sess-1", gotBody.SessionID)
}

func TestCreateTimeoutFallsBackToLocalReference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	c := newTestClient(server.URL, 50*time.Millisecond)
	res := c.Create(context.Background(), Ticket{SessionID: "sess-1"})

	assert.True(t, res.Success)
	assert.True(t, res.TimeoutFallback)
	assert.True(t, strings.HasPrefix(res.ID, "LOCAL-"))
}

func TestCreateServerErrorIsNotMaskedAsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(server.URL, time.Second)
	res := c.Create(context.Background(), Ticket{SessionID: "sess-1"})

	assert.False(t, res.Success)
	assert.False(t, res.TimeoutFallback)
	assert.True(t, strings.HasPrefix(res.ID, "ERROR-"))
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
}

func TestCreateUnreadableResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := newTestClient(server.URL, time.Second)
	res := c.Create(context.Background(), Ticket{SessionID: "sess-1"})

	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.ID, "ERROR-"))
}

func TestCreateConnectionRefused(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", time.Second)
	res := c.Create(context.Background(), Ticket{SessionID: "sess-1"})

	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.ID, "ERROR-"))
}

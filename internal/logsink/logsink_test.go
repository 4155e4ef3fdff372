package logsink

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
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

func TestAppendDelivers(t *testing.T) {
	var mu sync.Mutex
	var received []Entry
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e Entry
		require.NoError(t, json.NewDecoder(r.Body).Decode(&e))
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}))
	defer server.Close()

	s := New(config.LogSinkConfig{
		Enabled:    true,
		URL:        server.URL,
		BufferSize: 16,
		Timeout:    5 * time.Second,
	}, testLogger())

	s.Append(Entry{
		SessionID:      "sess-1",
		UserMessage:    "a che ora aprite?",
		BotReply:       "Alle 17:30.",
		ResponseTimeMs: 120,
		Intent:         "info",
	})
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "sess-1", received[0].SessionID)
	assert.Equal(t, "a che ora aprite?", received[0].UserMessage)
	assert.False(t, received[0].Timestamp.IsZero())
}

func TestAppendNeverBlocksWhenFull(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()

	s := New(config.LogSinkConfig{
		Enabled:    true,
		URL:        server.URL,
		BufferSize: 1,
		Timeout:    5 * time.Second,
	}, testLogger())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			s.Append(Entry{SessionID: "sess-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Append blocked on a full buffer")
	}

	close(blocked)
	s.Close()
}

func TestDisabledSinkDiscards(t *testing.T) {
	s := New(config.LogSinkConfig{
		Enabled:    false,
		BufferSize: 4,
		Timeout:    time.Second,
	}, testLogger())

	s.Append(Entry{SessionID: "sess-1"})
	s.Close()
}

func TestCloseDrainsBuffer(t *testing.T) {
	var mu sync.Mutex
	count := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		mu.Unlock()
	}))
	defer server.Close()

	s := New(config.LogSinkConfig{
		Enabled:    true,
		URL:        server.URL,
		BufferSize: 32,
		Timeout:    5 * time.Second,
	}, testLogger())

	for i := 0; i < 10; i++ {
		s.Append(Entry{SessionID: "sess-1"})
	}
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 10, count)
}

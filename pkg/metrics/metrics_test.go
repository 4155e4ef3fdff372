package metrics

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Listen(t *testing.T) {
	expectedOut := `# HELP chatbot_http_request_duration_seconds HTTP request duration in seconds
# TYPE chatbot_http_request_duration_seconds histogram
chatbot_http_request_duration_seconds_bucket{le="0.1"} 0
chatbot_http_request_duration_seconds_bucket{le="0.3"} 0
chatbot_http_request_duration_seconds_bucket{le="0.5"} 0
chatbot_http_request_duration_seconds_bucket{le="0.7"} 0
chatbot_http_request_duration_seconds_bucket{le="1"} 0
chatbot_http_request_duration_seconds_bucket{le="3"} 0
chatbot_http_request_duration_seconds_bucket{le="5"} 0
chatbot_http_request_duration_seconds_bucket{le="7"} 0
chatbot_http_request_duration_seconds_bucket{le="10"} 0
chatbot_http_request_duration_seconds_bucket{le="+Inf"} 0
chatbot_http_request_duration_seconds_sum 0
chatbot_http_request_duration_seconds_count 0
# HELP chatbot_total_200_http_responses Total OK HTTP responses returned
# TYPE chatbot_total_200_http_responses counter
chatbot_total_200_http_responses 5
# HELP chatbot_total_429_http_responses Total Too Many Requests HTTP responses returned
# TYPE chatbot_total_429_http_responses counter
chatbot_total_429_http_responses 5
# HELP chatbot_total_http_requests Total HTTP requests
# TYPE chatbot_total_http_requests counter
chatbot_total_http_requests 0
`

	m := NewMetrics(true, logger.NewLogger(logger.Config{Service: "test"}))
	port := getRandomHighPort()
	m.Listen(port)
	for i := 0; i < 5; i++ {
		m.IncrementHTTPResponseCounter(200)
		m.IncrementHTTPResponseCounter(429)
	}

	time.Sleep(500 * time.Millisecond)

	// assert correct path
	req, err := http.NewRequest("GET", fmt.Sprintf("http://localhost:%d/metrics", port), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, expectedOut, string(bodyBytes))

	// assert incorrect path
	req, err = http.NewRequest("GET", fmt.Sprintf("http://localhost:%d", port), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	assert.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	_ = resp.Body.Close()

	m.stopChan <- os.Interrupt
	assert.True(t, errors.Is(<-m.errChan, http.ErrServerClosed))
}

func TestMetrics_CustomMetrics(t *testing.T) {
	before := `# HELP chatbot_escalations_total Total conversations escalated to an operator
# TYPE chatbot_escalations_total counter
chatbot_escalations_total 0
# HELP chatbot_sessions_active Active chat sessions
# TYPE chatbot_sessions_active gauge
chatbot_sessions_active 3
`
	after := `# HELP chatbot_escalations_total Total conversations escalated to an operator
# TYPE chatbot_escalations_total counter
chatbot_escalations_total 1
# HELP chatbot_sessions_active Active chat sessions
# TYPE chatbot_sessions_active gauge
chatbot_sessions_active 3
`
	m := NewMetrics(false, logger.NewLogger(logger.Config{Service: "test"}))
	port := getRandomHighPort()
	m.Listen(port)

	escalations := m.NewCounter("escalations_total", "Total conversations escalated to an operator")
	m.NewGaugeFunc("sessions_active", "Active chat sessions", func() float64 {
		return 3
	})

	time.Sleep(500 * time.Millisecond)

	req, err := http.NewRequest("GET", fmt.Sprintf("http://localhost:%d/metrics", port), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, before, string(bodyBytes))

	escalations.Inc()

	req, err = http.NewRequest("GET", fmt.Sprintf("http://localhost:%d/metrics", port), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	bodyBytes, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, after, string(bodyBytes))

	m.Stop()
}

func getRandomHighPort() int {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return r.Intn(16384) + 49152
}

func TestHTTPMiddleware(t *testing.T) {
	m := NewMetrics(true, logger.NewLogger(logger.Config{Service: "test"}))

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/error" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("error"))
		} else {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("success"))
		}
	})

	handler := m.HTTPMiddleware()(testHandler)

	t.Run("tracks successful requests", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/success", nil)
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "success", recorder.Body.String())
		assert.Contains(t, m.HTTPRequestsCounters, 200)
	})

	t.Run("tracks error requests", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/error", nil)
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		assert.Contains(t, m.HTTPRequestsCounters, 500)
	})
}

func TestResponseWriter(t *testing.T) {
	t.Run("captures custom status code", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: recorder, statusCode: 200}

		rw.WriteHeader(404)
		assert.Equal(t, 404, rw.statusCode)
		assert.Equal(t, 404, recorder.Code)
	})

	t.Run("defaults to 200 if WriteHeader not called", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: recorder, statusCode: 200}

		_, _ = rw.Write([]byte("test"))
		assert.Equal(t, 200, rw.statusCode)
	})
}

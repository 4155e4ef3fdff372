package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckReadinessAllHealthy(t *testing.T) {
	h := New()
	h.AddReadinessCheck(NewCheckFunc("always-ok", func(ctx context.Context) error {
		return nil
	}))

	status, err := h.CheckReadiness(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	require.Len(t, status.Checks, 1)
	assert.Equal(t, "always-ok", status.Checks[0].Name)
	assert.True(t, status.Checks[0].Healthy)
}

func TestCheckReadinessNoChecks(t *testing.T) {
	h := New()

	status, err := h.CheckReadiness(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Empty(t, status.Checks)
}

func TestFailureThreshold(t *testing.T) {
	h := New(WithFailureThreshold(3))
	h.AddReadinessCheck(NewCheckFunc("flaky", func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	// First two failures stay below the threshold
	for i := 0; i < 2; i++ {
		status, err := h.CheckReadiness(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Healthy)
	}

	// Third consecutive failure crosses it
	status, err := h.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
	assert.Equal(t, "connection refused", status.Checks[0].Error)
}

func TestFailureCountResetsOnSuccess(t *testing.T) {
	fail := true
	h := New(WithFailureThreshold(2))
	h.AddReadinessCheck(NewCheckFunc("recovering", func(ctx context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	}))

	_, err := h.CheckReadiness(context.Background())
	require.NoError(t, err)

	fail = false
	_, err = h.CheckReadiness(context.Background())
	require.NoError(t, err)

	// One failure after recovery must not trip the threshold
	fail = true
	status, err := h.CheckReadiness(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

func TestCheckTimeout(t *testing.T) {
	h := New(WithTimeout(10*time.Millisecond), WithFailureThreshold(1))
	h.AddReadinessCheck(NewCheckFunc("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}))

	status, err := h.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
}

func TestReadinessHandlerStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		checkErr   error
		wantCode   int
		wantStatus string
	}{
		{
			name:       "healthy",
			checkErr:   nil,
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		{
			name:       "unhealthy",
			checkErr:   errors.New("upstream down"),
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(WithFailureThreshold(1))
			h.AddReadinessCheck(NewCheckFunc("upstream", func(ctx context.Context) error {
				return tt.checkErr
			}))

			r := httptest.NewRequest("GET", "/readyz", nil)
			w := httptest.NewRecorder()
			h.ReadinessHandler()(w, r)

			assert.Equal(t, tt.wantCode, w.Code)

			var response HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantStatus, response.Status)
			assert.Contains(t, response.Checks, "upstream")
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	h := New()
	h.AddLivenessCheck(NewCheckFunc("process", func(ctx context.Context) error {
		return nil
	}))

	r := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	h.LivenessHandler()(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

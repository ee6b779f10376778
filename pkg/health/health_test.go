package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var resp statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestReadyEndpoint_ManualGate(t *testing.T) {
	h := New()

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decodeStatus(t, w).Status)

	h.SetReady(true)
	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeStatus(t, w).Status)
}

func TestCheckThresholds(t *testing.T) {
	c := &check{name: "db", timeout: time.Second, healthy: true}
	fail := errors.New("connection refused")
	c.fn = func(context.Context) error { return fail }

	// Two failures are tolerated; the third flips the check.
	c.run(context.Background())
	c.run(context.Background())
	ok, _ := c.status()
	assert.True(t, ok)

	c.run(context.Background())
	ok, msg := c.status()
	assert.False(t, ok)
	assert.Equal(t, "connection refused", msg)

	// One success recovers immediately.
	c.fn = func(context.Context) error { return nil }
	c.run(context.Background())
	ok, _ = c.status()
	assert.True(t, ok)
}

func TestLiveEndpoint_ReportsFailingCheck(t *testing.T) {
	h := New()
	h.AddLivenessCheck("stuck", time.Second, func(context.Context) error {
		return errors.New("deadlock")
	})

	// Drive the check past the failure threshold without Start.
	h.mu.Lock()
	c := h.liveness[0]
	h.mu.Unlock()
	for range failureThreshold {
		c.run(context.Background())
	}

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "deadlock", decodeStatus(t, w).Checks["stuck"])
}

func TestIsReady_FailingCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("down")
	})
	assert.True(t, h.IsReady(), "checks assume healthy before first run")

	h.mu.Lock()
	c := h.readiness[0]
	h.mu.Unlock()
	for range failureThreshold {
		c.run(context.Background())
	}
	assert.False(t, h.IsReady())
}

func TestStartStop(t *testing.T) {
	h := New()
	ran := make(chan struct{}, 1)
	h.AddLivenessCheck("ping", time.Second, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	defer h.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("check never ran")
	}
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}

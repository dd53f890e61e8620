package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1063537326/video-warning-0127/internal/domain"
)

func TestCounters(t *testing.T) {
	m := New()
	m.FrameReceived("alert")
	m.FrameReceived("alert")
	m.FrameReceived("pong")
	m.DecodeFailure()
	m.ReconnectAttempt()
	m.SetConnectionState(domain.Connected)
	m.AlertOutcome("alerts", "inserted")
	m.AlertOutcome("toasts", "suppressed")
	m.SetUnread(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("alert")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("pong")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodeFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconnectAttempts))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectionState))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alerts.WithLabelValues("toasts", "suppressed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.unread))
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FrameReceived("alert")
		m.DecodeFailure()
		m.ReconnectAttempt()
		m.SetConnectionState(domain.Connecting)
		m.AlertOutcome("alerts", "merged")
		m.SetUnread(1)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposition(t *testing.T) {
	m := New()
	m.FrameReceived("camera_status")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `alertwatch_frames_received_total{type="camera_status"} 1`)
}

func TestServe(t *testing.T) {
	m := New()
	m.SetUnread(7)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "alertwatch_unread_alerts 7"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeBadAddress(t *testing.T) {
	err := New().Serve(context.Background(), "256.0.0.1:bad")
	assert.Error(t, err)
}

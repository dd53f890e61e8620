package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1063537326/video-warning-0127/internal/domain"
	"github.com/1063537326/video-warning-0127/internal/transport"
)

func watchSettings() settings {
	return settings{
		Endpoint:             transport.Endpoint{Host: "nvr:8000"},
		Token:                "t",
		ReconnectInterval:    time.Second,
		MaxReconnectAttempts: 3,
		HeartbeatInterval:    time.Minute,
		Cameras:              []int{2},
		ToastTTL:             time.Hour,
		StatusFormat:         "compact",
	}
}

// startWatch runs Watch in the background and returns the live connection.
func startWatch(t *testing.T, o WatchOptions) (*transport.FakeConn, *syncBuffer, func()) {
	t.Helper()
	d := transport.NewFakeDialer()
	out := &syncBuffer{}
	o.Dialer = d
	o.Output = out

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, o) }()

	select {
	case <-d.Dialed():
	case <-time.After(2 * time.Second):
		t.Fatal("watch never dialed")
	}
	conn := d.Last()
	require.NotNil(t, conn)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "● connected")
	}, 2*time.Second, 5*time.Millisecond)

	stop := func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("watch did not stop")
		}
	}
	return conn, out, stop
}

func TestWatchPrintsAlertsAndStatus(t *testing.T) {
	conn, out, stop := startWatch(t, WatchOptions{Settings: watchSettings()})

	conn.Push(`{"type":"camera_status","data":{"camera_id":2,"camera_name":"Gate","status":"online"}}`)
	conn.Push(`{"type":"alert","data":{"id":7,"camera_id":2,"camera_name":"Gate","alert_type":"stranger","alert_level":"warning","track_id":"t1","confidence":0.87}}`)
	conn.Push(`{"type":"alert","data":{"id":8,"camera_id":2,"camera_name":"Gate","alert_type":"known","alert_level":"info","track_id":"t1","person_name":"Alice"}}`)
	conn.Push(`{"type":"notification","data":{"title":"Maintenance","message":"restart at 2am"}}`)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Maintenance: restart at 2am")
	}, 2*time.Second, 5*time.Millisecond)
	stop()

	text := out.String()
	assert.Contains(t, text, "camera 2 Gate online")
	assert.Contains(t, text, "Gate (cam 2) stranger 87% #7 [inserted] toast inserted")
	assert.Contains(t, text, "Alice - #8 [merged] toast removed")
	assert.Contains(t, text, "-- ● connected  1 unread  1 toast  cams 1/1")
	assert.Contains(t, text, "-- ● connected  1 unread  0 toasts  cams 1/1")
	assert.Contains(t, conn.Written(), `{"type":"subscribe","data":{"camera_ids":[2]}}`)
}

func TestWatchFilter(t *testing.T) {
	filter, err := domain.FilterOptions{Level: "critical"}.ToFilter()
	require.NoError(t, err)
	conn, out, stop := startWatch(t, WatchOptions{Settings: watchSettings(), Filter: filter})

	conn.Push(`{"type":"alert","data":{"id":1,"camera_id":2,"alert_type":"stranger","alert_level":"info"}}`)
	conn.Push(`{"type":"alert","data":{"id":2,"camera_id":2,"alert_type":"blacklist","alert_level":"critical"}}`)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "#2 [inserted]")
	}, 2*time.Second, 5*time.Millisecond)
	stop()

	assert.NotContains(t, out.String(), "#1 [inserted]")
	// filtered alerts still count
	assert.Contains(t, out.String(), "2 unread")
}

func TestWatchExpiresToasts(t *testing.T) {
	s := watchSettings()
	s.ToastTTL = 100 * time.Millisecond
	conn, out, stop := startWatch(t, WatchOptions{Settings: s, ExpireEvery: 10 * time.Millisecond})

	// an old event time does not shorten how long the toast is shown
	conn.Push(`{"type":"alert","data":{"id":3,"camera_id":2,"alert_type":"stranger","timestamp":"2020-01-01T00:00:00Z"}}`)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "1 unread  1 toast")
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "1 unread  0 toasts")
	}, 2*time.Second, 5*time.Millisecond)
	stop()
	assert.Contains(t, out.String(), "#3 [inserted] toast inserted")
}

func TestWatchAlertTemplate(t *testing.T) {
	s := watchSettings()
	s.AlertFormat = "{{id}}|{{subject}}|{{camera-id}}|{{outcome}}"
	conn, out, stop := startWatch(t, WatchOptions{Settings: s})

	conn.Push(`{"type":"alert","data":{"id":5,"camera_id":2,"alert_type":"blacklist","alert_level":"critical","person_name":"Mallory"}}`)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "5|Mallory|2|inserted")
	}, 2*time.Second, 5*time.Millisecond)
	stop()
}

func TestWatchRejectsBadAlertFormat(t *testing.T) {
	s := watchSettings()
	s.AlertFormat = "{{pane-list}}"
	err := Watch(context.Background(), WatchOptions{Settings: s, Dialer: transport.NewFakeDialer(), Output: &syncBuffer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown variable: pane-list")
}

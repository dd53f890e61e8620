package status

import (
	"strings"
	"testing"

	"github.com/1063537326/video-warning-0127/internal/domain"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		State:    domain.Connected,
		ClientID: "c-42",
		Alerts: []*domain.Notification{
			{ID: 1, AlertLevel: domain.LevelCritical},
			{ID: 2, AlertLevel: domain.LevelWarning},
			{ID: 3, AlertLevel: domain.LevelInfo},
			{ID: 4, AlertLevel: domain.LevelInfo, IsRead: true},
		},
		Toasts: 1,
		Cameras: []domain.CameraStatus{
			{CameraID: 1, Status: domain.CameraOnline},
			{CameraID: 2, Status: domain.CameraOnline},
			{CameraID: 3, Status: domain.CameraOffline},
		},
		Engine: &domain.EngineStatus{Status: domain.EngineRunning, CameraCount: 3, RunningCameraCount: 2},
	}
}

func TestRenderCompact(t *testing.T) {
	got, err := Render(sampleSnapshot(), FormatCompact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "● connected  3 unread  1 toast  cams 2/3"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderDefaultsToCompact(t *testing.T) {
	a, _ := Render(sampleSnapshot(), "")
	b, _ := Render(sampleSnapshot(), FormatCompact)
	if a != b {
		t.Errorf("empty format rendered %q, compact rendered %q", a, b)
	}
}

func TestRenderDetailed(t *testing.T) {
	got, err := Render(sampleSnapshot(), FormatDetailed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "● connected [c-42]  3 unread (critical:1 warning:1 info:1)  1 toast  cams 2/3  engine running 2/3"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderCountOnly(t *testing.T) {
	got, err := Render(sampleSnapshot(), FormatCountOnly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "3" {
		t.Errorf("got %q, want %q", got, "3")
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render(sampleSnapshot(), "fancy")
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("expected unknown format error, got %v", err)
	}
}

func TestRenderEmptySnapshot(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{FormatCompact, "○ disconnected  0 unread  0 toasts"},
		{FormatDetailed, "○ disconnected  0 unread  0 toasts"},
		{FormatCountOnly, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := Render(Snapshot{}, tt.format)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIndicator(t *testing.T) {
	tests := map[domain.ConnectionState]string{
		domain.Connected:    "●",
		domain.Connecting:   "◌",
		domain.Closing:      "◌",
		domain.Disconnected: "○",
	}
	for state, want := range tests {
		if got := Indicator(state); got != want {
			t.Errorf("Indicator(%v) = %q, want %q", state, got, want)
		}
	}
}

// Package status renders one-line summaries of the client state.
package status

import (
	"fmt"
	"strings"

	"github.com/1063537326/video-warning-0127/internal/domain"
)

// Output formats.
const (
	FormatCompact   = "compact"
	FormatDetailed  = "detailed"
	FormatCountOnly = "count-only"
)

// Snapshot is the state a summary is rendered from.
type Snapshot struct {
	State    domain.ConnectionState
	ClientID string
	Alerts   []*domain.Notification
	Toasts   int
	Cameras  []domain.CameraStatus
	Engine   *domain.EngineStatus
}

// Unread returns the number of unread alerts.
func (s Snapshot) Unread() int {
	n := 0
	for _, a := range s.Alerts {
		if !a.IsRead {
			n++
		}
	}
	return n
}

// CamerasOnline returns online and known camera counts.
func (s Snapshot) CamerasOnline() (online, total int) {
	for _, c := range s.Cameras {
		if c.Status == domain.CameraOnline {
			online++
		}
	}
	return online, len(s.Cameras)
}

// Render formats a snapshot. An empty format means compact.
func Render(s Snapshot, format string) (string, error) {
	switch format {
	case "", FormatCompact:
		return formatCompact(s), nil
	case FormatDetailed:
		return formatDetailed(s), nil
	case FormatCountOnly:
		return fmt.Sprintf("%d", s.Unread()), nil
	default:
		return "", fmt.Errorf("unknown format: %s", format)
	}
}

// Indicator returns the bullet shown for a connection state.
func Indicator(state domain.ConnectionState) string {
	switch state {
	case domain.Connected:
		return "●"
	case domain.Connecting, domain.Closing:
		return "◌"
	default:
		return "○"
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func formatCompact(s Snapshot) string {
	parts := []string{
		Indicator(s.State) + " " + s.State.String(),
		fmt.Sprintf("%d unread", s.Unread()),
		plural(s.Toasts, "toast"),
	}
	if online, total := s.CamerasOnline(); total > 0 {
		parts = append(parts, fmt.Sprintf("cams %d/%d", online, total))
	}
	return strings.Join(parts, "  ")
}

func formatDetailed(s Snapshot) string {
	head := Indicator(s.State) + " " + s.State.String()
	if s.ClientID != "" {
		head += " [" + s.ClientID + "]"
	}
	parts := []string{head}

	unread := fmt.Sprintf("%d unread", s.Unread())
	counts := domain.CountUnreadByLevel(s.Alerts)
	var levels []string
	// highest severity first
	for _, lvl := range []domain.AlertLevel{domain.LevelCritical, domain.LevelWarning, domain.LevelInfo} {
		if counts[lvl] > 0 {
			levels = append(levels, fmt.Sprintf("%s:%d", lvl, counts[lvl]))
		}
	}
	if len(levels) > 0 {
		unread += " (" + strings.Join(levels, " ") + ")"
	}
	parts = append(parts, unread, plural(s.Toasts, "toast"))

	if online, total := s.CamerasOnline(); total > 0 {
		parts = append(parts, fmt.Sprintf("cams %d/%d", online, total))
	}
	if s.Engine != nil {
		parts = append(parts, fmt.Sprintf("engine %s %d/%d",
			s.Engine.Status, s.Engine.RunningCameraCount, s.Engine.CameraCount))
	}
	return strings.Join(parts, "  ")
}

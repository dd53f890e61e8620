// Package sound plays the audible cue for new alerts.
package sound

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/1063537326/video-warning-0127/internal/domain"
)

// Player plays a cue for a notification. Implementations must not block for long.
type Player interface {
	Play(n *domain.Notification) error
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(n *domain.Notification) error

// Play calls f(n).
func (f PlayerFunc) Play(n *domain.Notification) error { return f(n) }

// Nop never plays anything.
type Nop struct{}

// Play implements Player.
func (Nop) Play(*domain.Notification) error { return nil }

// Bell rings the terminal bell.
type Bell struct {
	mu sync.Mutex
	W  io.Writer
}

// NewBell returns a bell writing to w, or stdout when w is nil.
func NewBell(w io.Writer) *Bell {
	if w == nil {
		w = os.Stdout
	}
	return &Bell{W: w}
}

// Play implements Player.
func (b *Bell) Play(*domain.Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := io.WriteString(b.W, "\a"); err != nil {
		return fmt.Errorf("ring bell: %w", err)
	}
	return nil
}

// Command runs an external program, e.g. "paplay /usr/share/sounds/alert.oga".
// The program is started and not waited on. Alert details are passed in the
// environment.
type Command struct {
	Path string
	Args []string
}

// ParseCommand splits a command line on whitespace. An empty line yields nil.
func ParseCommand(line string) *Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return &Command{Path: fields[0], Args: fields[1:]}
}

// Play implements Player.
func (c *Command) Play(n *domain.Notification) error {
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Env = append(os.Environ(),
		"ALERT_ID="+strconv.FormatInt(n.ID, 10),
		"ALERT_TYPE="+n.AlertType.String(),
		"ALERT_LEVEL="+n.AlertLevel.String(),
		"CAMERA_NAME="+n.CameraName,
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start sound command %s: %w", c.Path, err)
	}
	go cmd.Wait() //nolint:errcheck // exit status of a chime is irrelevant
	return nil
}

// Throttled limits how often the wrapped player runs. Cues over the limit
// are skipped, not queued.
type Throttled struct {
	player  Player
	limiter *rate.Limiter
}

// NewThrottled allows perSecond cues per second with the given burst.
// A non-positive rate disables throttling.
func NewThrottled(p Player, perSecond float64, burst int) *Throttled {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{player: p, limiter: rate.NewLimiter(limit, burst)}
}

// Play implements Player.
func (t *Throttled) Play(n *domain.Notification) error {
	if !t.limiter.Allow() {
		return nil
	}
	return t.player.Play(n)
}

// Package inbox holds the notification model a UI renders: the persistent
// alert list and the transient toast list.
package inbox

import (
	"sync"
	"time"

	"github.com/1063537326/video-warning-0127/internal/dedup"
	"github.com/1063537326/video-warning-0127/internal/domain"
	"github.com/1063537326/video-warning-0127/internal/logging"
	"github.com/1063537326/video-warning-0127/internal/sound"
)

// Default capacities.
const (
	DefaultAlertCapacity = 100
	DefaultToastCapacity = 50
)

// Options configures an Inbox.
type Options struct {
	AlertCapacity int
	ToastCapacity int
	// Player is invoked for every new persistent alert while sound is enabled.
	Player       sound.Player
	SoundEnabled bool
	Logger       logging.Logger
	// Now stamps when toasts are shown. Defaults to time.Now.
	Now func() time.Time
}

// Outcome reports what each collection did with one alert.
type Outcome struct {
	Alert Result
	Toast Result
}

// Inbox is safe for concurrent use.
type Inbox struct {
	mu           sync.RWMutex
	alerts       *Collection
	toasts       *Collection
	soundEnabled bool

	player sound.Player
	logger logging.Logger

	observers []func(unread int)
}

// New creates an empty inbox. Zero capacities take the defaults.
func New(opts Options) *Inbox {
	if opts.AlertCapacity <= 0 {
		opts.AlertCapacity = DefaultAlertCapacity
	}
	if opts.ToastCapacity <= 0 {
		opts.ToastCapacity = DefaultToastCapacity
	}
	if opts.Player == nil {
		opts.Player = sound.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	toasts := NewCollection(dedup.Escalation{}, opts.ToastCapacity)
	if opts.Now != nil {
		toasts.now = opts.Now
	}
	return &Inbox{
		alerts:       NewCollection(dedup.Upsert{}, opts.AlertCapacity),
		toasts:       toasts,
		soundEnabled: opts.SoundEnabled,
		player:       opts.Player,
		logger:       opts.Logger,
	}
}

// Ingest applies an alert to both lists. The sound cue plays after the lock
// is released.
func (in *Inbox) Ingest(n *domain.Notification) Outcome {
	in.mu.Lock()
	out := Outcome{
		Alert: in.alerts.Apply(n),
		Toast: in.toasts.Apply(n),
	}
	play := in.soundEnabled && out.Alert.Action == dedup.Insert
	unread, notify := in.unreadLocked(), out.Alert.Changed()
	in.mu.Unlock()
	if notify {
		in.notifyUnread(unread)
	}

	in.logger.Debug("alert ingested",
		"id", n.ID,
		"track", n.TrackID,
		"type", n.AlertType,
		"alert", out.Alert.Label(),
		"toast", out.Toast.Label())

	if play {
		if err := in.player.Play(out.Alert.Entry); err != nil {
			in.logger.Warn("sound cue failed", "error", err)
		}
	}
	return out
}

// Alerts returns copies of the alerts, newest first.
func (in *Inbox) Alerts() []*domain.Notification {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.alerts.Snapshot()
}

// Toasts returns copies of the toasts, newest first.
func (in *Inbox) Toasts() []*domain.Notification {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.toasts.Snapshot()
}

// OnUnreadChange registers fn to be called with the unread count after every
// change to the alert list. fn runs without the inbox lock held.
func (in *Inbox) OnUnreadChange(fn func(unread int)) {
	if fn == nil {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.observers = append(in.observers, fn)
}

func (in *Inbox) notifyUnread(unread int) {
	in.mu.RLock()
	observers := make([]func(int), len(in.observers))
	copy(observers, in.observers)
	in.mu.RUnlock()
	for _, fn := range observers {
		fn(unread)
	}
}

// alertsChanged notifies observers after a mutation of the alert list.
func (in *Inbox) alertsChanged() {
	in.mu.RLock()
	unread := in.unreadLocked()
	in.mu.RUnlock()
	in.notifyUnread(unread)
}

// UnreadCount returns the number of unread alerts.
func (in *Inbox) UnreadCount() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.unreadLocked()
}

func (in *Inbox) unreadLocked() int {
	count := 0
	in.alerts.each(func(n *domain.Notification) {
		if !n.IsRead {
			count++
		}
	})
	return count
}

// MarkRead marks one alert read. It returns false when the id is unknown.
func (in *Inbox) MarkRead(id int64) bool {
	in.mu.Lock()
	n := in.alerts.find(id)
	if n == nil {
		in.mu.Unlock()
		return false
	}
	changed := !n.IsRead
	n.IsRead = true
	in.mu.Unlock()
	if changed {
		in.alertsChanged()
	}
	return true
}

// MarkAllRead marks every alert read and returns how many changed.
func (in *Inbox) MarkAllRead() int {
	in.mu.Lock()
	changed := 0
	in.alerts.each(func(n *domain.Notification) {
		if !n.IsRead {
			n.IsRead = true
			changed++
		}
	})
	in.mu.Unlock()
	if changed > 0 {
		in.alertsChanged()
	}
	return changed
}

// Dismiss removes one alert.
func (in *Inbox) Dismiss(id int64) bool {
	in.mu.Lock()
	removed := in.alerts.Remove(id)
	in.mu.Unlock()
	if removed {
		in.alertsChanged()
	}
	return removed
}

// ClearAlerts removes every alert.
func (in *Inbox) ClearAlerts() {
	in.mu.Lock()
	in.alerts.Clear()
	in.mu.Unlock()
	in.alertsChanged()
}

// DismissToast removes one toast.
func (in *Inbox) DismissToast(id int64) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.toasts.Remove(id)
}

// ClearToasts removes every toast.
func (in *Inbox) ClearToasts() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.toasts.Clear()
}

// ExpireToasts removes toasts shown more than ttl before now and returns the
// count. A toast is shown when it is inserted or updated, whatever the event
// time of its alert.
func (in *Inbox) ExpireToasts(now time.Time, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.toasts.RemoveShownBefore(now.Add(-ttl))
}

// SetSoundEnabled turns the audible cue on or off.
func (in *Inbox) SetSoundEnabled(enabled bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.soundEnabled = enabled
}

// SoundEnabled reports whether the audible cue is on.
func (in *Inbox) SoundEnabled() bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.soundEnabled
}

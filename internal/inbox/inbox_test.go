package inbox

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1063537326/video-warning-0127/internal/dedup"
	"github.com/1063537326/video-warning-0127/internal/domain"
	"github.com/1063537326/video-warning-0127/internal/sound"
)

type countingPlayer struct {
	mu     sync.Mutex
	played []int64
}

func (p *countingPlayer) Play(n *domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, n.ID)
	return nil
}

func (p *countingPlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

func TestIngestTrackMerge(t *testing.T) {
	in := New(Options{})

	in.Ingest(notif(1, "t1", domain.AlertStranger))
	in.MarkRead(1)
	require.Equal(t, 0, in.UnreadCount())

	known := notif(2, "t1", domain.AlertKnown)
	known.PersonName = "Alice"
	out := in.Ingest(known)

	assert.Equal(t, dedup.Promote, out.Alert.Action)
	assert.Equal(t, dedup.Remove, out.Toast.Action)
	alerts := in.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertKnown, alerts[0].AlertType)
	assert.Equal(t, "Alice", alerts[0].PersonName)
	assert.False(t, alerts[0].IsRead, "merge re-surfaces the entry")
	assert.Equal(t, 1, in.UnreadCount())
	assert.Empty(t, in.Toasts())
}

func TestIngestDuplicateIDWithoutTrack(t *testing.T) {
	in := New(Options{})
	in.Ingest(notif(5, "", domain.AlertStranger))
	out := in.Ingest(notif(5, "", domain.AlertStranger))

	assert.Equal(t, "duplicate", out.Alert.Label())
	assert.Equal(t, "duplicate", out.Toast.Label())
	assert.Len(t, in.Alerts(), 1)
	assert.Len(t, in.Toasts(), 1)
}

func TestKnownFirstSightSuppressesToast(t *testing.T) {
	in := New(Options{})
	out := in.Ingest(notif(1, "t", domain.AlertKnown))

	assert.Equal(t, "inserted", out.Alert.Label())
	assert.Equal(t, "suppressed", out.Toast.Label())
	assert.Len(t, in.Alerts(), 1)
	assert.Empty(t, in.Toasts())
}

func TestCapacities(t *testing.T) {
	in := New(Options{})
	for i := int64(1); i <= 120; i++ {
		in.Ingest(notif(i, "", domain.AlertStranger))
	}
	assert.Len(t, in.Alerts(), DefaultAlertCapacity)
	assert.Len(t, in.Toasts(), DefaultToastCapacity)
	assert.Equal(t, int64(120), in.Toasts()[0].ID)
	assert.Equal(t, int64(71), in.Toasts()[49].ID)
}

func TestSoundOnlyOnInsertWhenEnabled(t *testing.T) {
	p := &countingPlayer{}
	in := New(Options{Player: p, SoundEnabled: true})

	in.Ingest(notif(1, "t", domain.AlertStranger))
	in.Ingest(notif(2, "t", domain.AlertStranger)) // merge
	in.Ingest(notif(2, "", domain.AlertStranger))  // duplicate
	assert.Equal(t, 1, p.count())

	in.SetSoundEnabled(false)
	assert.False(t, in.SoundEnabled())
	in.Ingest(notif(3, "", domain.AlertStranger))
	assert.Equal(t, 1, p.count())

	in.SetSoundEnabled(true)
	in.Ingest(notif(4, "", domain.AlertKnown))
	assert.Equal(t, 2, p.count(), "known alerts are persistent inserts and chime")
}

func TestSoundErrorDoesNotBreakIngest(t *testing.T) {
	in := New(Options{SoundEnabled: true, Player: sound.PlayerFunc(func(*domain.Notification) error {
		return assert.AnError
	})})
	out := in.Ingest(notif(1, "", domain.AlertStranger))
	assert.Equal(t, "inserted", out.Alert.Label())
}

func TestReadState(t *testing.T) {
	in := New(Options{})
	for i := int64(1); i <= 3; i++ {
		in.Ingest(notif(i, "", domain.AlertStranger))
	}
	assert.Equal(t, 3, in.UnreadCount())
	assert.True(t, in.MarkRead(2))
	assert.False(t, in.MarkRead(42))
	assert.Equal(t, 2, in.UnreadCount())
	assert.Equal(t, 2, in.MarkAllRead())
	assert.Equal(t, 0, in.MarkAllRead())
	assert.Equal(t, 0, in.UnreadCount())
}

func TestDismissAndClear(t *testing.T) {
	in := New(Options{})
	in.Ingest(notif(1, "", domain.AlertStranger))
	in.Ingest(notif(2, "", domain.AlertStranger))

	assert.True(t, in.Dismiss(1))
	assert.False(t, in.Dismiss(1))
	assert.Len(t, in.Alerts(), 1)
	assert.Len(t, in.Toasts(), 2, "dismissing an alert leaves toasts alone")

	assert.True(t, in.DismissToast(2))
	assert.False(t, in.DismissToast(2))
	assert.Len(t, in.Toasts(), 1)

	in.ClearToasts()
	assert.Empty(t, in.Toasts())
	in.ClearAlerts()
	assert.Empty(t, in.Alerts())
}

func TestExpireToasts(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	in := New(Options{Now: func() time.Time { return now }})

	first := notif(1, "", domain.AlertStranger)
	first.CreatedAt = base.Add(-30 * time.Second)
	in.Ingest(first)
	now = base.Add(8 * time.Second)
	second := notif(2, "", domain.AlertStranger)
	second.CreatedAt = base.Add(-30 * time.Second)
	in.Ingest(second)

	assert.Equal(t, 0, in.ExpireToasts(base.Add(time.Second), 0))
	assert.Equal(t, 0, in.ExpireToasts(base.Add(time.Second), 10*time.Second), "age counts from arrival, not event time")
	assert.Equal(t, 1, in.ExpireToasts(base.Add(11*time.Second), 10*time.Second))
	toasts := in.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, int64(2), toasts[0].ID)
	assert.Len(t, in.Alerts(), 2, "expiry never touches alerts")
}

func TestExpireToastsIgnoresEventTime(t *testing.T) {
	tests := []struct {
		name      string
		createdAt time.Duration
	}{
		{"late arrival", -12 * time.Second},
		{"future timestamp", time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
			in := New(Options{Now: func() time.Time { return now }})
			n := notif(1, "", domain.AlertStranger)
			n.CreatedAt = now.Add(tt.createdAt)
			in.Ingest(n)

			assert.Equal(t, 0, in.ExpireToasts(now.Add(time.Second), 10*time.Second))
			assert.Len(t, in.Toasts(), 1)
			assert.Equal(t, 1, in.ExpireToasts(now.Add(11*time.Second), 10*time.Second))
			assert.Empty(t, in.Toasts())
		})
	}
}

func TestToastUpdateRestartsExpiry(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	in := New(Options{Now: func() time.Time { return now }})

	in.Ingest(notif(1, "t1", domain.AlertStranger))
	now = base.Add(8 * time.Second)
	out := in.Ingest(notif(2, "t1", domain.AlertBlacklist))
	require.Equal(t, "updated", out.Toast.Label())

	assert.Equal(t, 0, in.ExpireToasts(base.Add(12*time.Second), 10*time.Second))
	assert.Equal(t, 1, in.ExpireToasts(base.Add(19*time.Second), 10*time.Second))
}

func TestConcurrentIngest(t *testing.T) {
	in := New(Options{AlertCapacity: 1000})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				in.Ingest(notif(int64(g*1000+i+1), "", domain.AlertStranger))
				_ = in.UnreadCount()
			}
		}(g)
	}
	wg.Wait()
	assert.Len(t, in.Alerts(), 400)
}

func TestOnUnreadChange(t *testing.T) {
	in := New(Options{})
	var seen []int
	in.OnUnreadChange(func(unread int) { seen = append(seen, unread) })
	in.OnUnreadChange(nil)

	in.Ingest(notif(1, "t1", domain.AlertStranger))
	in.Ingest(notif(1, "", domain.AlertStranger)) // duplicate id, no change
	in.Ingest(notif(2, "", domain.AlertStranger))
	in.MarkRead(1)
	in.MarkRead(1) // already read
	in.MarkRead(99)
	in.Dismiss(2)
	in.MarkAllRead()
	in.ClearAlerts()

	assert.Equal(t, []int{1, 2, 1, 0, 0}, seen)
}

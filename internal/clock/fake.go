package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced clock. Callbacks run synchronously on the
// goroutine calling Advance or FireNext, never in the background.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*fakeTimer
	history []time.Duration
}

type fakeTimer struct {
	clock   *Fake
	id      int
	due     time.Time
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

// NewFake returns a fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc registers f to run once the clock has advanced by d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &fakeTimer{clock: f, id: f.seq, due: f.now.Add(d), delay: d, fn: fn}
	f.pending = append(f.pending, t)
	f.history = append(f.history, d)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.clock.removeLocked(t)
	return true
}

func (f *Fake) removeLocked(t *fakeTimer) {
	for i, p := range f.pending {
		if p == t {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return
		}
	}
}

// Advance moves the clock forward by d, running every callback that falls
// due in order of due time.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()
	for {
		f.mu.Lock()
		next := f.nextLocked()
		if next == nil || next.due.After(target) {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = next.due
		next.fired = true
		f.removeLocked(next)
		f.mu.Unlock()
		next.fn()
	}
}

// FireNext jumps to the earliest pending timer and runs it. It returns the
// delay the timer was armed with and false when nothing is pending.
func (f *Fake) FireNext() (time.Duration, bool) {
	f.mu.Lock()
	next := f.nextLocked()
	if next == nil {
		f.mu.Unlock()
		return 0, false
	}
	if next.due.After(f.now) {
		f.now = next.due
	}
	next.fired = true
	f.removeLocked(next)
	f.mu.Unlock()
	next.fn()
	return next.delay, true
}

func (f *Fake) nextLocked() *fakeTimer {
	if len(f.pending) == 0 {
		return nil
	}
	sorted := make([]*fakeTimer, len(f.pending))
	copy(sorted, f.pending)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].due.Equal(sorted[j].due) {
			return sorted[i].id < sorted[j].id
		}
		return sorted[i].due.Before(sorted[j].due)
	})
	return sorted[0]
}

// Pending returns the number of armed timers.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// PendingDelays returns the delays of armed timers in arming order.
func (f *Fake) PendingDelays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, 0, len(f.pending))
	for _, t := range f.pending {
		out = append(out, t.delay)
	}
	return out
}

// History returns every delay ever passed to AfterFunc.
func (f *Fake) History() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.history))
	copy(out, f.history)
	return out
}

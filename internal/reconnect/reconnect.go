// Package reconnect schedules reconnection attempts with linear, capped backoff.
package reconnect

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/1063537326/video-warning-0127/internal/clock"
)

// Defaults.
const (
	DefaultBase        = 3 * time.Second
	DefaultMaxAttempts = 10
	// backoffCap bounds the multiplier applied to Base.
	backoffCap = 5
)

// Options configures a Scheduler.
type Options struct {
	Base        time.Duration
	MaxAttempts int
	Clock       clock.Clock
}

// Linear is a backoff.BackOff whose n-th delay is Base*min(n, 5).
type Linear struct {
	Base time.Duration
	n    int
}

// NextBackOff returns the delay before the next attempt.
func (l *Linear) NextBackOff() time.Duration {
	l.n++
	return linearDelay(l.Base, l.n)
}

// Reset restarts the sequence at the first attempt.
func (l *Linear) Reset() { l.n = 0 }

func linearDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > backoffCap {
		attempt = backoffCap
	}
	return base * time.Duration(attempt)
}

// Scheduler arms at most one reconnect timer at a time. Delays and the
// attempt budget come from a backoff.BackOff.
type Scheduler struct {
	mu       sync.Mutex
	base     time.Duration
	max      int
	clock    clock.Clock
	policy   backoff.BackOff
	attempts int
	timer    clock.Timer
	// gen invalidates timers that fire after Cancel or Reset.
	gen uint64
}

// New returns a scheduler. Zero options take the defaults.
func New(opts Options) *Scheduler {
	if opts.Base <= 0 {
		opts.Base = DefaultBase
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	return &Scheduler{
		base:   opts.Base,
		max:    opts.MaxAttempts,
		clock:  opts.Clock,
		policy: backoff.WithMaxRetries(&Linear{Base: opts.Base}, uint64(opts.MaxAttempts)),
	}
}

// Delay returns the wait before the given 1-based attempt.
func (s *Scheduler) Delay(attempt int) time.Duration {
	return linearDelay(s.base, attempt)
}

// Schedule arms a timer that calls fn after the next backoff delay. It
// returns the attempt number and delay, or ok=false once the attempt budget
// is spent. A timer that is already armed is kept and nothing new is scheduled.
func (s *Scheduler) Schedule(fn func()) (attempt int, delay time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return s.attempts, 0, false
	}
	delay = s.policy.NextBackOff()
	if delay == backoff.Stop {
		return s.attempts, 0, false
	}
	s.attempts++
	attempt = s.attempts
	gen := s.gen
	s.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		fn()
	})
	return attempt, delay, true
}

// Cancel disarms the pending timer, if any. The attempt count is kept.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *Scheduler) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Reset clears the attempt count and disarms the pending timer.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.policy.Reset()
	s.attempts = 0
}

// Attempts returns the number of attempts scheduled since the last Reset.
func (s *Scheduler) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// MaxAttempts returns the attempt budget.
func (s *Scheduler) MaxAttempts() int {
	return s.max
}

// Pending reports whether a timer is armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Exhausted reports whether the attempt budget is spent.
func (s *Scheduler) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts >= s.max
}

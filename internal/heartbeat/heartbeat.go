// Package heartbeat sends periodic keep-alive frames while a connection is up.
package heartbeat

import (
	"sync"
	"time"

	"github.com/1063537326/video-warning-0127/internal/clock"
)

// DefaultInterval stays below the server's 60s idle timeout.
const DefaultInterval = 25 * time.Second

// Monitor calls a beat function every Interval between Start and Stop.
type Monitor struct {
	mu       sync.Mutex
	interval time.Duration
	clock    clock.Clock
	timer    clock.Timer
	gen      uint64
	running  bool
	beats    int
}

// New returns a stopped monitor. A non-positive interval takes the default.
func New(interval time.Duration, clk clock.Clock) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Monitor{interval: interval, clock: clk}
}

// Start begins a fresh schedule, replacing any running one. The first beat
// happens one interval after Start.
func (m *Monitor) Start(beat func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.running = true
	m.beats = 0
	m.armLocked(m.gen, beat)
}

func (m *Monitor) armLocked(gen uint64, beat func()) {
	m.timer = m.clock.AfterFunc(m.interval, func() {
		m.mu.Lock()
		if gen != m.gen || !m.running {
			m.mu.Unlock()
			return
		}
		m.beats++
		m.armLocked(gen, beat)
		m.mu.Unlock()
		beat()
	})
}

// Stop cancels the schedule. It is safe to call when not running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Monitor) stopLocked() {
	m.gen++
	m.running = false
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Running reports whether a schedule is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Beats returns the number of beats since the last Start.
func (m *Monitor) Beats() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beats
}

// Interval returns the beat interval.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

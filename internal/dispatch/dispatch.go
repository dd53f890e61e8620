// Package dispatch routes inbound envelopes to registered handlers.
package dispatch

import (
	"fmt"
	"sync"

	"github.com/1063537326/video-warning-0127/internal/logging"
	"github.com/1063537326/video-warning-0127/internal/protocol"
)

// Handler receives one envelope.
type Handler func(env protocol.Envelope)

// Handle identifies a registration for Off.
type Handle uint64

type registration struct {
	handle Handle
	fn     Handler
}

// Dispatcher delivers each envelope to the handlers for its type in
// registration order, then to wildcard handlers in registration order, then
// to the built-in handler for the type. Registrations may change at any time,
// including from inside a handler; each dispatch works on a snapshot.
type Dispatcher struct {
	mu       sync.RWMutex
	next     Handle
	byType   map[string][]registration
	wildcard []registration
	builtins map[string]Handler
	logger   logging.Logger
}

// New returns an empty dispatcher.
func New(logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{
		byType:   make(map[string][]registration),
		builtins: make(map[string]Handler),
		logger:   logger,
	}
}

// On registers h for envelopes of type typ.
func (d *Dispatcher) On(typ string, h Handler) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.byType[typ] = append(d.byType[typ], registration{handle: d.next, fn: h})
	return d.next
}

// OnAny registers h for every envelope.
func (d *Dispatcher) OnAny(h Handler) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.wildcard = append(d.wildcard, registration{handle: d.next, fn: h})
	return d.next
}

// Off removes a registration. It reports whether the handle was registered.
func (d *Dispatcher) Off(h Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for typ, regs := range d.byType {
		if out, ok := without(regs, h); ok {
			if len(out) == 0 {
				delete(d.byType, typ)
			} else {
				d.byType[typ] = out
			}
			return true
		}
	}
	if out, ok := without(d.wildcard, h); ok {
		d.wildcard = out
		return true
	}
	return false
}

func without(regs []registration, h Handle) ([]registration, bool) {
	for i, r := range regs {
		if r.handle == h {
			out := make([]registration, 0, len(regs)-1)
			out = append(out, regs[:i]...)
			return append(out, regs[i+1:]...), true
		}
	}
	return regs, false
}

// Clear removes every user registration. Built-ins stay.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byType = make(map[string][]registration)
	d.wildcard = nil
}

// SetBuiltin installs the handler that runs after user handlers for typ.
// A nil handler removes it.
func (d *Dispatcher) SetBuiltin(typ string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h == nil {
		delete(d.builtins, typ)
		return
	}
	d.builtins[typ] = h
}

// Count returns the number of user registrations.
func (d *Dispatcher) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := len(d.wildcard)
	for _, regs := range d.byType {
		n += len(regs)
	}
	return n
}

// Dispatch delivers env. Handler panics are recovered and logged.
func (d *Dispatcher) Dispatch(env protocol.Envelope) {
	d.mu.RLock()
	typed := append([]registration(nil), d.byType[env.Type]...)
	wildcard := append([]registration(nil), d.wildcard...)
	builtin := d.builtins[env.Type]
	d.mu.RUnlock()

	for _, r := range typed {
		d.invoke(env, r.fn)
	}
	for _, r := range wildcard {
		d.invoke(env, r.fn)
	}
	if builtin != nil {
		d.invoke(env, builtin)
		return
	}
	if len(typed) == 0 && len(wildcard) == 0 {
		d.logger.Debug("unhandled message type", "type", env.Type)
	}
}

func (d *Dispatcher) invoke(env protocol.Envelope, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("message handler panicked", "type", env.Type, "panic", fmt.Sprint(r))
		}
	}()
	h(env)
}

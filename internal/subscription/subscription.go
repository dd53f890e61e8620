// Package subscription tracks which cameras the client wants events for.
package subscription

import (
	"sort"
	"sync"

	"github.com/1063537326/video-warning-0127/internal/protocol"
)

// Sender delivers a control frame. It reports whether the frame was sent;
// while disconnected it is expected to drop the frame.
type Sender func(msg protocol.Outbound) bool

// Registry is the desired set of camera subscriptions. It is safe for
// concurrent use.
type Registry struct {
	mu   sync.Mutex
	ids  map[int]struct{}
	send Sender
}

// New returns an empty registry sending through send.
func New(send Sender) *Registry {
	if send == nil {
		send = func(protocol.Outbound) bool { return false }
	}
	return &Registry{ids: make(map[int]struct{}), send: send}
}

// Subscribe adds ids to the set and tells the server. Invalid and repeated
// ids in the call are ignored. It returns the ids sent.
func (r *Registry) Subscribe(ids ...int) []int {
	clean := normalize(ids)
	if len(clean) == 0 {
		return nil
	}
	r.mu.Lock()
	for _, id := range clean {
		r.ids[id] = struct{}{}
	}
	r.mu.Unlock()
	r.send(protocol.Subscribe(clean))
	return clean
}

// Unsubscribe removes ids from the set and tells the server.
func (r *Registry) Unsubscribe(ids ...int) []int {
	clean := normalize(ids)
	if len(clean) == 0 {
		return nil
	}
	r.mu.Lock()
	for _, id := range clean {
		delete(r.ids, id)
	}
	r.mu.Unlock()
	r.send(protocol.Unsubscribe(clean))
	return clean
}

// UnsubscribeAll empties the set.
func (r *Registry) UnsubscribeAll() []int {
	return r.Unsubscribe(r.Members()...)
}

// Resync re-sends the whole set, as needed after every connect. An empty set
// sends nothing.
func (r *Registry) Resync() bool {
	members := r.Members()
	if len(members) == 0 {
		return false
	}
	return r.send(protocol.Subscribe(members))
}

// Members returns the subscribed ids in ascending order.
func (r *Registry) Members() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Contains reports whether id is subscribed.
func (r *Registry) Contains(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

// Len returns the number of subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

// normalize drops non-positive and repeated ids, keeping first-seen order.
func normalize(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

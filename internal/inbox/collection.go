package inbox

import (
	"time"

	"github.com/1063537326/video-warning-0127/internal/dedup"
	"github.com/1063537326/video-warning-0127/internal/domain"
)

// Result reports what a collection did with one notification.
type Result struct {
	Action dedup.Action
	// Reason is set for dedup.Drop.
	Reason string
	// Entry is a copy of the stored entry after Insert, Promote or Update,
	// or of the removed entry after Remove.
	Entry *domain.Notification
	// Evicted counts entries pushed out by capacity or id collisions.
	Evicted int
}

// Label is a short past-tense description, used for logs and metrics.
func (r Result) Label() string {
	switch r.Action {
	case dedup.Insert:
		return "inserted"
	case dedup.Promote:
		return "merged"
	case dedup.Update:
		return "updated"
	case dedup.Remove:
		return "removed"
	case dedup.Drop:
		if r.Reason == dedup.ReasonSuppressed {
			return "suppressed"
		}
		return "duplicate"
	default:
		return "unknown"
	}
}

// Changed reports whether the collection was modified.
func (r Result) Changed() bool {
	return r.Action != dedup.Drop
}

// Collection is a bounded list of notifications, newest first, whose merge
// behavior is set by a dedup.Policy. It is not safe for concurrent use.
type Collection struct {
	policy   dedup.Policy
	capacity int
	entries  []*domain.Notification
	// shown records when each entry id was last inserted, promoted or updated.
	shown map[int64]time.Time
	now   func() time.Time
}

// NewCollection returns an empty collection. A capacity below 1 is treated as 1.
func NewCollection(policy dedup.Policy, capacity int) *Collection {
	if capacity < 1 {
		capacity = 1
	}
	return &Collection{
		policy:   policy,
		capacity: capacity,
		shown:    make(map[int64]time.Time),
		now:      time.Now,
	}
}

// Apply merges n according to the policy. n is copied, never retained.
func (c *Collection) Apply(n *domain.Notification) Result {
	d := c.policy.Decide(c.entries, n)
	res := Result{Action: d.Action, Reason: d.Reason}

	switch d.Action {
	case dedup.Insert:
		entry := n.Clone()
		entry.IsRead = false
		c.entries = append([]*domain.Notification{entry}, c.entries...)
		c.shown[entry.ID] = c.now()
		res.Entry = entry.Clone()
		res.Evicted = c.truncate()

	case dedup.Promote:
		merged := dedup.Merge(c.entries[d.Index], n, false)
		c.removeAt(d.Index)
		// an explicit id may already belong to another entry
		if dup := dedup.FindByID(c.entries, merged.ID); dup >= 0 {
			c.removeAt(dup)
			res.Evicted++
		}
		c.entries = append([]*domain.Notification{merged}, c.entries...)
		c.shown[merged.ID] = c.now()
		res.Entry = merged.Clone()

	case dedup.Update:
		merged := dedup.Merge(c.entries[d.Index], n, true)
		delete(c.shown, c.entries[d.Index].ID)
		c.entries[d.Index] = merged
		c.shown[merged.ID] = c.now()
		res.Entry = merged.Clone()

	case dedup.Remove:
		res.Entry = c.entries[d.Index].Clone()
		c.removeAt(d.Index)
	}
	return res
}

func (c *Collection) removeAt(i int) {
	delete(c.shown, c.entries[i].ID)
	copy(c.entries[i:], c.entries[i+1:])
	c.entries[len(c.entries)-1] = nil
	c.entries = c.entries[:len(c.entries)-1]
}

// truncate drops entries beyond capacity from the tail.
func (c *Collection) truncate() int {
	over := len(c.entries) - c.capacity
	if over <= 0 {
		return 0
	}
	for i := c.capacity; i < len(c.entries); i++ {
		delete(c.shown, c.entries[i].ID)
		c.entries[i] = nil
	}
	c.entries = c.entries[:c.capacity]
	return over
}

// Len returns the number of entries.
func (c *Collection) Len() int { return len(c.entries) }

// Capacity returns the maximum number of entries.
func (c *Collection) Capacity() int { return c.capacity }

// Snapshot returns copies of the entries, head first.
func (c *Collection) Snapshot() []*domain.Notification {
	out := make([]*domain.Notification, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Clone()
	}
	return out
}

// Remove deletes the entry with the given id.
func (c *Collection) Remove(id int64) bool {
	idx := dedup.FindByID(c.entries, id)
	if idx < 0 {
		return false
	}
	c.removeAt(idx)
	return true
}

// RemoveIf deletes every entry for which fn returns true and returns the count.
func (c *Collection) RemoveIf(fn func(*domain.Notification) bool) int {
	kept := c.entries[:0]
	removed := 0
	for _, e := range c.entries {
		if fn(e) {
			delete(c.shown, e.ID)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(c.entries); i++ {
		c.entries[i] = nil
	}
	c.entries = kept
	return removed
}

// Clear removes all entries.
func (c *Collection) Clear() {
	c.entries = nil
	c.shown = make(map[int64]time.Time)
}

// ShownAt returns when the entry with the given id last changed in this
// collection.
func (c *Collection) ShownAt(id int64) (time.Time, bool) {
	t, ok := c.shown[id]
	return t, ok
}

// RemoveShownBefore deletes entries last shown before cutoff and returns the count.
func (c *Collection) RemoveShownBefore(cutoff time.Time) int {
	return c.RemoveIf(func(n *domain.Notification) bool {
		return c.shown[n.ID].Before(cutoff)
	})
}

// find returns the stored entry with the given id, or nil.
func (c *Collection) find(id int64) *domain.Notification {
	if idx := dedup.FindByID(c.entries, id); idx >= 0 {
		return c.entries[idx]
	}
	return nil
}

// each calls fn for every stored entry, head first.
func (c *Collection) each(fn func(*domain.Notification)) {
	for _, e := range c.entries {
		fn(e)
	}
}

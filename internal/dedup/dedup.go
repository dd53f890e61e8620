// Package dedup decides how an incoming alert is merged into a list of
// existing notifications.
//
// A Policy only inspects; the caller applies the returned Decision. This keeps
// the alert list and the toast list on a single collection type.
package dedup

import (
	"github.com/1063537326/video-warning-0127/internal/domain"
)

// Action is what the collection should do with an incoming notification.
type Action int

const (
	// Insert adds the notification at the head.
	Insert Action = iota
	// Promote merges into the entry at Index and moves it to the head.
	Promote
	// Update merges into the entry at Index, keeping its id and position.
	Update
	// Remove deletes the entry at Index without replacement.
	Remove
	// Drop ignores the notification.
	Drop
)

func (a Action) String() string {
	switch a {
	case Insert:
		return "insert"
	case Promote:
		return "promote"
	case Update:
		return "update"
	case Remove:
		return "remove"
	case Drop:
		return "drop"
	default:
		return "unknown"
	}
}

// Reasons attached to Drop decisions.
const (
	ReasonDuplicateID = "duplicate_id"
	ReasonSuppressed  = "suppressed"
)

// Decision is the outcome of a Policy.
type Decision struct {
	Action Action
	// Index of the matched entry for Promote, Update and Remove; -1 otherwise.
	Index int
	// Reason explains a Drop.
	Reason string
}

// Policy decides how incoming merges into entries. entries are ordered head first.
type Policy interface {
	Name() string
	Decide(entries []*domain.Notification, incoming *domain.Notification) Decision
}

// Upsert keeps at most one entry per track. A repeat sighting of a track
// refreshes the entry and brings it back to the top.
type Upsert struct{}

// Name returns the policy name.
func (Upsert) Name() string { return "upsert" }

// Decide implements Policy.
func (Upsert) Decide(entries []*domain.Notification, incoming *domain.Notification) Decision {
	if incoming.HasTrack() {
		if idx := FindByTrack(entries, incoming.TrackID); idx >= 0 {
			return Decision{Action: Promote, Index: idx}
		}
	}
	if FindByID(entries, incoming.ID) >= 0 {
		return Decision{Action: Drop, Index: -1, Reason: ReasonDuplicateID}
	}
	return Decision{Action: Insert, Index: -1}
}

// Escalation governs transient toasts. Once a tracked person is recognized
// as known the toast disappears, and a known person never raises a new one.
type Escalation struct{}

// Name returns the policy name.
func (Escalation) Name() string { return "escalation" }

// Decide implements Policy.
func (Escalation) Decide(entries []*domain.Notification, incoming *domain.Notification) Decision {
	known := incoming.AlertType == domain.AlertKnown
	if incoming.HasTrack() {
		if idx := FindByTrack(entries, incoming.TrackID); idx >= 0 {
			if known {
				return Decision{Action: Remove, Index: idx}
			}
			return Decision{Action: Update, Index: idx}
		}
	}
	if known {
		return Decision{Action: Drop, Index: -1, Reason: ReasonSuppressed}
	}
	if FindByID(entries, incoming.ID) >= 0 {
		return Decision{Action: Drop, Index: -1, Reason: ReasonDuplicateID}
	}
	return Decision{Action: Insert, Index: -1}
}

// FindByTrack returns the index of the entry with the given non-empty track id, or -1.
func FindByTrack(entries []*domain.Notification, trackID string) int {
	if trackID == "" {
		return -1
	}
	for i, e := range entries {
		if e.TrackID == trackID {
			return i
		}
	}
	return -1
}

// FindByID returns the index of the entry with the given id, or -1.
func FindByID(entries []*domain.Notification, id int64) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Merge returns existing overwritten with incoming's fields. The existing id
// survives unless keepID is false and incoming carries an id from the server.
// The result is unread.
func Merge(existing, incoming *domain.Notification, keepID bool) *domain.Notification {
	merged := incoming.Clone()
	if keepID || incoming.SyntheticID {
		merged.ID = existing.ID
		merged.SyntheticID = existing.SyntheticID
	}
	merged.IsRead = false
	return merged
}

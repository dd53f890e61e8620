// Package domain provides the entities of the alert notification model.
// It contains value objects and the small amount of business logic they carry.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors returned by Validate and the Parse helpers.
var (
	ErrInvalidID         = errors.New("invalid notification id")
	ErrInvalidAlertType  = errors.New("invalid alert type")
	ErrInvalidAlertLevel = errors.New("invalid alert level")
	ErrInvalidCamera     = errors.New("invalid camera id")
)

// Notification is one alert shown to the operator, either in the persistent
// alert list or as a transient toast.
type Notification struct {
	ID         int64
	CameraID   int
	CameraName string
	ZoneName   string
	AlertType  AlertType
	PersonID   *int
	PersonName string
	GroupName  string
	Thumbnail  string
	FullImage  string
	// Confidence is in [0, 1].
	Confidence float64
	// CreatedAt is the time of the originating event.
	CreatedAt  time.Time
	IsRead     bool
	TrackID    string
	AlertLevel AlertLevel
	// SyntheticID is set when the server sent no id and one was made up locally.
	SyntheticID bool
}

// AlertType classifies who was recognized.
type AlertType string

const (
	AlertStranger  AlertType = "stranger"
	AlertKnown     AlertType = "known"
	AlertBlacklist AlertType = "blacklist"
)

// IsValid checks if the alert type is valid.
func (t AlertType) IsValid() bool {
	switch t {
	case AlertStranger, AlertKnown, AlertBlacklist:
		return true
	default:
		return false
	}
}

// String returns the string representation of the alert type.
func (t AlertType) String() string {
	return string(t)
}

// AlertLevel is the severity the server assigned to an alert.
type AlertLevel string

const (
	LevelInfo     AlertLevel = "info"
	LevelWarning  AlertLevel = "warning"
	LevelCritical AlertLevel = "critical"
)

// IsValid checks if the alert level is valid.
func (l AlertLevel) IsValid() bool {
	switch l {
	case LevelInfo, LevelWarning, LevelCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the level.
func (l AlertLevel) String() string {
	return string(l)
}

// Rank orders levels by severity; unknown levels rank lowest.
func (l AlertLevel) Rank() int {
	switch l {
	case LevelCritical:
		return 3
	case LevelWarning:
		return 2
	case LevelInfo:
		return 1
	default:
		return 0
	}
}

// HasTrack reports whether the notification belongs to a tracked person.
func (n *Notification) HasTrack() bool {
	return n.TrackID != ""
}

// Clone returns a deep copy of the notification.
func (n *Notification) Clone() *Notification {
	c := *n
	if n.PersonID != nil {
		id := *n.PersonID
		c.PersonID = &id
	}
	return &c
}

// Label returns the best human name for the subject of the alert.
func (n *Notification) Label() string {
	switch {
	case n.PersonName != "":
		return n.PersonName
	case n.AlertType == AlertKnown:
		return "known person"
	case n.AlertType == AlertBlacklist:
		return "blacklisted person"
	default:
		return "stranger"
	}
}

// Validate validates the notification and returns an error if invalid.
func (n *Notification) Validate() error {
	if n.ID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, n.ID)
	}
	if n.CameraID < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCamera, n.CameraID)
	}
	if !n.AlertType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAlertType, n.AlertType)
	}
	if !n.AlertLevel.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAlertLevel, n.AlertLevel)
	}
	return nil
}

// ParseAlertType parses a string into an AlertType.
func ParseAlertType(s string) (AlertType, error) {
	t := AlertType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAlertType, s)
	}
	return t, nil
}

// ParseAlertLevel parses a string into an AlertLevel.
func ParseAlertLevel(s string) (AlertLevel, error) {
	l := AlertLevel(s)
	if !l.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAlertLevel, s)
	}
	return l, nil
}

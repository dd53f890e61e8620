package domain

import (
	"fmt"
)

// Read filter constants.
const (
	ReadFilterRead   = "read"
	ReadFilterUnread = "unread"
)

// Filter holds filter criteria for notifications.
type Filter struct {
	MinLevel   AlertLevel // at least this severity
	Type       AlertType
	CameraID   int
	ReadFilter string // "read", "unread", or "" (no filter)
}

// FilterOptions holds filter parameters as given on the command line.
type FilterOptions struct {
	Level      string
	Type       string
	CameraID   int
	ReadFilter string
}

// ToFilter converts FilterOptions to a Filter struct.
func (fo FilterOptions) ToFilter() (Filter, error) {
	var f Filter
	var err error
	if fo.Level != "" {
		if f.MinLevel, err = ParseAlertLevel(fo.Level); err != nil {
			return Filter{}, err
		}
	}
	if fo.Type != "" {
		if f.Type, err = ParseAlertType(fo.Type); err != nil {
			return Filter{}, err
		}
	}
	if fo.CameraID < 0 {
		return Filter{}, fmt.Errorf("%w: %d", ErrInvalidCamera, fo.CameraID)
	}
	f.CameraID = fo.CameraID
	if fo.ReadFilter != "" && fo.ReadFilter != ReadFilterRead && fo.ReadFilter != ReadFilterUnread {
		return Filter{}, fmt.Errorf("invalid read filter: %s", fo.ReadFilter)
	}
	f.ReadFilter = fo.ReadFilter
	return f, nil
}

// IsEmpty returns true if the filter has no criteria set.
func (f Filter) IsEmpty() bool {
	return f.MinLevel == "" &&
		f.Type == "" &&
		f.CameraID == 0 &&
		f.ReadFilter == ""
}

// MatchesFilter checks if the notification matches the given filter criteria.
func (n *Notification) MatchesFilter(filter Filter) bool {
	if filter.MinLevel != "" && n.AlertLevel.Rank() < filter.MinLevel.Rank() {
		return false
	}
	if filter.Type != "" && n.AlertType != filter.Type {
		return false
	}
	if filter.CameraID != 0 && n.CameraID != filter.CameraID {
		return false
	}
	switch filter.ReadFilter {
	case ReadFilterRead:
		return n.IsRead
	case ReadFilterUnread:
		return !n.IsRead
	}
	return true
}

// FilterNotifications returns the notifications matching filter, preserving order.
func FilterNotifications(notifs []*Notification, filter Filter) []*Notification {
	if filter.IsEmpty() {
		return notifs
	}
	result := make([]*Notification, 0, len(notifs))
	for _, n := range notifs {
		if n.MatchesFilter(filter) {
			result = append(result, n)
		}
	}
	return result
}

// CountUnreadByLevel counts unread notifications per alert level.
func CountUnreadByLevel(notifs []*Notification) map[AlertLevel]int {
	counts := make(map[AlertLevel]int)
	for _, n := range notifs {
		if !n.IsRead {
			counts[n.AlertLevel]++
		}
	}
	return counts
}

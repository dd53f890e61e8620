package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNotifications() []*Notification {
	return []*Notification{
		{ID: 1, CameraID: 1, AlertType: AlertStranger, AlertLevel: LevelCritical},
		{ID: 2, CameraID: 2, AlertType: AlertKnown, AlertLevel: LevelInfo, IsRead: true},
		{ID: 3, CameraID: 1, AlertType: AlertBlacklist, AlertLevel: LevelWarning},
		{ID: 4, CameraID: 3, AlertType: AlertStranger, AlertLevel: LevelInfo},
	}
}

func ids(notifs []*Notification) []int64 {
	out := make([]int64, 0, len(notifs))
	for _, n := range notifs {
		out = append(out, n.ID)
	}
	return out
}

func TestFilter_IsEmpty(t *testing.T) {
	assert.True(t, Filter{}.IsEmpty())
	assert.False(t, Filter{MinLevel: LevelInfo}.IsEmpty())
	assert.False(t, Filter{Type: AlertKnown}.IsEmpty())
	assert.False(t, Filter{CameraID: 2}.IsEmpty())
	assert.False(t, Filter{ReadFilter: ReadFilterRead}.IsEmpty())
}

func TestFilterOptions_ToFilter(t *testing.T) {
	tests := []struct {
		name    string
		opts    FilterOptions
		want    Filter
		wantErr error
	}{
		{"empty", FilterOptions{}, Filter{}, nil},
		{"all fields", FilterOptions{Level: "warning", Type: "known", CameraID: 2, ReadFilter: "unread"},
			Filter{MinLevel: LevelWarning, Type: AlertKnown, CameraID: 2, ReadFilter: ReadFilterUnread}, nil},
		{"bad level", FilterOptions{Level: "loud"}, Filter{}, ErrInvalidAlertLevel},
		{"bad type", FilterOptions{Type: "alien"}, Filter{}, ErrInvalidAlertType},
		{"bad camera", FilterOptions{CameraID: -1}, Filter{}, ErrInvalidCamera},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.ToFilter()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FilterOptions{ReadFilter: "maybe"}.ToFilter()
	assert.Error(t, err)
}

func TestFilterNotifications(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"empty filter keeps all", Filter{}, []int64{1, 2, 3, 4}},
		{"min level warning", Filter{MinLevel: LevelWarning}, []int64{1, 3}},
		{"min level critical", Filter{MinLevel: LevelCritical}, []int64{1}},
		{"type stranger", Filter{Type: AlertStranger}, []int64{1, 4}},
		{"camera 1", Filter{CameraID: 1}, []int64{1, 3}},
		{"read only", Filter{ReadFilter: ReadFilterRead}, []int64{2}},
		{"unread only", Filter{ReadFilter: ReadFilterUnread}, []int64{1, 3, 4}},
		{"combined", Filter{CameraID: 1, MinLevel: LevelCritical}, []int64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterNotifications(sampleNotifications(), tt.filter)))
		})
	}
}

func TestCountUnreadByLevel(t *testing.T) {
	counts := CountUnreadByLevel(sampleNotifications())
	assert.Equal(t, map[AlertLevel]int{LevelCritical: 1, LevelWarning: 1, LevelInfo: 1}, counts)
}

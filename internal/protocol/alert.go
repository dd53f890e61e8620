package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/1063537326/video-warning-0127/internal/domain"
)

// ErrUnknownAlertType is returned for alerts whose alert_type is not recognized.
var ErrUnknownAlertType = errors.New("unknown alert type")

const jpegDataPrefix = "data:image/jpeg;base64,"

// alertPayload is the data of an alert frame. The server is loose about
// numeric and string ids, so the flexible types accept both.
type alertPayload struct {
	ID         flexInt    `json:"id"`
	AlertID    flexInt    `json:"alert_id"`
	CameraID   flexInt    `json:"camera_id"`
	CameraName string     `json:"camera_name"`
	ZoneName   string     `json:"zone_name"`
	AlertType  string     `json:"alert_type"`
	AlertLevel string     `json:"alert_level"`
	PersonID   flexInt    `json:"person_id"`
	PersonName string     `json:"person_name"`
	GroupName  string     `json:"group_name"`
	FaceImage  string     `json:"face_image"`
	BodyImage  string     `json:"body_image"`
	FullImage  string     `json:"full_image"`
	Confidence flexFloat  `json:"confidence"`
	Similarity flexFloat  `json:"similarity"`
	Score      flexFloat  `json:"score"`
	Timestamp  string     `json:"timestamp"`
	TrackID    flexString `json:"track_id"`
}

// AlertDecoder turns alert frames into notifications.
type AlertDecoder struct {
	// Now supplies the fallback time and synthetic ids. Defaults to time.Now.
	Now func() time.Time
	// Location interprets zone-less timestamps. Defaults to time.Local.
	Location *time.Location
}

func (d AlertDecoder) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Decode builds a notification from an alert envelope.
//
// The id falls back from id to alert_id to a locally made up value, confidence
// from confidence to similarity to score, and the event time from the payload
// to the envelope to now.
func (d AlertDecoder) Decode(env Envelope) (*domain.Notification, error) {
	var p alertPayload
	if err := env.decodeData(&p); err != nil {
		return nil, err
	}
	now := d.now()

	n := &domain.Notification{
		CameraName: strings.TrimSpace(p.CameraName),
		ZoneName:   p.ZoneName,
		PersonName: p.PersonName,
		GroupName:  p.GroupName,
		FullImage:  NormalizeImage(p.FullImage),
		TrackID:    strings.TrimSpace(string(p.TrackID)),
	}

	switch {
	case p.ID.Set && p.ID.Value > 0:
		n.ID = p.ID.Value
	case p.AlertID.Set && p.AlertID.Value > 0:
		n.ID = p.AlertID.Value
	default:
		n.ID = now.UnixMilli()
		n.SyntheticID = true
	}

	if p.CameraID.Set {
		n.CameraID = int(p.CameraID.Value)
	}
	if n.CameraName == "" {
		n.CameraName = "Camera " + strconv.Itoa(n.CameraID)
	}

	alertType := strings.ToLower(strings.TrimSpace(p.AlertType))
	if alertType == "" {
		n.AlertType = domain.AlertStranger
	} else if t, err := domain.ParseAlertType(alertType); err == nil {
		n.AlertType = t
	} else {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlertType, p.AlertType)
	}

	// the level is optional; unknown values are left unset
	if lvl, err := domain.ParseAlertLevel(strings.ToLower(strings.TrimSpace(p.AlertLevel))); err == nil {
		n.AlertLevel = lvl
	}

	if p.PersonID.Set {
		id := int(p.PersonID.Value)
		n.PersonID = &id
	}

	switch {
	case p.Confidence.Set:
		n.Confidence = clamp01(p.Confidence.Value)
	case p.Similarity.Set:
		n.Confidence = clamp01(p.Similarity.Value)
	case p.Score.Set:
		n.Confidence = clamp01(p.Score.Value)
	}

	n.Thumbnail = NormalizeImage(p.FaceImage)
	if n.Thumbnail == "" {
		n.Thumbnail = NormalizeImage(p.BodyImage)
	}

	if t, ok := ParseTime(p.Timestamp, d.Location); ok {
		n.CreatedAt = t
	} else if t, ok := ParseTime(env.Timestamp, d.Location); ok {
		n.CreatedAt = t
	} else {
		n.CreatedAt = now
	}

	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return n, nil
}

// NormalizeImage turns a raw base64 image into a data URL. Paths, URLs and
// data URLs are returned unchanged.
func NormalizeImage(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "/"),
		strings.HasPrefix(s, "http://"),
		strings.HasPrefix(s, "https://"),
		strings.HasPrefix(s, "data:"):
		return s
	default:
		return jpegDataPrefix + s
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Package protocol implements the JSON wire format spoken with the alert server.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Message types.
const (
	TypeConnect      = "connect"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeHeartbeat    = "heartbeat"
	TypeAlert        = "alert"
	TypeCameraStatus = "camera_status"
	TypeEngineStatus = "engine_status"
	TypeNotification = "notification"
	TypeError        = "error"
	TypeSubscribe    = "subscribe"
	TypeUnsubscribe  = "unsubscribe"
)

var (
	// ErrMalformedEnvelope is returned when a frame is not a JSON object with a type.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrMalformedPayload is returned when the data of a known type cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
)

// Envelope is one inbound frame.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// DecodeEnvelope parses a raw text frame.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	env.Type = strings.TrimSpace(env.Type)
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	return env, nil
}

// HasData reports whether the envelope carries a non-null payload.
func (e Envelope) HasData() bool {
	d := strings.TrimSpace(string(e.Data))
	return d != "" && d != "null"
}

// decodeData unmarshals the payload into v.
func (e Envelope) decodeData(v any) error {
	if !e.HasData() {
		return fmt.Errorf("%w: %s without data", ErrMalformedPayload, e.Type)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, e.Type, err)
	}
	return nil
}

// Outbound is one frame sent to the server.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// CameraIDs is the payload of subscribe and unsubscribe.
type CameraIDs struct {
	CameraIDs []int `json:"camera_ids"`
}

// Ping is the keep-alive frame.
func Ping() Outbound {
	return Outbound{Type: TypePing}
}

// Subscribe asks the server to route the cameras' events to this client.
func Subscribe(ids []int) Outbound {
	return Outbound{Type: TypeSubscribe, Data: CameraIDs{CameraIDs: ids}}
}

// Unsubscribe stops routing of the cameras' events to this client.
func Unsubscribe(ids []int) Outbound {
	return Outbound{Type: TypeUnsubscribe, Data: CameraIDs{CameraIDs: ids}}
}

// Encode marshals an outbound frame.
func Encode(msg Outbound) ([]byte, error) {
	if msg.Type == "" {
		return nil, fmt.Errorf("encode: %w: missing type", ErrMalformedEnvelope)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	return b, nil
}

// naiveLayout is the server's isoformat() without a zone.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// ParseTime accepts RFC3339 and zone-less ISO timestamps. Zone-less values are
// interpreted in loc.
func ParseTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{naiveLayout, "2006-01-02 15:04:05.999999999"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

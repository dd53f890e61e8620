package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"alert", `{"type":"alert","data":{"id":1},"timestamp":"2025-01-01T00:00:00"}`, "alert", false},
		{"pong without data", `{"type":"pong"}`, "pong", false},
		{"unknown type passes", `{"type":"mystery","data":[]}`, "mystery", false},
		{"not json", `hello`, "", true},
		{"array", `[1,2]`, "", true},
		{"missing type", `{"data":{}}`, "", true},
		{"blank type", `{"type":"  "}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.raw))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedEnvelope)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, env.Type)
		})
	}
}

func TestEnvelopeHasData(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"pong","data":null}`))
	require.NoError(t, err)
	assert.False(t, env.HasData())

	env, err = DecodeEnvelope([]byte(`{"type":"pong","data":{"timestamp":1}}`))
	require.NoError(t, err)
	assert.True(t, env.HasData())
}

func TestEncodeOutbound(t *testing.T) {
	tests := []struct {
		name string
		msg  Outbound
		want string
	}{
		{"ping", Ping(), `{"type":"ping"}`},
		{"subscribe", Subscribe([]int{1, 2}), `{"type":"subscribe","data":{"camera_ids":[1,2]}}`},
		{"unsubscribe", Unsubscribe([]int{3}), `{"type":"unsubscribe","data":{"camera_ids":[3]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}

	_, err := Encode(Outbound{})
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestParseTime(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	tests := []struct {
		name string
		in   string
		want time.Time
		ok   bool
	}{
		{"rfc3339", "2025-03-01T10:00:00Z", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), true},
		{"rfc3339 offset", "2025-03-01T10:00:00+08:00", time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC), true},
		{"naive micro", "2025-03-01T10:00:00.123456", time.Date(2025, 3, 1, 10, 0, 0, 123456000, loc), true},
		{"naive", "2025-03-01T10:00:00", time.Date(2025, 3, 1, 10, 0, 0, 0, loc), true},
		{"space separated", "2025-03-01 10:00:00", time.Date(2025, 3, 1, 10, 0, 0, 0, loc), true},
		{"empty", "", time.Time{}, false},
		{"garbage", "yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTime(tt.in, loc)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			}
		})
	}
}

package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1063537326/video-warning-0127/internal/protocol"
)

type recorder struct {
	connected bool
	sent      []protocol.Outbound
}

func (r *recorder) send(msg protocol.Outbound) bool {
	if !r.connected {
		return false
	}
	r.sent = append(r.sent, msg)
	return true
}

func TestSubscribeMutatesAndSends(t *testing.T) {
	rec := &recorder{connected: true}
	reg := New(rec.send)

	got := reg.Subscribe(3, 1, 3, 0, -2)
	assert.Equal(t, []int{3, 1}, got)
	assert.Equal(t, []int{1, 3}, reg.Members())
	require.Len(t, rec.sent, 1)
	assert.Equal(t, protocol.Subscribe([]int{3, 1}), rec.sent[0])

	got = reg.Unsubscribe(3)
	assert.Equal(t, []int{3}, got)
	assert.Equal(t, []int{1}, reg.Members())
	assert.Equal(t, protocol.Unsubscribe([]int{3}), rec.sent[1])
}

func TestSubscribeWhileDisconnectedStillMutates(t *testing.T) {
	rec := &recorder{}
	reg := New(rec.send)

	reg.Subscribe(5, 6)
	assert.Empty(t, rec.sent)
	assert.True(t, reg.Contains(5))
	assert.Equal(t, 2, reg.Len())
}

func TestEmptyDeltaSendsNothing(t *testing.T) {
	rec := &recorder{connected: true}
	reg := New(rec.send)

	assert.Nil(t, reg.Subscribe())
	assert.Nil(t, reg.Subscribe(0, -1))
	assert.Nil(t, reg.Unsubscribe())
	assert.Nil(t, reg.UnsubscribeAll())
	assert.Empty(t, rec.sent)
}

func TestResyncIsIdempotent(t *testing.T) {
	rec := &recorder{}
	reg := New(rec.send)
	reg.Subscribe(2, 1)

	rec.connected = true
	for i := 0; i < 3; i++ {
		assert.True(t, reg.Resync())
	}
	require.Len(t, rec.sent, 3)
	for _, msg := range rec.sent {
		assert.Equal(t, protocol.Subscribe([]int{1, 2}), msg)
	}
	assert.Equal(t, []int{1, 2}, reg.Members(), "resync never changes the set")
}

func TestResyncEmptySet(t *testing.T) {
	rec := &recorder{connected: true}
	assert.False(t, New(rec.send).Resync())
	assert.Empty(t, rec.sent)
}

func TestUnsubscribeAll(t *testing.T) {
	rec := &recorder{connected: true}
	reg := New(rec.send)
	reg.Subscribe(4, 2, 9)
	rec.sent = nil

	assert.Equal(t, []int{2, 4, 9}, reg.UnsubscribeAll())
	assert.Empty(t, reg.Members())
	assert.Equal(t, []protocol.Outbound{protocol.Unsubscribe([]int{2, 4, 9})}, rec.sent)
}

func TestNilSender(t *testing.T) {
	reg := New(nil)
	reg.Subscribe(1)
	assert.False(t, reg.Resync())
}

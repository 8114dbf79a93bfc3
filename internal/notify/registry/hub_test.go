package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pressroom/internal/notify/metrics"
)

func newTestHub() *Hub {
	// Metrics are nil-safe; tests skip prometheus registration.
	return NewHub(nil)
}

func connect(h *Hub, channels ...string) *Conn {
	c := NewConn(ConnMeta{})
	h.Register(c)
	for _, ch := range channels {
		h.Join(ch, c)
	}
	return c
}

func drainOne(t *testing.T, c *Conn) Frame {
	t.Helper()
	select {
	case f := <-c.Frames():
		return f
	default:
		t.Fatal("expected a delivered frame")
		return Frame{}
	}
}

func TestPublishReachesChannelMembers(t *testing.T) {
	h := newTestHub()
	c := connect(h, UserChannel("rev1"))

	n, err := h.Publish(context.Background(), UserChannel("rev1"), "notification:count", map[string]int{"count": 3})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f := drainOne(t, c)
	assert.Equal(t, "notification:count", f.Event)

	var body map[string]int
	require.NoError(t, json.Unmarshal(f.Data, &body))
	assert.Equal(t, 3, body["count"])
}

func TestChannelIsolation(t *testing.T) {
	h := newTestHub()
	a := connect(h, UserChannel("a"))
	b := connect(h, UserChannel("b"))
	dev := connect(h, DeviceChannel("d1"))

	n, err := h.Publish(context.Background(), UserChannel("a"), "notification:new", map[string]string{"id": "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	drainOne(t, a)
	assert.Empty(t, b.Frames(), "user:b must not observe user:a pushes")
	assert.Empty(t, dev.Frames(), "device channels must not observe user pushes")
}

func TestPublishWithoutSubscribers(t *testing.T) {
	h := newTestHub()
	n, err := h.Publish(context.Background(), UserChannel("ghost"), "notification:new", map[string]string{})
	require.NoError(t, err, "publishing into silence is not an error")
	assert.Zero(t, n)
}

func TestUnregisterLeavesAllChannels(t *testing.T) {
	h := newTestHub()
	c := connect(h, UserChannel("rev1"), DeviceChannel("d1"))
	h.Unregister(c)

	n, err := h.Publish(context.Background(), UserChannel("rev1"), "notification:new", map[string]string{})
	require.NoError(t, err)
	assert.Zero(t, n, "membership must not survive the connection")

	_, ok := h.Lookup(c.ID)
	assert.False(t, ok)

	// Unregister is idempotent; a second call must not panic on the closed
	// frame channel.
	h.Unregister(c)
}

func TestDropOnFullBuffer(t *testing.T) {
	m := metrics.New()
	h := NewHub(m)
	c := connect(h, DeviceChannel("slow"))

	// Fill the buffer without draining, then push one more.
	for i := 0; i < cap(c.frames)+1; i++ {
		_, err := h.Publish(context.Background(), DeviceChannel("slow"), "notification:new", map[string]int{"i": i})
		require.NoError(t, err)
	}

	assert.Len(t, c.frames, cap(c.frames), "overflow frame must be dropped, not block")
}

func TestChannelNaming(t *testing.T) {
	assert.Equal(t, "user:rev1", UserChannel("rev1"))
	assert.Equal(t, "device:abc", DeviceChannel("abc"))
	assert.True(t, IsUserChannel("user:rev1"))
	assert.False(t, IsUserChannel("device:abc"))
	assert.True(t, IsDeviceChannel("device:abc"))
}

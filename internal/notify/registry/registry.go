// Package registry maps identities to live connections. Handlers join a
// connection to channels at connect time; the fan-out publishes to channels
// without knowing which connections, if any, are behind them.
package registry

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Channel scope prefixes. User channels are joined exclusively through
// server-side credential verification; device channels may be self-declared.
const (
	userChannelPrefix   = "user:"
	deviceChannelPrefix = "device:"
)

// UserChannel names the staff/authenticated push channel for a user.
func UserChannel(userID string) string { return userChannelPrefix + userID }

// DeviceChannel names the reader-facing push channel for an anonymous device.
func DeviceChannel(deviceID string) string { return deviceChannelPrefix + deviceID }

// IsUserChannel reports whether the channel name is user-scoped.
func IsUserChannel(channel string) bool {
	return strings.HasPrefix(channel, userChannelPrefix)
}

// IsDeviceChannel reports whether the channel name is device-scoped.
func IsDeviceChannel(channel string) bool {
	return strings.HasPrefix(channel, deviceChannelPrefix)
}

// Frame is one wire message delivered to a subscriber: an event name plus a
// JSON-encoded payload.
type Frame struct {
	Event string
	Data  []byte
}

// ConnMeta is diagnostic metadata captured at connect time.
type ConnMeta struct {
	UserID   string
	DeviceID string
	Browser  string
	OS       string
	ClientIP string
}

// Conn is one live subscriber connection. Frames are delivered through a
// buffered channel; when the buffer is full the frame is dropped, preserving
// at-most-once semantics without blocking publishers.
type Conn struct {
	ID     string
	Meta   ConnMeta
	frames chan Frame
}

// NewConn creates a connection with a modest delivery buffer.
func NewConn(meta ConnMeta) *Conn {
	return &Conn{
		ID:     uuid.NewString(),
		Meta:   meta,
		frames: make(chan Frame, 32),
	}
}

// Frames is the delivery stream the transport drains.
func (c *Conn) Frames() <-chan Frame { return c.frames }

// deliver enqueues a frame, reporting false when the buffer is full.
func (c *Conn) deliver(f Frame) bool {
	select {
	case c.frames <- f:
		return true
	default:
		return false
	}
}

// Registry is the live channel map. Memory-backed by default; the Redis
// implementation broadcasts publishes across process instances behind the
// same interface.
type Registry interface {
	// Register makes the connection addressable for post-connect joins.
	Register(c *Conn)
	// Unregister removes the connection from every channel and closes its
	// frame stream. Membership never survives the connection.
	Unregister(c *Conn)
	// Join subscribes the connection to a channel.
	Join(channel string, c *Conn)
	// Leave unsubscribes the connection from a channel.
	Leave(channel string, c *Conn)
	// Lookup resolves a registered connection by id.
	Lookup(connID string) (*Conn, bool)
	// Publish delivers an event to every connection joined to the channel.
	// Returns the number of local deliveries.
	Publish(ctx context.Context, channel, event string, payload any) (int, error)
}

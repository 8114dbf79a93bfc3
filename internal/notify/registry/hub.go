package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"pressroom/internal/notify/metrics"
)

// Hub is the process-local Registry. Pushes reach only subscribers connected
// to this process instance; multi-instance deployments use the Redis-backed
// registry instead.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Conn]struct{}
	conns    map[string]*Conn
	metrics  *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		channels: make(map[string]map[*Conn]struct{}),
		conns:    make(map[string]*Conn),
		metrics:  m,
	}
}

func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID] = c
	h.metrics.ConnectionOpened()
}

func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c.ID]; !ok {
		return
	}
	delete(h.conns, c.ID)
	for channel, members := range h.channels {
		if _, ok := members[c]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.channels, channel)
			}
		}
	}
	close(c.frames)
	h.metrics.ConnectionClosed()
}

func (h *Hub) Join(channel string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c.ID]; !ok {
		// Joining an unregistered connection would leak channel entries.
		return
	}
	members, ok := h.channels[channel]
	if !ok {
		members = make(map[*Conn]struct{})
		h.channels[channel] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) Leave(channel string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.channels, channel)
	}
}

func (h *Hub) Lookup(connID string) (*Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[connID]
	return c, ok
}

func (h *Hub) Publish(_ context.Context, channel, event string, payload any) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return h.broadcast(channel, Frame{Event: event, Data: data}), nil
}

// broadcast fans one frame out to the channel's local members.
func (h *Hub) broadcast(channel string, frame Frame) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.channels[channel] {
		if c.deliver(frame) {
			delivered++
		} else {
			h.metrics.IncrementDropped()
		}
	}
	return delivered
}

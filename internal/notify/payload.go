package notify

import (
	"strconv"
	"time"

	"pressroom/internal/moderation/models"
)

// Push event names on the live channel.
const (
	EventHello = "hello"
	EventNew   = "notification:new"
	EventCount = "notification:count"
)

// authorTypeSuffix marks pushes addressed to the content author rather than
// the assigned reviewer.
const authorTypeSuffix = ":author"

// Payload is one transient state-change alert. It is never persisted and is
// delivered at most once; clients that miss it recover through the
// authoritative count and updates-list fetches.
type Payload struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	ItemID    string    `json:"itemId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// CountPayload replaces the client's displayed unread count outright. Always
// an absolute value, never a delta, so clients cannot drift.
type CountPayload struct {
	Count int `json:"count"`
}

// NewPayload builds the alert for one accepted transition.
func NewPayload(ev *models.ModerationEvent, action models.Action, now time.Time) Payload {
	return Payload{
		ID:        ev.ID + ":" + strconv.FormatInt(now.UnixMilli(), 10),
		Type:      action.String(),
		ItemID:    ev.ID,
		Title:     ev.Title,
		CreatedAt: now,
	}
}

// ForAuthor returns a copy retyped for the content author.
func (p Payload) ForAuthor() Payload {
	p.Type += authorTypeSuffix
	return p
}

package models

import (
	"time"
)

// Status is the review lifecycle state of a moderation event.
type Status string

const (
	StatusOpen     Status = "open"
	StatusInReview Status = "in_review"
	StatusFlagged  Status = "flagged"
	StatusResolved Status = "resolved"
)

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInReview, StatusFlagged, StatusResolved:
		return true
	}
	return false
}

// Active reports whether the status counts toward a reviewer's unread
// workload (everything except resolved).
func (s Status) Active() bool {
	return s == StatusOpen || s == StatusInReview || s == StatusFlagged
}

// Action is a transition applied to a moderation event. Status changes only
// through one of these.
type Action string

const (
	ActionAssign     Action = "assign"
	ActionRelease    Action = "release"
	ActionFlagSecond Action = "flag_second"
	ActionResolve    Action = "resolve"
	ActionReopen     Action = "reopen"
)

// IsValid checks if the action is one of the five transition actions.
func (a Action) IsValid() bool {
	switch a {
	case ActionAssign, ActionRelease, ActionFlagSecond, ActionResolve, ActionReopen:
		return true
	}
	return false
}

// String returns the string representation.
func (a Action) String() string {
	return string(a)
}

// VisibilityInternal marks events operable by the moderation core. Events
// with any other visibility are treated as not found.
const VisibilityInternal = "internal"

// ModerationEvent is a flagged content-review item tracked independently of
// its underlying content. Ingestion creates it with status=open and
// visibility=internal; it is never hard-deleted by this core.
type ModerationEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"` // origin classification, e.g. "comment_report"
	Status       Status    `json:"status"`
	AssignedTo   *string   `json:"assignedTo"`
	AuthorID     *string   `json:"authorId,omitempty"` // not every event carries an author
	SecondReview bool      `json:"secondReview"`
	Visibility   string    `json:"visibility"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Operable reports whether the core may mutate this event.
func (e *ModerationEvent) Operable() bool {
	return e != nil && e.Visibility == VisibilityInternal
}

// Snapshot captures the transition-relevant fields before or after an action.
func (e *ModerationEvent) Snapshot() Snapshot {
	return Snapshot{
		Status:       e.Status,
		AssignedTo:   e.AssignedTo,
		SecondReview: e.SecondReview,
	}
}

// Clone returns a deep copy so stores can hand out mutation-safe values.
func (e *ModerationEvent) Clone() *ModerationEvent {
	if e == nil {
		return nil
	}
	out := *e
	if e.AssignedTo != nil {
		v := *e.AssignedTo
		out.AssignedTo = &v
	}
	if e.AuthorID != nil {
		v := *e.AuthorID
		out.AuthorID = &v
	}
	return &out
}

// Snapshot is the before/after state pair member recorded in the audit trail.
type Snapshot struct {
	Status       Status  `json:"status"`
	AssignedTo   *string `json:"assignedTo"`
	SecondReview bool    `json:"secondReview"`
}

// Equal reports whether two snapshots describe the same state.
func (s Snapshot) Equal(other Snapshot) bool {
	if s.Status != other.Status || s.SecondReview != other.SecondReview {
		return false
	}
	if (s.AssignedTo == nil) != (other.AssignedTo == nil) {
		return false
	}
	return s.AssignedTo == nil || *s.AssignedTo == *other.AssignedTo
}

// Package engine implements the moderation transition table. It is pure
// state manipulation: no storage, no notification, no authorization.
package engine

import (
	"pressroom/internal/moderation/models"
	dErrors "pressroom/pkg/domain-errors"
)

// Params carries optional action arguments.
type Params struct {
	// Assignee is required for assign.
	Assignee string
	// SecondReview overrides the flag set by flag_second. Nil means the
	// action's default (true).
	SecondReview *bool
}

// Apply validates the action against the transition table and mutates the
// event in place. It returns the before/after snapshot pair for the audit
// trail. The pair is returned even when the action is a no-op for the current
// state (resolve on resolved still succeeds and is recorded).
//
// The table is deliberately permissive: any action is accepted from any prior
// state. Tightening this is an open policy question; the engine should not
// invent one.
func Apply(ev *models.ModerationEvent, action models.Action, p Params) (prev, next models.Snapshot, err error) {
	prev = ev.Snapshot()

	switch action {
	case models.ActionAssign:
		if p.Assignee == "" {
			return prev, prev, dErrors.New(dErrors.CodeMissingParameter, "assign requires an assignee")
		}
		assignee := p.Assignee
		ev.AssignedTo = &assignee
		ev.Status = models.StatusInReview

	case models.ActionRelease:
		ev.AssignedTo = nil
		ev.Status = models.StatusOpen

	case models.ActionFlagSecond:
		flag := true
		if p.SecondReview != nil {
			flag = *p.SecondReview
		}
		ev.SecondReview = flag
		ev.Status = models.StatusFlagged

	case models.ActionResolve:
		ev.Status = models.StatusResolved

	case models.ActionReopen:
		ev.Status = models.StatusOpen
		ev.SecondReview = false

	default:
		return prev, prev, dErrors.New(dErrors.CodeInvalidAction, "unknown action: "+action.String())
	}

	return prev, ev.Snapshot(), nil
}

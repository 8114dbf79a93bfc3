package models

import (
	dErrors "pressroom/pkg/domain-errors"
)

// TransitionRequest is the single-item transition payload.
type TransitionRequest struct {
	Action   string `json:"action"`
	Assignee string `json:"assignee,omitempty"`
	ActorID  string `json:"actorId,omitempty"`
}

// Validate enforces request-shape invariants. Assignee presence for assign is
// checked by the engine so single and bulk paths share one rule.
func (r TransitionRequest) Validate() error {
	if r.Action == "" {
		return dErrors.New(dErrors.CodeBadRequest, "action is required")
	}
	return nil
}

// BulkTransitionRequest applies one action across many target ids.
type BulkTransitionRequest struct {
	IDs          []string `json:"ids"`
	Action       string   `json:"action"`
	Assignee     string   `json:"assignee,omitempty"`
	SecondReview *bool    `json:"secondReview,omitempty"`
	ActorID      string   `json:"actorId,omitempty"`
}

// Validate enforces request-shape invariants.
func (r BulkTransitionRequest) Validate() error {
	if len(r.IDs) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "ids must not be empty")
	}
	if r.Action == "" {
		return dErrors.New(dErrors.CodeBadRequest, "action is required")
	}
	return nil
}

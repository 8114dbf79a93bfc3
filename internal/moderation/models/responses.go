package models

// ItemResult is one entry of the bulk results array. Error carries a
// machine-readable code when OK is false.
type ItemResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Per-item error codes surfaced in bulk results. The combined
// not-found/visibility code deliberately does not reveal whether a hidden
// event exists.
const (
	ItemErrNotFoundOrNotInternal = "not_found_or_not_internal"
	ItemErrInvalidAction         = "invalid_action"
	ItemErrMissingParameter      = "missing_parameter"
	ItemErrPersistenceFailure    = "persistence_failure"
)

// TransitionResponse is the single-item success envelope.
type TransitionResponse struct {
	OK   bool             `json:"ok"`
	Item *ModerationEvent `json:"item"`
}

// BulkTransitionResponse aggregates per-item outcomes. The HTTP status is 200
// even for mixed results; callers must inspect Results.
type BulkTransitionResponse struct {
	OK      bool         `json:"ok"`
	Results []ItemResult `json:"results"`
}

// ListResponse wraps event listings.
type ListResponse struct {
	OK    bool               `json:"ok"`
	Items []*ModerationEvent `json:"items"`
}

// CountResponse is the authoritative unread counter fetch.
type CountResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

package domain

// OperatorContext is the caller-supplied UI state that accompanies every
// action request. It is never stored process-wide.
type OperatorContext struct {
	SelectedTripID int64  `json:"selected_trip_id,omitempty"`
	ServiceDate    string `json:"service_date,omitempty"`
	Page           string `json:"page,omitempty"`
}

// TargetHints is the loosely specified trip reference of a request.
// ID stays untyped until the router normalizes it.
type TargetHints struct {
	ID    any    `json:"id,omitempty"`
	Label string `json:"label,omitempty"`
	Time  string `json:"time,omitempty"`
}

// Empty reports whether no hint was given at all.
func (h TargetHints) Empty() bool {
	if h.Label != "" || h.Time != "" {
		return false
	}
	switch v := h.ID.(type) {
	case nil:
		return true
	case string:
		return v == ""
	}
	return false
}

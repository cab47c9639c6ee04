package models

import (
	"encoding/json"
	"time"
)

type SessionStatus string

const (
	SessionPending   SessionStatus = "PENDING"
	SessionDone      SessionStatus = "DONE"
	SessionExpired   SessionStatus = "EXPIRED"
	SessionCancelled SessionStatus = "CANCELLED"
)

// Consequence is the measured impact of applying an action to a trip.
type Consequence struct {
	TripID            int64              `json:"trip_id"`
	BookingCount      int                `json:"booking_count"`
	SeatsBooked       int                `json:"seats_booked"`
	Capacity          int                `json:"capacity"`
	BookingPercentage float64            `json:"booking_percentage"`
	HasDeployment     bool               `json:"has_deployment"`
	HasBookings       bool               `json:"has_bookings"`
	LiveStatus        TripStatus         `json:"live_status"`
	Deployment        *DeploymentSummary `json:"deployment,omitempty"`
}

// PendingAction carries everything needed to re-execute an action later,
// possibly from another process.
type PendingAction struct {
	Action      ActionName   `json:"action"`
	Params      ActionParams `json:"params"`
	Consequence *Consequence `json:"consequence,omitempty"`
	Summary     string       `json:"summary,omitempty"`
}

type ConfirmationSession struct {
	SessionID     string        `json:"session_id"`
	UserID        int64         `json:"user_id"`
	PendingAction PendingAction `json:"pending_action"`
	Status        SessionStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	// ExecutionResult is the raw stored JSON so repeated confirms return the
	// exact same payload.
	ExecutionResult json.RawMessage `json:"execution_result,omitempty"`
}

// AuditLogEntry is append-only.
type AuditLogEntry struct {
	LogID      int64           `json:"log_id"`
	Action     string          `json:"action"`
	UserID     int64           `json:"user_id"`
	EntityType string          `json:"entity_type"`
	EntityID   int64           `json:"entity_id"`
	Details    json.RawMessage `json:"details"`
	LoggedAt   time.Time       `json:"logged_at"`
}

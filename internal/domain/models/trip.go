package models

import "time"

type TripStatus string

const (
	TripScheduled  TripStatus = "SCHEDULED"
	TripInProgress TripStatus = "IN_PROGRESS"
	TripCompleted  TripStatus = "COMPLETED"
	TripCancelled  TripStatus = "CANCELLED"
)

// Trip is one scheduled service instance. ServiceDate is YYYY-MM-DD and
// ServiceTime is HH:MM.
type Trip struct {
	ID          int64      `json:"id"`
	Label       string     `json:"label"`
	RouteName   string     `json:"route_name,omitempty"`
	ServiceDate string     `json:"service_date"`
	ServiceTime string     `json:"service_time"`
	Status      TripStatus `json:"status"`
	Capacity    int        `json:"capacity"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Closed trips are immutable.
func (t Trip) Closed() bool {
	return t.Status == TripCancelled || t.Status == TripCompleted
}

// TripSummary is the compact form used in candidate lists and results.
type TripSummary struct {
	ID          int64      `json:"id"`
	Label       string     `json:"label"`
	ServiceDate string     `json:"service_date"`
	ServiceTime string     `json:"service_time"`
	Status      TripStatus `json:"status"`
}

func (t Trip) Summary() TripSummary {
	return TripSummary{ID: t.ID, Label: t.Label, ServiceDate: t.ServiceDate, ServiceTime: t.ServiceTime, Status: t.Status}
}

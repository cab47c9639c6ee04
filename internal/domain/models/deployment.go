package models

import "time"

// Deployment binds at most one vehicle and one driver to a trip.
// A row missing either side is orphaned and may be completed later.
type Deployment struct {
	ID         int64     `json:"deployment_id"`
	TripID     int64     `json:"trip_id"`
	VehicleID  *int64    `json:"vehicle_id"`
	DriverID   *int64    `json:"driver_id"`
	DeployedAt time.Time `json:"deployed_at"`
}

func (d Deployment) HasVehicle() bool { return d.VehicleID != nil && *d.VehicleID > 0 }
func (d Deployment) HasDriver() bool  { return d.DriverID != nil && *d.DriverID > 0 }

// Complete is true only when both vehicle and driver are set.
func (d Deployment) Complete() bool { return d.HasVehicle() && d.HasDriver() }

func (d Deployment) Orphaned() bool { return !d.Complete() }

// DeploymentSummary is the before/after snapshot recorded in audits and
// returned to callers.
type DeploymentSummary struct {
	DeploymentID int64  `json:"deployment_id,omitempty"`
	TripID       int64  `json:"trip_id"`
	VehicleID    *int64 `json:"vehicle_id"`
	DriverID     *int64 `json:"driver_id"`
}

func (d *Deployment) Summary() *DeploymentSummary {
	if d == nil {
		return nil
	}
	return &DeploymentSummary{
		DeploymentID: d.ID,
		TripID:       d.TripID,
		VehicleID:    d.VehicleID,
		DriverID:     d.DriverID,
	}
}

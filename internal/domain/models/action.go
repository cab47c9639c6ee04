package models

import (
	"context"
	"strings"
	"time"
)

type ActionName string

const (
	ActionAssignVehicle          ActionName = "assign_vehicle"
	ActionAssignDriver           ActionName = "assign_driver"
	ActionAssignVehicleAndDriver ActionName = "assign_vehicle_and_driver"
	ActionRemoveVehicle          ActionName = "remove_vehicle"
	ActionCancelTrip             ActionName = "cancel_trip"
)

var actionAliases = map[string]ActionName{
	"assign_vehicle":            ActionAssignVehicle,
	"deploy_vehicle":            ActionAssignVehicle,
	"assign_driver":             ActionAssignDriver,
	"deploy_driver":             ActionAssignDriver,
	"assign_vehicle_and_driver": ActionAssignVehicleAndDriver,
	"assign_vehicle_driver":     ActionAssignVehicleAndDriver,
	"deploy":                    ActionAssignVehicleAndDriver,
	"remove_vehicle":            ActionRemoveVehicle,
	"unassign_vehicle":          ActionRemoveVehicle,
	"remove_deployment":         ActionRemoveVehicle,
	"cancel_trip":               ActionCancelTrip,
	"cancel":                    ActionCancelTrip,
}

// ParseActionName canonicalizes an action name coming from the UI or the
// intent parser ("Assign-Vehicle" -> assign_vehicle).
func ParseActionName(raw string) (ActionName, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	name, ok := actionAliases[key]
	return name, ok
}

func (n ActionName) IsAssignment() bool {
	switch n {
	case ActionAssignVehicle, ActionAssignDriver, ActionAssignVehicleAndDriver:
		return true
	}
	return false
}

// RequiredParams lists the parameters (besides trip_id) an action cannot run without.
func (n ActionName) RequiredParams() []string {
	switch n {
	case ActionAssignVehicle:
		return []string{"vehicle_id"}
	case ActionAssignDriver:
		return []string{"driver_id"}
	case ActionAssignVehicleAndDriver:
		return []string{"vehicle_id", "driver_id"}
	}
	return nil
}

// ActionParams is the normalized parameter set. Zero ids mean "not given".
type ActionParams struct {
	TripID         int64 `json:"trip_id"`
	VehicleID      int64 `json:"vehicle_id,omitempty"`
	DriverID       int64 `json:"driver_id,omitempty"`
	CancelBookings bool  `json:"cancel_bookings,omitempty"`
}

// Missing returns the required parameters of name absent from p.
func (p ActionParams) Missing(name ActionName) []string {
	missing := []string{}
	if p.TripID <= 0 {
		missing = append(missing, "trip_id")
	}
	for _, field := range name.RequiredParams() {
		switch field {
		case "vehicle_id":
			if p.VehicleID <= 0 {
				missing = append(missing, field)
			}
		case "driver_id":
			if p.DriverID <= 0 {
				missing = append(missing, field)
			}
		}
	}
	return missing
}

// Action is the closed set of mutations the executor knows how to apply.
// Adding a variant means adding an ActionVisitor method, so every executor
// has to handle it before the code compiles.
type Action interface {
	Name() ActionName
	Params() ActionParams
	Accept(ctx context.Context, v ActionVisitor) (ExecutionResult, error)
}

type ActionVisitor interface {
	AssignVehicle(ctx context.Context, a AssignVehicle) (ExecutionResult, error)
	AssignDriver(ctx context.Context, a AssignDriver) (ExecutionResult, error)
	AssignVehicleAndDriver(ctx context.Context, a AssignVehicleAndDriver) (ExecutionResult, error)
	RemoveVehicle(ctx context.Context, a RemoveVehicle) (ExecutionResult, error)
	CancelTrip(ctx context.Context, a CancelTrip) (ExecutionResult, error)
}

// AssignVehicle deploys a vehicle and, optionally, a driver.
type AssignVehicle struct {
	TripID    int64
	VehicleID int64
	DriverID  int64
}

func (a AssignVehicle) Name() ActionName { return ActionAssignVehicle }
func (a AssignVehicle) Params() ActionParams {
	return ActionParams{TripID: a.TripID, VehicleID: a.VehicleID, DriverID: a.DriverID}
}
func (a AssignVehicle) Accept(ctx context.Context, v ActionVisitor) (ExecutionResult, error) {
	return v.AssignVehicle(ctx, a)
}

type AssignDriver struct {
	TripID   int64
	DriverID int64
}

func (a AssignDriver) Name() ActionName { return ActionAssignDriver }
func (a AssignDriver) Params() ActionParams {
	return ActionParams{TripID: a.TripID, DriverID: a.DriverID}
}
func (a AssignDriver) Accept(ctx context.Context, v ActionVisitor) (ExecutionResult, error) {
	return v.AssignDriver(ctx, a)
}

type AssignVehicleAndDriver struct {
	TripID    int64
	VehicleID int64
	DriverID  int64
}

func (a AssignVehicleAndDriver) Name() ActionName { return ActionAssignVehicleAndDriver }
func (a AssignVehicleAndDriver) Params() ActionParams {
	return ActionParams{TripID: a.TripID, VehicleID: a.VehicleID, DriverID: a.DriverID}
}
func (a AssignVehicleAndDriver) Accept(ctx context.Context, v ActionVisitor) (ExecutionResult, error) {
	return v.AssignVehicleAndDriver(ctx, a)
}

type RemoveVehicle struct {
	TripID         int64
	CancelBookings bool
}

func (a RemoveVehicle) Name() ActionName { return ActionRemoveVehicle }
func (a RemoveVehicle) Params() ActionParams {
	return ActionParams{TripID: a.TripID, CancelBookings: a.CancelBookings}
}
func (a RemoveVehicle) Accept(ctx context.Context, v ActionVisitor) (ExecutionResult, error) {
	return v.RemoveVehicle(ctx, a)
}

type CancelTrip struct {
	TripID int64
}

func (a CancelTrip) Name() ActionName     { return ActionCancelTrip }
func (a CancelTrip) Params() ActionParams { return ActionParams{TripID: a.TripID} }
func (a CancelTrip) Accept(ctx context.Context, v ActionVisitor) (ExecutionResult, error) {
	return v.CancelTrip(ctx, a)
}

// NewAction builds the variant for name from normalized params. It returns
// ok=false for an unknown name; callers check Missing before building.
func NewAction(name ActionName, p ActionParams) (Action, bool) {
	switch name {
	case ActionAssignVehicle:
		return AssignVehicle{TripID: p.TripID, VehicleID: p.VehicleID, DriverID: p.DriverID}, true
	case ActionAssignDriver:
		return AssignDriver{TripID: p.TripID, DriverID: p.DriverID}, true
	case ActionAssignVehicleAndDriver:
		return AssignVehicleAndDriver{TripID: p.TripID, VehicleID: p.VehicleID, DriverID: p.DriverID}, true
	case ActionRemoveVehicle:
		return RemoveVehicle{TripID: p.TripID, CancelBookings: p.CancelBookings}, true
	case ActionCancelTrip:
		return CancelTrip{TripID: p.TripID}, true
	}
	return nil, false
}

// Destructive actions may discard bookings and are gated behind
// confirmation when bookings exist.
func Destructive(a Action) bool {
	switch v := a.(type) {
	case RemoveVehicle:
		return v.CancelBookings
	case CancelTrip:
		return true
	}
	return false
}

// ExecutionResult is what a committed action reports back. It is also the
// execution_result stored on a confirmation session.
type ExecutionResult struct {
	Action            ActionName         `json:"action"`
	TripID            int64              `json:"trip_id"`
	TripStatus        TripStatus         `json:"trip_status,omitempty"`
	Deployment        *DeploymentSummary `json:"deployment,omitempty"`
	Previous          *DeploymentSummary `json:"previous_deployment,omitempty"`
	BookingsCancelled int                `json:"bookings_cancelled"`
	AlreadyCancelled  bool               `json:"already_cancelled,omitempty"`
	Message           string             `json:"message"`
	ExecutedAt        time.Time          `json:"executed_at"`
}

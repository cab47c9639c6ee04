package services

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"dispatch/internal/domain"
	"dispatch/internal/domain/models"
)

func resolved(id int64, status models.TripStatus) *Resolution {
	return &Resolution{Status: ResolveResolved, Confidence: 1, Trip: &models.Trip{ID: id, Status: status}}
}

func ptr(v int64) *int64 { return &v }

func TestRoute(t *testing.T) {
	complete := &models.DeploymentSummary{TripID: 5, VehicleID: ptr(2), DriverID: ptr(5)}
	orphan := &models.DeploymentSummary{TripID: 40, DriverID: ptr(6)}

	tests := []struct {
		name string
		in   DecisionInput
		want Decision
	}{
		{
			name: "unknown action",
			in:   DecisionInput{RawAction: "teleport"},
			want: Decision{State: StateNeedsClarification, Kind: domain.KindInvalidParameter, Reason: `unknown action "teleport"`},
		},
		{
			name: "no resolution",
			in:   DecisionInput{RawAction: "cancel_trip"},
			want: Decision{State: StateNeedsTarget, Name: models.ActionCancelTrip, Kind: domain.KindTargetNotFound, Reason: "no trip selected"},
		},
		{
			name: "ambiguous target",
			in:   DecisionInput{RawAction: "cancel_trip", Resolution: &Resolution{Status: ResolveAmbiguous, Reason: "2 trips match"}},
			want: Decision{State: StateNeedsClarification, Name: models.ActionCancelTrip, Kind: domain.KindTargetAmbiguous, Reason: "2 trips match"},
		},
		{
			name: "needs context",
			in:   DecisionInput{RawAction: "cancel_trip", Resolution: &Resolution{Status: ResolveNeedsContext, Reason: "select a trip"}},
			want: Decision{State: StateNeedsTarget, Name: models.ActionCancelTrip, Kind: domain.KindTargetNotFound, Reason: "select a trip"},
		},
		{
			name: "missing vehicle",
			in: DecisionInput{
				RawAction:   "assign_vehicle",
				Resolution:  resolved(8, models.TripScheduled),
				Consequence: &models.Consequence{TripID: 8, LiveStatus: models.TripScheduled},
			},
			want: Decision{
				State: StateNeedsClarification, Name: models.ActionAssignVehicle,
				Params: models.ActionParams{TripID: 8}, Kind: domain.KindMissingParameter,
				Reason: "missing vehicle_id", Missing: []string{"vehicle_id"},
			},
		},
		{
			name: "invalid parameter",
			in: DecisionInput{
				RawAction:  "remove_vehicle",
				Resolution: resolved(5, models.TripScheduled),
				ParamErr:   domain.ValidationError{Field: "cancel_bookings", Msg: "invalid value maybe"},
			},
			want: Decision{
				State: StateNeedsClarification, Name: models.ActionRemoveVehicle,
				Params: models.ActionParams{TripID: 5}, Kind: domain.KindInvalidParameter,
				Reason: "cancel_bookings: invalid value maybe",
			},
		},
		{
			name: "trip vanished between resolve and evaluate",
			in: DecisionInput{
				RawAction:  "cancel_trip",
				Resolution: resolved(9, models.TripScheduled),
				EvalErr:    domain.NewActionError(domain.KindTripNotFound, "trip 9 not found"),
			},
			want: Decision{
				State: StateNeedsTarget, Name: models.ActionCancelTrip,
				Params: models.ActionParams{TripID: 9}, Kind: domain.KindTripNotFound, Reason: "trip 9 not found",
			},
		},
		{
			name: "store failure while evaluating",
			in: DecisionInput{
				RawAction:  "cancel_trip",
				Resolution: resolved(9, models.TripScheduled),
				EvalErr:    errors.New("boom"),
			},
			want: Decision{
				State: StateFailed, Name: models.ActionCancelTrip,
				Params: models.ActionParams{TripID: 9}, Kind: domain.KindInternal, Reason: "boom",
			},
		},
		{
			name: "complete deployment blocks assignment",
			in: DecisionInput{
				RawAction:   "assign_driver",
				Resolution:  resolved(5, models.TripScheduled),
				Params:      models.ActionParams{DriverID: 6},
				Consequence: &models.Consequence{TripID: 5, HasDeployment: true, LiveStatus: models.TripScheduled, Deployment: complete},
			},
			want: Decision{
				State: StateBlocked, Name: models.ActionAssignDriver,
				Params: models.ActionParams{TripID: 5, DriverID: 6}, Kind: domain.KindAlreadyDeployed,
				Reason: "trip 5 already has a vehicle and driver",
			},
		},
		{
			name: "orphan deployment does not block",
			in: DecisionInput{
				RawAction:   "assign_vehicle",
				Resolution:  resolved(40, models.TripScheduled),
				Params:      models.ActionParams{VehicleID: 2},
				Consequence: &models.Consequence{TripID: 40, HasDeployment: true, LiveStatus: models.TripScheduled, Deployment: orphan},
			},
			want: Decision{State: StateExecute, Name: models.ActionAssignVehicle, Params: models.ActionParams{TripID: 40, VehicleID: 2}},
		},
		{
			name: "assignment with bookings executes immediately",
			in: DecisionInput{
				RawAction:   "assign_vehicle_and_driver",
				Resolution:  resolved(8, models.TripScheduled),
				Params:      models.ActionParams{VehicleID: 2, DriverID: 6},
				Consequence: &models.Consequence{TripID: 8, BookingCount: 12, HasBookings: true, LiveStatus: models.TripScheduled},
			},
			want: Decision{State: StateExecute, Name: models.ActionAssignVehicleAndDriver, Params: models.ActionParams{TripID: 8, VehicleID: 2, DriverID: 6}},
		},
		{
			name: "remove without deployment",
			in: DecisionInput{
				RawAction:   "remove_vehicle",
				Resolution:  resolved(8, models.TripScheduled),
				Consequence: &models.Consequence{TripID: 8, LiveStatus: models.TripScheduled},
			},
			want: Decision{
				State: StateBlocked, Name: models.ActionRemoveVehicle, Params: models.ActionParams{TripID: 8},
				Kind: domain.KindNoDeployment, Reason: "trip 8 has no deployment",
			},
		},
		{
			name: "destructive with bookings needs confirmation",
			in: DecisionInput{
				RawAction:   "remove_vehicle",
				Resolution:  resolved(5, models.TripScheduled),
				Params:      models.ActionParams{CancelBookings: true},
				Consequence: &models.Consequence{TripID: 5, BookingCount: 12, SeatsBooked: 12, HasBookings: true, HasDeployment: true, LiveStatus: models.TripScheduled, Deployment: complete},
			},
			want: Decision{
				State: StateNeedsConfirmation, Name: models.ActionRemoveVehicle,
				Params: models.ActionParams{TripID: 5, CancelBookings: true},
				Reason: "12 confirmed bookings (12 seats) will be cancelled",
			},
		},
		{
			name: "remove keeping bookings executes",
			in: DecisionInput{
				RawAction:   "remove_vehicle",
				Resolution:  resolved(5, models.TripScheduled),
				Consequence: &models.Consequence{TripID: 5, BookingCount: 12, HasBookings: true, HasDeployment: true, LiveStatus: models.TripScheduled, Deployment: complete},
			},
			want: Decision{State: StateExecute, Name: models.ActionRemoveVehicle, Params: models.ActionParams{TripID: 5}},
		},
		{
			name: "completed trip is closed",
			in: DecisionInput{
				RawAction:   "cancel_trip",
				Resolution:  resolved(42, models.TripCompleted),
				Consequence: &models.Consequence{TripID: 42, LiveStatus: models.TripCompleted},
			},
			want: Decision{
				State: StateBlocked, Name: models.ActionCancelTrip, Params: models.ActionParams{TripID: 42},
				Kind: domain.KindTripClosed, Reason: "trip 42 is completed",
			},
		},
		{
			name: "re-cancel passes through",
			in: DecisionInput{
				RawAction:   "cancel_trip",
				Resolution:  resolved(41, models.TripCancelled),
				Consequence: &models.Consequence{TripID: 41, BookingCount: 2, LiveStatus: models.TripCancelled},
			},
			want: Decision{State: StateExecute, Name: models.ActionCancelTrip, Params: models.ActionParams{TripID: 41}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Route(tt.in)
			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreFields(Decision{}, "Action")); diff != "" {
				t.Fatalf("Route() mismatch (-want +got):\n%s", diff)
			}
			if got.State == StateExecute || got.State == StateNeedsConfirmation {
				if got.Action == nil || got.Action.Name() != got.Name {
					t.Fatalf("Route() action = %v, want variant for %s", got.Action, got.Name)
				}
			}
		})
	}
}

func TestRouteIsDeterministic(t *testing.T) {
	in := DecisionInput{
		RawAction:   "Cancel-Trip",
		Resolution:  resolved(5, models.TripScheduled),
		Consequence: &models.Consequence{TripID: 5, BookingCount: 1, LiveStatus: models.TripScheduled},
	}
	first := Route(in)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, Route(in)); diff != "" {
			t.Fatalf("Route() changed between calls:\n%s", diff)
		}
	}
	if first.State != StateNeedsConfirmation {
		t.Fatalf("state = %s, want %s", first.State, StateNeedsConfirmation)
	}
}

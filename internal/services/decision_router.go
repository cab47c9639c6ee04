package services

import (
	"fmt"
	"strings"

	"dispatch/internal/domain"
	"dispatch/internal/domain/models"
)

type DecisionState string

const (
	StateNeedsTarget        DecisionState = "NEEDS_TARGET"
	StateNeedsClarification DecisionState = "NEEDS_CLARIFICATION"
	StateBlocked            DecisionState = "BLOCKED"
	StateNeedsConfirmation  DecisionState = "NEEDS_CONFIRMATION"
	StateExecute            DecisionState = "EXECUTE"
	StateFailed             DecisionState = "FAILED"
)

// DecisionInput is everything the router looks at. ParamErr and EvalErr
// carry failures from the steps that produced Params and Consequence.
type DecisionInput struct {
	RawAction   string
	Resolution  *Resolution
	Params      models.ActionParams
	ParamErr    error
	Consequence *models.Consequence
	EvalErr     error
}

type Decision struct {
	State   DecisionState       `json:"state"`
	Action  models.Action       `json:"-"`
	Name    models.ActionName   `json:"action,omitempty"`
	Params  models.ActionParams `json:"params"`
	Kind    domain.ErrorKind    `json:"error,omitempty"`
	Reason  string              `json:"reason,omitempty"`
	Missing []string            `json:"missing,omitempty"`
}

// Route is a pure function of its input.
func Route(in DecisionInput) Decision {
	name, ok := models.ParseActionName(in.RawAction)
	if !ok {
		return Decision{
			State:  StateNeedsClarification,
			Kind:   domain.KindInvalidParameter,
			Reason: unknownActionReason(in.RawAction),
		}
	}
	d := Decision{Name: name, Params: in.Params}

	res := in.Resolution
	if res == nil {
		d.State, d.Kind, d.Reason = StateNeedsTarget, domain.KindTargetNotFound, "no trip selected"
		return d
	}
	switch res.Status {
	case ResolveResolved:
	case ResolveAmbiguous:
		d.State, d.Kind, d.Reason = StateNeedsClarification, domain.KindTargetAmbiguous, res.Reason
		return d
	default:
		d.State, d.Kind, d.Reason = StateNeedsTarget, domain.KindTargetNotFound, res.Reason
		return d
	}
	if res.Trip != nil {
		d.Params.TripID = res.Trip.ID
	}

	if in.ParamErr != nil {
		kind := domain.KindOf(in.ParamErr)
		if !domain.IsClarification(in.ParamErr) {
			d.State, d.Kind, d.Reason = StateFailed, kind, in.ParamErr.Error()
			return d
		}
		d.State, d.Kind, d.Reason = StateNeedsClarification, kind, in.ParamErr.Error()
		return d
	}

	if missing := d.Params.Missing(name); len(missing) > 0 {
		d.State, d.Kind, d.Missing = StateNeedsClarification, domain.KindMissingParameter, missing
		d.Reason = "missing " + strings.Join(missing, ", ")
		return d
	}

	if in.EvalErr != nil {
		if domain.KindOf(in.EvalErr) == domain.KindTripNotFound {
			d.State, d.Kind, d.Reason = StateNeedsTarget, domain.KindTripNotFound, in.EvalErr.Error()
			return d
		}
		d.State, d.Kind, d.Reason = StateFailed, domain.KindOf(in.EvalErr), in.EvalErr.Error()
		return d
	}
	c := in.Consequence
	if c == nil {
		d.State, d.Kind, d.Reason = StateFailed, domain.KindInternal, "consequence not evaluated"
		return d
	}

	action, _ := models.NewAction(name, d.Params)
	d.Action = action

	if c.LiveStatus == models.TripCancelled || c.LiveStatus == models.TripCompleted {
		// re-cancel goes through so the executor can report it as a no-op
		if name == models.ActionCancelTrip && c.LiveStatus == models.TripCancelled {
			d.State = StateExecute
			return d
		}
		d.State, d.Kind = StateBlocked, domain.KindTripClosed
		d.Reason = fmt.Sprintf("trip %d is %s", d.Params.TripID, strings.ToLower(string(c.LiveStatus)))
		return d
	}

	if name.IsAssignment() && completeDeployment(c.Deployment) {
		d.State, d.Kind = StateBlocked, domain.KindAlreadyDeployed
		d.Reason = fmt.Sprintf("trip %d already has a vehicle and driver", d.Params.TripID)
		return d
	}
	if name == models.ActionRemoveVehicle && !c.HasDeployment {
		d.State, d.Kind = StateBlocked, domain.KindNoDeployment
		d.Reason = fmt.Sprintf("trip %d has no deployment", d.Params.TripID)
		return d
	}

	if NeedsConfirmation(action, *c) {
		d.State = StateNeedsConfirmation
		d.Reason = fmt.Sprintf("%d confirmed bookings (%d seats) will be cancelled", c.BookingCount, c.SeatsBooked)
		return d
	}
	d.State = StateExecute
	return d
}

// completeDeployment compares vehicle/driver presence, not row existence.
func completeDeployment(s *models.DeploymentSummary) bool {
	if s == nil {
		return false
	}
	return models.Deployment{VehicleID: s.VehicleID, DriverID: s.DriverID}.Complete()
}

func unknownActionReason(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "action is required"
	}
	return fmt.Sprintf("unknown action %q", raw)
}

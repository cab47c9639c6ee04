package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain"
	"dispatch/internal/domain/models"
	"dispatch/internal/metrics"
	"dispatch/internal/utils"
)

type ResponseStatus string

const (
	StatusExecuted           ResponseStatus = "EXECUTED"
	StatusNeedsClarification ResponseStatus = "NEEDS_CLARIFICATION"
	StatusNeedsConfirmation  ResponseStatus = "NEEDS_CONFIRMATION"
	StatusBlocked            ResponseStatus = "BLOCKED"
	StatusFailed             ResponseStatus = "FAILED"

	StatusCancelled   ResponseStatus = "CANCELLED"
	StatusAlreadyDone ResponseStatus = "ALREADY_DONE"
)

// ActionRequest is a structured operator command. Parameters stay loosely
// typed until NormalizeParams.
type ActionRequest struct {
	Action      string                 `json:"action"`
	TargetHints domain.TargetHints     `json:"target_hints"`
	Parameters  RawParams              `json:"parameters"`
	Context     domain.OperatorContext `json:"context"`
	Confidence  float64                `json:"confidence,omitempty"`
	UserID      int64                  `json:"-"`
}

// NextSteps lists what the operator can do instead.
type NextSteps struct {
	AvailableVehicles []models.Vehicle `json:"available_vehicles,omitempty"`
	AvailableDrivers  []models.Driver  `json:"available_drivers,omitempty"`
	Hint              string           `json:"hint,omitempty"`
}

type ActionResponse struct {
	OK           bool                 `json:"ok"`
	Status       ResponseStatus       `json:"status"`
	Decision     DecisionState        `json:"decision,omitempty"`
	Action       models.ActionName    `json:"action,omitempty"`
	Params       *models.ActionParams `json:"params,omitempty"`
	SessionID    string               `json:"session_id,omitempty"`
	Result       json.RawMessage      `json:"result,omitempty"`
	Consequences *models.Consequence  `json:"consequences,omitempty"`
	Candidates   []Candidate          `json:"candidates,omitempty"`
	Suggestions  []string             `json:"suggestions,omitempty"`
	Missing      []string             `json:"missing,omitempty"`
	Error        domain.ErrorKind     `json:"error,omitempty"`
	Message      string               `json:"message,omitempty"`
	Conflict     *domain.ConflictTrip `json:"conflict,omitempty"`
	NextSteps    *NextSteps           `json:"next_steps,omitempty"`
	Trip         *models.TripSummary  `json:"trip,omitempty"`
}

type ConfirmResponse struct {
	OK        bool            `json:"ok"`
	Status    ResponseStatus  `json:"status"`
	SessionID string          `json:"session_id"`
	Result    json.RawMessage `json:"result,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// ActionService runs the request pipeline: resolve the target, normalize
// parameters, evaluate consequences, route, then execute or open a
// confirmation session.
type ActionService struct {
	DB                  *intdb.DB
	ConflictWindow      time.Duration
	ConfidenceThreshold float64
	SessionTTL          time.Duration
	EventsTopic         string
	ParseTimeout        time.Duration
	Metrics             *metrics.Metrics
	Now                 func() time.Time
	RequestID           string
}

func (s ActionService) availability() AvailabilityService {
	return AvailabilityService{Window: s.ConflictWindow}
}

func (s ActionService) resolver() TargetResolver {
	return TargetResolver{DB: s.DB, Threshold: s.ConfidenceThreshold, Now: s.Now}
}

func (s ActionService) Executor() ActionExecutor {
	return ActionExecutor{
		DB:           s.DB,
		Availability: s.availability(),
		EventsTopic:  s.EventsTopic,
		Metrics:      s.Metrics,
		Now:          s.Now,
		RequestID:    s.RequestID,
	}
}

func (s ActionService) Sessions() ConfirmationService {
	return ConfirmationService{DB: s.DB, TTL: s.SessionTTL, Metrics: s.Metrics, Now: s.Now, RequestID: s.RequestID}
}

// Request handles one action request. Every outcome, including failures,
// comes back as a response; nothing store-level leaks to the caller.
func (s ActionService) Request(ctx context.Context, req ActionRequest) ActionResponse {
	decision, res, consequence, err := s.decide(ctx, req)
	s.Metrics.ObserveDecision(string(decision.State))
	if err != nil {
		utils.LogError(s.RequestID, "actions", req.Action, err)
		return failed(decision, err)
	}

	resp := ActionResponse{
		Decision:     decision.State,
		Action:       decision.Name,
		Consequences: consequence,
		Missing:      decision.Missing,
	}
	if decision.Name != "" {
		p := decision.Params
		resp.Params = &p
	}
	if res != nil {
		resp.Candidates = res.Candidates
		resp.Suggestions = res.Suggestions
		if res.Trip != nil {
			sum := res.Trip.Summary()
			resp.Trip = &sum
		}
	}

	switch decision.State {
	case StateNeedsTarget, StateNeedsClarification:
		resp.OK = true
		resp.Status = StatusNeedsClarification
		resp.Error = decision.Kind
		resp.Message = decision.Reason
		if decision.State == StateNeedsTarget && res != nil && res.Status == ResolveNotFound {
			resp.NextSteps = &NextSteps{Hint: "create a new trip or pick one from the schedule"}
		}
		if decision.State == StateNeedsTarget && (res == nil || res.Status == ResolveNeedsContext) {
			resp.NextSteps = &NextSteps{Hint: "select a trip first"}
		}
		if decision.Kind == domain.KindMissingParameter && res != nil && res.Trip != nil {
			resp.NextSteps = s.nextSteps(ctx, *res.Trip, "")
		}
		return resp

	case StateBlocked:
		resp.Status = StatusBlocked
		resp.Error = decision.Kind
		resp.Message = decision.Reason
		if res != nil && res.Trip != nil {
			resp.NextSteps = s.nextSteps(ctx, *res.Trip, decision.Kind)
		}
		return resp

	case StateFailed:
		resp.Status = StatusFailed
		resp.Error = decision.Kind
		resp.Message = decision.Reason
		return resp

	case StateNeedsConfirmation:
		pending := models.PendingAction{
			Action:      decision.Name,
			Params:      decision.Params,
			Consequence: consequence,
			Summary:     decision.Reason,
		}
		id, err := s.Sessions().Create(ctx, req.UserID, pending)
		if err != nil {
			utils.LogError(s.RequestID, "actions", req.Action, err)
			return failed(decision, err)
		}
		resp.OK = true
		resp.Status = StatusNeedsConfirmation
		resp.SessionID = id
		resp.Message = decision.Reason
		return resp
	}

	result, err := s.Executor().Apply(ctx, req.UserID, decision.Action)
	if err != nil {
		return s.rejected(ctx, resp, res, err)
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return failed(decision, err)
	}
	resp.OK = true
	resp.Status = StatusExecuted
	resp.Result = raw
	resp.Message = result.Message
	return resp
}

// decide resolves, normalizes, evaluates and routes. The error return is
// reserved for store failures; everything else is expressed in Decision.
func (s ActionService) decide(ctx context.Context, req ActionRequest) (Decision, *Resolution, *models.Consequence, error) {
	name, known := models.ParseActionName(req.Action)
	if !known {
		return Route(DecisionInput{RawAction: req.Action}), nil, nil, nil
	}

	params, paramErr := NormalizeParams(req.Parameters)
	hints := req.TargetHints
	if hints.Empty() {
		switch {
		case params.TripID > 0:
			hints.ID = params.TripID
		case params.TripRef != nil:
			hints.ID = params.TripRef
		}
	}

	res, err := s.resolver().Resolve(ctx, ResolveInput{
		Action:     name,
		Hints:      hints,
		Context:    req.Context,
		Confidence: req.Confidence,
	})
	if err != nil {
		return Decision{State: StateFailed, Name: name, Kind: storeKind(err), Reason: "could not look up the trip"}, nil, nil, err
	}

	in := DecisionInput{RawAction: req.Action, Resolution: &res, ParamErr: paramErr}
	if res.Status != ResolveResolved || res.Trip == nil {
		return Route(in), &res, nil, nil
	}

	if paramErr == nil {
		paramErr = s.resolveRefs(ctx, &params)
		if paramErr != nil && !domain.IsClarification(paramErr) {
			return Decision{State: StateFailed, Name: name, Kind: storeKind(paramErr), Reason: "could not look up resources"}, &res, nil, paramErr
		}
	}
	in.ParamErr = paramErr
	in.Params = params.ActionParams
	in.Params.TripID = res.Trip.ID

	_, consequence, evalErr := ConsequenceService{}.Assess(ctx, s.DB, res.Trip.ID)
	if evalErr != nil && domain.KindOf(evalErr) != domain.KindTripNotFound {
		return Decision{State: StateFailed, Name: name, Kind: storeKind(evalErr), Reason: "could not evaluate consequences"}, &res, nil, evalErr
	}
	in.EvalErr = evalErr
	if evalErr == nil {
		in.Consequence = &consequence
	}
	return Route(in), &res, in.Consequence, nil
}

// resolveRefs turns vehicle codes and driver names into ids.
func (s ActionService) resolveRefs(ctx context.Context, p *NormalizedParams) error {
	r := s.resolver()
	if p.VehicleID == 0 && p.VehicleRef != "" {
		v, err := r.ResolveVehicle(ctx, p.VehicleRef)
		if err != nil {
			return err
		}
		p.VehicleID = v.ID
	}
	if p.DriverID == 0 && p.DriverRef != "" {
		d, err := r.ResolveDriver(ctx, p.DriverRef)
		if err != nil {
			return err
		}
		p.DriverID = d.ID
	}
	return nil
}

// rejected turns an executor error into a response. Business rules become
// BLOCKED with next steps; anything else is FAILED.
func (s ActionService) rejected(ctx context.Context, resp ActionResponse, res *Resolution, err error) ActionResponse {
	kind := domain.KindOf(err)
	resp.Error = kind
	resp.Message = err.Error()

	var ae *domain.ActionError
	if errors.As(err, &ae) {
		resp.Conflict = ae.Conflict
	}

	switch {
	case domain.IsBusinessRule(err):
		resp.Status = StatusBlocked
		if res != nil && res.Trip != nil {
			resp.NextSteps = s.nextSteps(ctx, *res.Trip, kind)
		}
	case domain.IsClarification(err):
		resp.OK = true
		resp.Status = StatusNeedsClarification
	default:
		utils.LogError(s.RequestID, "actions", string(resp.Action), err)
		resp.Status = StatusFailed
		if kind == domain.KindInternal {
			resp.Message = "internal error"
		}
	}
	return resp
}

// nextSteps lists resources free in the trip's window. Lookup errors only
// drop the list.
func (s ActionService) nextSteps(ctx context.Context, trip models.Trip, kind domain.ErrorKind) *NextSteps {
	steps := &NextSteps{}
	switch kind {
	case domain.KindTripClosed:
		steps.Hint = "the trip is closed; pick another trip"
		return steps
	case domain.KindAlreadyDeployed:
		steps.Hint = "remove the current deployment first"
	case domain.KindNoDeployment:
		steps.Hint = "assign a vehicle first"
	}
	avail := s.availability()
	if vehicles, err := avail.ListAvailableVehicles(ctx, s.DB, trip.ServiceDate, trip.ServiceTime, trip.ID); err == nil {
		steps.AvailableVehicles = vehicles
	} else {
		utils.LogError(s.RequestID, "actions", "next_steps", err)
	}
	if drivers, err := avail.ListAvailableDrivers(ctx, s.DB, trip.ServiceDate, trip.ServiceTime, trip.ID); err == nil {
		steps.AvailableDrivers = drivers
	} else {
		utils.LogError(s.RequestID, "actions", "next_steps", err)
	}
	if steps.Hint == "" && len(steps.AvailableVehicles) == 0 && len(steps.AvailableDrivers) == 0 {
		steps.Hint = "no vehicle or driver is free in this time window"
	}
	return steps
}

// Confirm resolves a confirmation session. approve=false cancels it.
func (s ActionService) Confirm(ctx context.Context, sessionID string, approve bool) (ConfirmResponse, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ConfirmResponse{}, domain.NewActionError(domain.KindMissingParameter, "session_id is required")
	}
	sessions := s.Sessions()

	if !approve {
		if _, err := sessions.Cancel(ctx, sessionID); err != nil {
			return ConfirmResponse{}, err
		}
		return ConfirmResponse{OK: true, Status: StatusCancelled, SessionID: sessionID, Message: "action discarded"}, nil
	}

	exec := s.Executor()
	var out CompleteOutcome
	err := exec.retryTransient(ctx, "confirm", func() error {
		var err error
		out, err = sessions.Complete(ctx, sessionID, func(ctx context.Context, tx *intdb.Tx, sess models.ConfirmationSession) (models.ExecutionResult, error) {
			action, ok := models.NewAction(sess.PendingAction.Action, sess.PendingAction.Params)
			if !ok {
				return models.ExecutionResult{}, domain.NewActionError(domain.KindInvalidParameter, "unknown pending action %q", sess.PendingAction.Action)
			}
			// the audit actor is the operator who requested the action
			return exec.ApplyTx(ctx, tx, sess.UserID, action)
		})
		return err
	})
	if err != nil {
		return ConfirmResponse{}, err
	}

	status := StatusExecuted
	if out.AlreadyDone {
		status = StatusAlreadyDone
	}
	utils.LogEvent(s.RequestID, "actions", "confirm", "session resolved",
		zap.String("session_id", sessionID), zap.String("status", string(status)))
	return ConfirmResponse{OK: true, Status: status, SessionID: sessionID, Result: out.Result}, nil
}

// Preview evaluates the consequence of action on a trip without routing.
func (s ActionService) Preview(ctx context.Context, tripID int64, action string) (models.Consequence, bool, error) {
	c, err := ConsequenceService{}.Evaluate(ctx, s.DB, tripID)
	if err != nil {
		return c, false, err
	}
	name, ok := models.ParseActionName(action)
	if !ok {
		return c, false, nil
	}
	a, _ := models.NewAction(name, models.ActionParams{TripID: tripID, CancelBookings: true})
	return c, NeedsConfirmation(a, c), nil
}

// Session returns a stored session, flagging stale PENDING ones as expired.
func (s ActionService) Session(ctx context.Context, sessionID string) (models.ConfirmationSession, error) {
	sessions := s.Sessions()
	sess, err := sessions.Load(ctx, sessionID)
	if err != nil {
		return sess, err
	}
	if sessions.Stale(sess) {
		sess.Status = models.SessionExpired
	}
	return sess, nil
}

func failed(d Decision, err error) ActionResponse {
	kind := storeKind(err)
	msg := "internal error"
	if kind == domain.KindTransientStore {
		msg = "store unavailable, try again"
	}
	return ActionResponse{
		Status:   StatusFailed,
		Decision: StateFailed,
		Action:   d.Name,
		Error:    kind,
		Message:  msg,
	}
}

func storeKind(err error) domain.ErrorKind {
	if intdb.IsTransient(err) {
		return domain.KindTransientStore
	}
	var ae *domain.ActionError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return domain.KindInternal
}

// String renders a decision for logs.
func (d Decision) String() string {
	return fmt.Sprintf("%s %s trip=%d", d.State, d.Name, d.Params.TripID)
}

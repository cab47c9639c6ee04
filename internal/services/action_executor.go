package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain"
	"dispatch/internal/domain/models"
	"dispatch/internal/metrics"
	"dispatch/internal/repositories"
	"dispatch/internal/utils"
)

const auditEntityTrip = "trip"

// ActionExecutor is the only writer of trips, deployments and bookings. Each
// action runs as one transaction that re-reads the rows it depends on with
// locking reads, in the order trip, deployment, vehicle, driver.
type ActionExecutor struct {
	DB           *intdb.DB
	Availability AvailabilityService
	EventsTopic  string
	Metrics      *metrics.Metrics
	Now          func() time.Time
	RequestID    string
}

func (e ActionExecutor) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return utils.NowUTC()
}

// Apply runs the action in its own transaction. A transient store error is
// retried once; every action re-checks state before writing, so a retry
// after an unknown outcome cannot apply twice.
func (e ActionExecutor) Apply(ctx context.Context, userID int64, a models.Action) (models.ExecutionResult, error) {
	var result models.ExecutionResult
	err := e.retryTransient(ctx, string(a.Name()), func() error {
		return e.DB.WithTx(ctx, func(tx *intdb.Tx) error {
			r, err := e.ApplyTx(ctx, tx, userID, a)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	return result, err
}

// ApplyTx runs the action on an open transaction. The caller commits.
func (e ActionExecutor) ApplyTx(ctx context.Context, tx *intdb.Tx, userID int64, a models.Action) (models.ExecutionResult, error) {
	started := time.Now()
	x := &txExecutor{e: e, q: tx, userID: userID, now: e.now()}
	result, err := a.Accept(ctx, x)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = string(domain.KindOf(err))
	case result.AlreadyCancelled:
		outcome = "noop"
	}
	e.Metrics.ObserveExecution(string(a.Name()), outcome, started)
	if err != nil {
		return result, err
	}
	utils.LogEvent(e.RequestID, "executor", string(a.Name()), "applied",
		zap.Int64("trip_id", result.TripID), zap.Int64("user_id", userID), zap.Int("bookings_cancelled", result.BookingsCancelled))
	return result, nil
}

// retryTransient runs fn and, on a transient store error, once more.
// The second failure is reported as TransientStoreError.
func (e ActionExecutor) retryTransient(ctx context.Context, action string, fn func() error) error {
	err := fn()
	if err == nil || !intdb.IsTransient(err) {
		return err
	}
	e.Metrics.ObserveRetry()
	utils.LogEvent(e.RequestID, "executor", action, "retrying after transient store error", zap.Error(err))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &domain.ActionError{Kind: domain.KindTransientStore, Msg: "store unavailable", Err: err}
	}
	err = fn()
	if err != nil && intdb.IsTransient(err) {
		return &domain.ActionError{Kind: domain.KindTransientStore, Msg: "store unavailable, try again", Err: err}
	}
	return err
}

// txExecutor applies one action on one transaction; it implements
// models.ActionVisitor.
type txExecutor struct {
	e      ActionExecutor
	q      intdb.Querier
	userID int64
	now    time.Time
}

func (x *txExecutor) AssignVehicle(ctx context.Context, a models.AssignVehicle) (models.ExecutionResult, error) {
	return x.assign(ctx, a.Name(), a.TripID, a.VehicleID, a.DriverID)
}

func (x *txExecutor) AssignDriver(ctx context.Context, a models.AssignDriver) (models.ExecutionResult, error) {
	return x.assign(ctx, a.Name(), a.TripID, 0, a.DriverID)
}

func (x *txExecutor) AssignVehicleAndDriver(ctx context.Context, a models.AssignVehicleAndDriver) (models.ExecutionResult, error) {
	return x.assign(ctx, a.Name(), a.TripID, a.VehicleID, a.DriverID)
}

// lockTrip loads the trip with a row lock and rejects closed trips.
func (x *txExecutor) lockTrip(ctx context.Context, tripID int64) (models.Trip, error) {
	trip, err := repositories.TripRepository{DB: x.q}.GetForUpdate(ctx, tripID)
	if repositories.IsNoRows(err) {
		return trip, domain.NewActionError(domain.KindTripNotFound, "trip %d not found", tripID)
	}
	return trip, err
}

// assign creates or completes the deployment. Zero vehicleID/driverID keep
// what the deployment already has.
func (x *txExecutor) assign(ctx context.Context, name models.ActionName, tripID, vehicleID, driverID int64) (models.ExecutionResult, error) {
	trip, err := x.lockTrip(ctx, tripID)
	if err != nil {
		return models.ExecutionResult{}, err
	}
	if trip.Closed() {
		return models.ExecutionResult{}, domain.NewActionError(domain.KindTripClosed, "trip %d is %s", tripID, trip.Status)
	}

	deployments := repositories.DeploymentRepository{DB: x.q}
	before, err := deployments.GetByTrip(ctx, tripID, true)
	if err != nil {
		return models.ExecutionResult{}, err
	}
	if before != nil && before.Complete() {
		return models.ExecutionResult{}, domain.NewActionError(domain.KindAlreadyDeployed,
			"trip %d already has a vehicle and driver", tripID)
	}

	if vehicleID > 0 {
		if err := x.checkVehicle(ctx, trip, vehicleID); err != nil {
			return models.ExecutionResult{}, err
		}
	}
	if driverID > 0 {
		if err := x.checkDriver(ctx, trip, driverID); err != nil {
			return models.ExecutionResult{}, err
		}
	}

	finalVehicle, finalDriver := vehicleID, driverID
	if before != nil {
		if finalVehicle == 0 && before.HasVehicle() {
			finalVehicle = *before.VehicleID
		}
		if finalDriver == 0 && before.HasDriver() {
			finalDriver = *before.DriverID
		}
		err = deployments.Update(ctx, before.ID, finalVehicle, finalDriver, x.now)
	} else {
		err = deployments.Insert(ctx, tripID, finalVehicle, finalDriver, x.now)
	}
	if err != nil {
		return models.ExecutionResult{}, err
	}

	after, err := deployments.GetByTrip(ctx, tripID, false)
	if err != nil {
		return models.ExecutionResult{}, err
	}

	result := models.ExecutionResult{
		Action:     name,
		TripID:     tripID,
		TripStatus: trip.Status,
		Deployment: after.Summary(),
		Previous:   before.Summary(),
		Message:    assignMessage(trip, after),
		ExecutedAt: x.now,
	}
	details := map[string]any{
		"before":     before.Summary(),
		"after":      after.Summary(),
		"vehicle_id": vehicleID,
		"driver_id":  driverID,
	}
	return result, x.record(ctx, result, details)
}

func (x *txExecutor) checkVehicle(ctx context.Context, trip models.Trip, vehicleID int64) error {
	v, err := repositories.VehicleRepository{DB: x.q}.GetForUpdate(ctx, vehicleID)
	if repositories.IsNoRows(err) {
		return domain.NewActionError(domain.KindTargetNotFound, "vehicle %d not found", vehicleID)
	}
	if err != nil {
		return err
	}
	if models.OutOfService(v.Status) {
		e := domain.ResourceUnavailable(string(models.ResourceVehicle), vehicleID, nil)
		e.Msg = fmt.Sprintf("vehicle %d is %s", vehicleID, v.Status)
		return e
	}
	conflict, err := x.e.Availability.FindConflict(ctx, x.q, models.ResourceVehicle, vehicleID, trip.ServiceDate, trip.ServiceTime, trip.ID, true)
	if err != nil {
		return err
	}
	if conflict != nil {
		return domain.ResourceUnavailable(string(models.ResourceVehicle), vehicleID, conflict)
	}
	return nil
}

func (x *txExecutor) checkDriver(ctx context.Context, trip models.Trip, driverID int64) error {
	d, err := repositories.DriverRepository{DB: x.q}.GetForUpdate(ctx, driverID)
	if repositories.IsNoRows(err) {
		return domain.NewActionError(domain.KindTargetNotFound, "driver %d not found", driverID)
	}
	if err != nil {
		return err
	}
	if models.OutOfService(d.Status) {
		e := domain.ResourceUnavailable(string(models.ResourceDriver), driverID, nil)
		e.Msg = fmt.Sprintf("driver %d is %s", driverID, d.Status)
		return e
	}
	conflict, err := x.e.Availability.FindConflict(ctx, x.q, models.ResourceDriver, driverID, trip.ServiceDate, trip.ServiceTime, trip.ID, true)
	if err != nil {
		return err
	}
	if conflict != nil {
		return domain.ResourceUnavailable(string(models.ResourceDriver), driverID, conflict)
	}
	return nil
}

func (x *txExecutor) RemoveVehicle(ctx context.Context, a models.RemoveVehicle) (models.ExecutionResult, error) {
	trip, err := x.lockTrip(ctx, a.TripID)
	if err != nil {
		return models.ExecutionResult{}, err
	}
	if trip.Closed() {
		return models.ExecutionResult{}, domain.NewActionError(domain.KindTripClosed, "trip %d is %s", a.TripID, trip.Status)
	}

	deployments := repositories.DeploymentRepository{DB: x.q}
	before, err := deployments.GetByTrip(ctx, a.TripID, true)
	if err != nil {
		return models.ExecutionResult{}, err
	}
	if before == nil {
		return models.ExecutionResult{}, domain.NewActionError(domain.KindNoDeployment, "trip %d has no deployment", a.TripID)
	}
	if err := deployments.Delete(ctx, before.ID); err != nil {
		return models.ExecutionResult{}, err
	}

	cancelled := 0
	if a.CancelBookings {
		if cancelled, err = (repositories.BookingRepository{DB: x.q}).CancelConfirmed(ctx, a.TripID, x.now); err != nil {
			return models.ExecutionResult{}, err
		}
	}

	result := models.ExecutionResult{
		Action:            a.Name(),
		TripID:            a.TripID,
		TripStatus:        trip.Status,
		Previous:          before.Summary(),
		BookingsCancelled: cancelled,
		Message:           fmt.Sprintf("deployment removed from trip %d, %d bookings cancelled", a.TripID, cancelled),
		ExecutedAt:        x.now,
	}
	details := map[string]any{
		"before":             before.Summary(),
		"after":              nil,
		"cancel_bookings":    a.CancelBookings,
		"bookings_cancelled": cancelled,
	}
	return result, x.record(ctx, result, details)
}

// CancelTrip keeps the deployment as a historical record. Cancelling an
// already cancelled trip changes nothing and writes no audit entry.
func (x *txExecutor) CancelTrip(ctx context.Context, a models.CancelTrip) (models.ExecutionResult, error) {
	trip, err := x.lockTrip(ctx, a.TripID)
	if err != nil {
		return models.ExecutionResult{}, err
	}
	deployment, err := repositories.DeploymentRepository{DB: x.q}.GetByTrip(ctx, a.TripID, true)
	if err != nil {
		return models.ExecutionResult{}, err
	}

	switch trip.Status {
	case models.TripCancelled:
		return models.ExecutionResult{
			Action:           a.Name(),
			TripID:           a.TripID,
			TripStatus:       trip.Status,
			Deployment:       deployment.Summary(),
			AlreadyCancelled: true,
			Message:          fmt.Sprintf("trip %d is already cancelled", a.TripID),
			ExecutedAt:       x.now,
		}, nil
	case models.TripCompleted:
		return models.ExecutionResult{}, domain.NewActionError(domain.KindTripClosed, "trip %d is completed", a.TripID)
	}

	if err := (repositories.TripRepository{DB: x.q}).UpdateStatus(ctx, a.TripID, models.TripCancelled, x.now); err != nil {
		return models.ExecutionResult{}, err
	}
	cancelled, err := repositories.BookingRepository{DB: x.q}.CancelConfirmed(ctx, a.TripID, x.now)
	if err != nil {
		return models.ExecutionResult{}, err
	}

	result := models.ExecutionResult{
		Action:            a.Name(),
		TripID:            a.TripID,
		TripStatus:        models.TripCancelled,
		Deployment:        deployment.Summary(),
		BookingsCancelled: cancelled,
		Message:           fmt.Sprintf("trip %d cancelled, %d bookings cancelled", a.TripID, cancelled),
		ExecutedAt:        x.now,
	}
	details := map[string]any{
		"status_before":      trip.Status,
		"status_after":       models.TripCancelled,
		"deployment":         deployment.Summary(),
		"bookings_cancelled": cancelled,
	}
	return result, x.record(ctx, result, details)
}

// ActionEvent is the payload published for every executed action.
type ActionEvent struct {
	EventID    string                 `json:"event_id"`
	Action     models.ActionName      `json:"action"`
	TripID     int64                  `json:"trip_id"`
	UserID     int64                  `json:"user_id"`
	Result     models.ExecutionResult `json:"result"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// record appends the audit entry and the outbox event inside the action's
// transaction.
func (x *txExecutor) record(ctx context.Context, result models.ExecutionResult, details map[string]any) error {
	if _, err := (repositories.AuditRepository{DB: x.q}).Append(ctx, string(result.Action), x.userID, auditEntityTrip, result.TripID, details, x.now); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	if x.e.EventsTopic == "" {
		return nil
	}
	payload, err := json.Marshal(ActionEvent{
		EventID:    uuid.NewString(),
		Action:     result.Action,
		TripID:     result.TripID,
		UserID:     x.userID,
		Result:     result,
		OccurredAt: x.now,
	})
	if err != nil {
		return err
	}
	return repositories.OutboxRepository{DB: x.q}.Enqueue(ctx, x.e.EventsTopic, strconv.FormatInt(result.TripID, 10), payload, x.now)
}

func assignMessage(trip models.Trip, d *models.Deployment) string {
	if d == nil {
		return fmt.Sprintf("trip %d deployment updated", trip.ID)
	}
	switch {
	case d.Complete():
		return fmt.Sprintf("vehicle %d and driver %d deployed to %s (%s %s)", *d.VehicleID, *d.DriverID, trip.Label, trip.ServiceDate, trip.ServiceTime)
	case d.HasVehicle():
		return fmt.Sprintf("vehicle %d deployed to %s, driver still needed", *d.VehicleID, trip.Label)
	case d.HasDriver():
		return fmt.Sprintf("driver %d deployed to %s, vehicle still needed", *d.DriverID, trip.Label)
	}
	return fmt.Sprintf("trip %d deployment updated", trip.ID)
}

package services

import (
	"context"
	"fmt"
	"time"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain"
	"dispatch/internal/domain/models"
	"dispatch/internal/repositories"
	"dispatch/internal/utils"
)

const DefaultConflictWindow = 90 * time.Minute

// AvailabilityService answers whether a vehicle or driver is free around a
// trip's time. Availability comes from deployments, not from the status
// flag: two trips on the same date conflict when their times are less than
// Window apart.
//
// Every method takes the Querier to run on; the executor passes its own
// transaction so the check sees exactly what it is about to commit against.
type AvailabilityService struct {
	Window time.Duration
}

func (s AvailabilityService) window() time.Duration {
	if s.Window > 0 {
		return s.Window
	}
	return DefaultConflictWindow
}

// Overlaps reports whether two times of day on the same date are within the
// conflict window of each other.
func (s AvailabilityService) Overlaps(a, b string) (bool, error) {
	am, err := utils.ParseClock(a)
	if err != nil {
		return false, err
	}
	bm, err := utils.ParseClock(b)
	if err != nil {
		return false, err
	}
	delta := am - bm
	if delta < 0 {
		delta = -delta
	}
	return time.Duration(delta)*time.Minute < s.window(), nil
}

// FindConflict returns the first live trip on date holding the resource
// inside the window, or nil. lock=true makes it a locking read.
func (s AvailabilityService) FindConflict(ctx context.Context, q intdb.Querier, kind models.ResourceKind, resourceID int64, date, clock string, excludeTripID int64, lock bool) (*domain.ConflictTrip, error) {
	trips, err := repositories.DeploymentRepository{DB: q}.ListResourceTrips(ctx, kind, resourceID, date, excludeTripID, lock)
	if err != nil {
		return nil, err
	}
	for _, t := range trips {
		hit, err := s.Overlaps(clock, t.ServiceTime)
		if err != nil {
			return nil, fmt.Errorf("trip %d: %w", t.TripID, err)
		}
		if hit {
			c := t
			return &c, nil
		}
	}
	return nil, nil
}

func (s AvailabilityService) IsAvailable(ctx context.Context, q intdb.Querier, kind models.ResourceKind, resourceID int64, date, clock string, excludeTripID int64) (bool, error) {
	c, err := s.FindConflict(ctx, q, kind, resourceID, date, clock, excludeTripID, false)
	return c == nil, err
}

// ListAvailableVehicles returns vehicles that are in service and have no
// deployment inside the window.
func (s AvailabilityService) ListAvailableVehicles(ctx context.Context, q intdb.Querier, date, clock string, excludeTripID int64) ([]models.Vehicle, error) {
	busy, err := repositories.DeploymentRepository{DB: q}.ListBusyOnDate(ctx, models.ResourceVehicle, date, excludeTripID)
	if err != nil {
		return nil, err
	}
	all, err := repositories.VehicleRepository{DB: q}.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Vehicle{}
	for _, v := range all {
		if models.OutOfService(v.Status) || s.anyOverlap(clock, busy[v.ID]) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s AvailabilityService) ListAvailableDrivers(ctx context.Context, q intdb.Querier, date, clock string, excludeTripID int64) ([]models.Driver, error) {
	busy, err := repositories.DeploymentRepository{DB: q}.ListBusyOnDate(ctx, models.ResourceDriver, date, excludeTripID)
	if err != nil {
		return nil, err
	}
	all, err := repositories.DriverRepository{DB: q}.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Driver{}
	for _, d := range all {
		if models.OutOfService(d.Status) || s.anyOverlap(clock, busy[d.ID]) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// anyOverlap treats unparseable stored times as conflicting.
func (s AvailabilityService) anyOverlap(clock string, trips []domain.ConflictTrip) bool {
	for _, t := range trips {
		hit, err := s.Overlaps(clock, t.ServiceTime)
		if err != nil || hit {
			return true
		}
	}
	return false
}

package services

import (
	"context"

	"github.com/shopspring/decimal"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain"
	"dispatch/internal/domain/models"
	"dispatch/internal/repositories"
)

// ConsequenceService measures what an action would do to a trip. It never
// writes.
type ConsequenceService struct{}

// Assess returns the snapshot together with the consequence derived from it.
// Both come from a single statement.
func (ConsequenceService) Assess(ctx context.Context, q intdb.Querier, tripID int64) (repositories.TripSnapshot, models.Consequence, error) {
	snap, err := repositories.TripRepository{DB: q}.Snapshot(ctx, tripID)
	if repositories.IsNoRows(err) {
		return snap, models.Consequence{}, domain.NewActionError(domain.KindTripNotFound, "trip %d not found", tripID)
	}
	if err != nil {
		return snap, models.Consequence{}, err
	}
	return snap, ConsequenceFromSnapshot(snap), nil
}

func (s ConsequenceService) Evaluate(ctx context.Context, q intdb.Querier, tripID int64) (models.Consequence, error) {
	_, c, err := s.Assess(ctx, q, tripID)
	return c, err
}

func ConsequenceFromSnapshot(snap repositories.TripSnapshot) models.Consequence {
	return models.Consequence{
		TripID:            snap.Trip.ID,
		BookingCount:      snap.BookingCount,
		SeatsBooked:       snap.SeatsBooked,
		Capacity:          snap.Trip.Capacity,
		BookingPercentage: BookingPercentage(snap.SeatsBooked, snap.Trip.Capacity),
		HasDeployment:     snap.Deployment != nil,
		HasBookings:       snap.BookingCount > 0,
		LiveStatus:        snap.Trip.Status,
		Deployment:        snap.Deployment.Summary(),
	}
}

// BookingPercentage is seats over capacity, rounded to one decimal.
// Zero capacity reports 0.
func BookingPercentage(seats, capacity int) float64 {
	if capacity <= 0 || seats <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(seats)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(capacity))).
		Round(1)
	f, _ := pct.Float64()
	return f
}

// NeedsConfirmation: destructive actions with at least one confirmed
// booking. Assignments never need confirmation, whatever the bookings.
func NeedsConfirmation(a models.Action, c models.Consequence) bool {
	return models.Destructive(a) && c.BookingCount > 0
}

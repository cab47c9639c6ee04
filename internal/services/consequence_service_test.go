package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/domain"
	"dispatch/internal/domain/models"
)

func TestBookingPercentage(t *testing.T) {
	cases := []struct {
		seats, capacity int
		want            float64
	}{
		{12, 14, 85.7},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{14, 14, 100},
		{0, 14, 0},
		{5, 0, 0},
	}
	for _, c := range cases {
		if got := BookingPercentage(c.seats, c.capacity); got != c.want {
			t.Fatalf("BookingPercentage(%d, %d) = %v, want %v", c.seats, c.capacity, got, c.want)
		}
	}
}

func TestNeedsConfirmation(t *testing.T) {
	booked := models.Consequence{BookingCount: 3}
	empty := models.Consequence{}

	cases := []struct {
		name   string
		action models.Action
		c      models.Consequence
		want   bool
	}{
		{"cancel with bookings", models.CancelTrip{TripID: 1}, booked, true},
		{"cancel without bookings", models.CancelTrip{TripID: 1}, empty, false},
		{"remove cancelling bookings", models.RemoveVehicle{TripID: 1, CancelBookings: true}, booked, true},
		{"remove keeping bookings", models.RemoveVehicle{TripID: 1}, booked, false},
		{"assign with bookings", models.AssignVehicleAndDriver{TripID: 1, VehicleID: 1, DriverID: 1}, booked, false},
	}
	for _, c := range cases {
		if got := NeedsConfirmation(c.action, c.c); got != c.want {
			t.Fatalf("%s: NeedsConfirmation = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestAssessReadsSnapshot(t *testing.T) {
	db := newTestDB(t)
	seedDispatch(t, db)
	ctx := context.Background()

	_, c, err := ConsequenceService{}.Assess(ctx, db, 5)
	require.NoError(t, err)
	assert.Equal(t, 12, c.BookingCount)
	assert.Equal(t, 12, c.SeatsBooked)
	assert.Equal(t, 14, c.Capacity)
	assert.Equal(t, 85.7, c.BookingPercentage)
	assert.True(t, c.HasBookings)
	assert.True(t, c.HasDeployment)
	assert.Equal(t, models.TripScheduled, c.LiveStatus)
	require.NotNil(t, c.Deployment)
	assert.Equal(t, int64(2), *c.Deployment.VehicleID)

	c, err = ConsequenceService{}.Evaluate(ctx, db, 8)
	require.NoError(t, err)
	assert.False(t, c.HasDeployment)
	assert.False(t, c.HasBookings)
	assert.Nil(t, c.Deployment)

	_, err = ConsequenceService{}.Evaluate(ctx, db, 404)
	assert.Equal(t, domain.KindTripNotFound, domain.KindOf(err))
}

package repositories

import (
	"context"
	"time"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain/models"
)

type BookingRepository struct {
	DB intdb.Querier
}

// CancelConfirmed moves every CONFIRMED booking of the trip to CANCELLED and
// returns how many rows changed. Bookings are never deleted.
func (r BookingRepository) CancelConfirmed(ctx context.Context, tripID int64, now time.Time) (int, error) {
	res, err := r.DB.ExecContext(ctx, r.DB.Q(`UPDATE bookings SET status=?, updated_at=? WHERE trip_id=? AND status=?`),
		string(models.BookingCancelled), intdb.Timestamp(now), tripID, string(models.BookingConfirmed))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// CountConfirmed returns the number of CONFIRMED bookings and their seats.
func (r BookingRepository) CountConfirmed(ctx context.Context, tripID int64) (count int, seats int, err error) {
	err = r.DB.QueryRowContext(ctx, r.DB.Q(`SELECT COUNT(*), COALESCE(SUM(seats),0) FROM bookings WHERE trip_id=? AND status=?`),
		tripID, string(models.BookingConfirmed)).Scan(&count, &seats)
	return count, seats, err
}

func (r BookingRepository) Create(ctx context.Context, b models.Booking, now time.Time) (int64, error) {
	if b.Status == "" {
		b.Status = models.BookingConfirmed
	}
	if b.Seats <= 0 {
		b.Seats = 1
	}
	return intdb.InsertID(ctx, r.DB, `INSERT INTO bookings (trip_id, passenger_name, seats, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`, "id",
		b.TripID, b.PassengerName, b.Seats, string(b.Status), intdb.Timestamp(now), intdb.Timestamp(now))
}

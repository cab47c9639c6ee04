package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain/models"
)

// TripRepository reads and updates trips. Mutations are only called from the
// action executor's transaction.
type TripRepository struct {
	DB intdb.Querier
}

const tripColumns = `id, label, route_name, service_date, service_time, status, capacity, created_at, updated_at`

func scanTrip(row interface{ Scan(...any) error }) (models.Trip, error) {
	var (
		t                  models.Trip
		status             string
		createdAt, updated any
	)
	if err := row.Scan(&t.ID, &t.Label, &t.RouteName, &t.ServiceDate, &t.ServiceTime, &status, &t.Capacity, &createdAt, &updated); err != nil {
		return t, err
	}
	t.Status = models.TripStatus(strings.ToUpper(strings.TrimSpace(status)))
	t.CreatedAt = intdb.ParseTime(createdAt)
	t.UpdatedAt = intdb.ParseTime(updated)
	return t, nil
}

// GetByID returns sql.ErrNoRows when the trip does not exist.
func (r TripRepository) GetByID(ctx context.Context, id int64) (models.Trip, error) {
	return scanTrip(r.DB.QueryRowContext(ctx, r.DB.Q(`SELECT `+tripColumns+` FROM trips WHERE id=?`), id))
}

// GetForUpdate locks the trip row for the rest of the transaction.
func (r TripRepository) GetForUpdate(ctx context.Context, id int64) (models.Trip, error) {
	return scanTrip(r.DB.QueryRowContext(ctx, r.DB.Q(`SELECT `+tripColumns+` FROM trips WHERE id=?`+r.DB.ForUpdate()), id))
}

// TripQuery scopes candidate searches for the target resolver.
type TripQuery struct {
	ServiceDate string // exact date
	FromDate    string // used when ServiceDate is empty
	// LabelLike keeps trips whose lowercased label contains these words in
	// order. It only narrows; callers still match labels themselves.
	LabelLike string
	Limit     int
}

func (r TripRepository) List(ctx context.Context, q TripQuery) ([]models.Trip, error) {
	where := []string{"1=1"}
	args := []any{}
	switch {
	case strings.TrimSpace(q.ServiceDate) != "":
		where = append(where, "service_date=?")
		args = append(args, strings.TrimSpace(q.ServiceDate))
	case strings.TrimSpace(q.FromDate) != "":
		where = append(where, "service_date>=?")
		args = append(args, strings.TrimSpace(q.FromDate))
	}
	if words := strings.Fields(strings.ToLower(q.LabelLike)); len(words) > 0 {
		where = append(where, "LOWER(label) LIKE ?")
		args = append(args, "%"+strings.Join(words, "%")+"%")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, r.DB.Q(`SELECT `+tripColumns+` FROM trips WHERE `+strings.Join(where, " AND ")+
		` ORDER BY service_date ASC, service_time ASC, id ASC LIMIT ?`), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r TripRepository) UpdateStatus(ctx context.Context, id int64, status models.TripStatus, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Q(`UPDATE trips SET status=?, updated_at=? WHERE id=?`), string(status), intdb.Timestamp(now), id)
	return err
}

func (r TripRepository) Create(ctx context.Context, t models.Trip, now time.Time) (int64, error) {
	if t.Status == "" {
		t.Status = models.TripScheduled
	}
	return intdb.InsertID(ctx, r.DB, `INSERT INTO trips (label, route_name, service_date, service_time, status, capacity, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, "id",
		t.Label, t.RouteName, t.ServiceDate, t.ServiceTime, string(t.Status), t.Capacity, intdb.Timestamp(now), intdb.Timestamp(now))
}

// TripSnapshot is the consequence input read in a single statement.
type TripSnapshot struct {
	Trip         models.Trip
	BookingCount int
	SeatsBooked  int
	Deployment   *models.Deployment
}

// Snapshot reads the trip, its confirmed booking aggregates and its
// deployment in one statement so all values come from the same point in time.
func (r TripRepository) Snapshot(ctx context.Context, tripID int64) (TripSnapshot, error) {
	query := `SELECT t.id, t.label, t.route_name, t.service_date, t.service_time, t.status, t.capacity, t.created_at, t.updated_at,
		(SELECT COUNT(*) FROM bookings b WHERE b.trip_id=t.id AND b.status='CONFIRMED'),
		(SELECT COALESCE(SUM(b.seats),0) FROM bookings b WHERE b.trip_id=t.id AND b.status='CONFIRMED'),
		d.deployment_id, d.vehicle_id, d.driver_id, d.deployed_at
	FROM trips t
	LEFT JOIN deployments d ON d.trip_id=t.id
	WHERE t.id=?`

	var (
		snap               TripSnapshot
		status             string
		createdAt, updated any
		depID              sql.NullInt64
		vehicleID          sql.NullInt64
		driverID           sql.NullInt64
		deployedAt         any
	)
	err := r.DB.QueryRowContext(ctx, r.DB.Q(query), tripID).Scan(
		&snap.Trip.ID, &snap.Trip.Label, &snap.Trip.RouteName, &snap.Trip.ServiceDate, &snap.Trip.ServiceTime,
		&status, &snap.Trip.Capacity, &createdAt, &updated,
		&snap.BookingCount, &snap.SeatsBooked,
		&depID, &vehicleID, &driverID, &deployedAt,
	)
	if err != nil {
		return snap, err
	}
	snap.Trip.Status = models.TripStatus(strings.ToUpper(strings.TrimSpace(status)))
	snap.Trip.CreatedAt = intdb.ParseTime(createdAt)
	snap.Trip.UpdatedAt = intdb.ParseTime(updated)
	if depID.Valid {
		snap.Deployment = &models.Deployment{
			ID:         depID.Int64,
			TripID:     tripID,
			VehicleID:  nullableID(vehicleID),
			DriverID:   nullableID(driverID),
			DeployedAt: intdb.ParseTime(deployedAt),
		}
	}
	return snap, nil
}

// IsNoRows reports a missing row.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid || v.Int64 <= 0 {
		return nil
	}
	id := v.Int64
	return &id
}

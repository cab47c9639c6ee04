package repositories

import (
	"context"
	"database/sql"
	"time"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain"
	"dispatch/internal/domain/models"
)

type DeploymentRepository struct {
	DB intdb.Querier
}

// GetByTrip returns nil when the trip has no deployment row. lock=true takes
// a row lock (no-op on SQLite).
func (r DeploymentRepository) GetByTrip(ctx context.Context, tripID int64, lock bool) (*models.Deployment, error) {
	query := `SELECT deployment_id, trip_id, vehicle_id, driver_id, deployed_at FROM deployments WHERE trip_id=?`
	if lock {
		query += r.DB.ForUpdate()
	}
	var (
		d          models.Deployment
		vehicleID  sql.NullInt64
		driverID   sql.NullInt64
		deployedAt any
	)
	err := r.DB.QueryRowContext(ctx, r.DB.Q(query), tripID).Scan(&d.ID, &d.TripID, &vehicleID, &driverID, &deployedAt)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.VehicleID = nullableID(vehicleID)
	d.DriverID = nullableID(driverID)
	d.DeployedAt = intdb.ParseTime(deployedAt)
	return &d, nil
}

func (r DeploymentRepository) Insert(ctx context.Context, tripID, vehicleID, driverID int64, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Q(`INSERT INTO deployments (trip_id, vehicle_id, driver_id, deployed_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
		tripID, intdb.NullIfZero(vehicleID), intdb.NullIfZero(driverID), intdb.Timestamp(now), intdb.Timestamp(now))
	return err
}

func (r DeploymentRepository) Update(ctx context.Context, deploymentID, vehicleID, driverID int64, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Q(`UPDATE deployments SET vehicle_id=?, driver_id=?, updated_at=? WHERE deployment_id=?`),
		intdb.NullIfZero(vehicleID), intdb.NullIfZero(driverID), intdb.Timestamp(now), deploymentID)
	return err
}

func (r DeploymentRepository) Delete(ctx context.Context, deploymentID int64) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Q(`DELETE FROM deployments WHERE deployment_id=?`), deploymentID)
	return err
}

// ListResourceTrips returns the live trips on date that hold the resource,
// excluding excludeTripID. Cancelled and completed trips never conflict.
func (r DeploymentRepository) ListResourceTrips(ctx context.Context, kind models.ResourceKind, resourceID int64, date string, excludeTripID int64, lock bool) ([]domain.ConflictTrip, error) {
	column := "d.vehicle_id"
	if kind == models.ResourceDriver {
		column = "d.driver_id"
	}
	query := `SELECT t.id, t.label, t.service_date, t.service_time
		FROM deployments d
		JOIN trips t ON t.id=d.trip_id
		WHERE ` + column + `=? AND t.service_date=? AND t.id<>? AND t.status NOT IN ('CANCELLED','COMPLETED')
		ORDER BY t.service_time ASC, t.id ASC`
	if lock {
		query += r.DB.ForUpdate()
	}

	rows, err := r.DB.QueryContext(ctx, r.DB.Q(query), resourceID, date, excludeTripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ConflictTrip{}
	for rows.Next() {
		var c domain.ConflictTrip
		if err := rows.Scan(&c.TripID, &c.Label, &c.ServiceDate, &c.ServiceTime); err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListBusyOnDate returns every resource id of kind deployed to a live trip on
// date, with that trip's time. Used to build availability lists.
func (r DeploymentRepository) ListBusyOnDate(ctx context.Context, kind models.ResourceKind, date string, excludeTripID int64) (map[int64][]domain.ConflictTrip, error) {
	column := "d.vehicle_id"
	if kind == models.ResourceDriver {
		column = "d.driver_id"
	}
	query := `SELECT ` + column + `, t.id, t.label, t.service_date, t.service_time
		FROM deployments d
		JOIN trips t ON t.id=d.trip_id
		WHERE ` + column + ` IS NOT NULL AND t.service_date=? AND t.id<>? AND t.status NOT IN ('CANCELLED','COMPLETED')`

	rows, err := r.DB.QueryContext(ctx, r.DB.Q(query), date, excludeTripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]domain.ConflictTrip{}
	for rows.Next() {
		var (
			resourceID int64
			c          domain.ConflictTrip
		)
		if err := rows.Scan(&resourceID, &c.TripID, &c.Label, &c.ServiceDate, &c.ServiceTime); err != nil {
			return out, err
		}
		out[resourceID] = append(out[resourceID], c)
	}
	return out, rows.Err()
}

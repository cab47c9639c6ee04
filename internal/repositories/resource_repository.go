package repositories

import (
	"context"
	"strings"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain/models"
)

type VehicleRepository struct {
	DB intdb.Querier
}

const vehicleColumns = `id, vehicle_code, plate_number, capacity, status`

func scanVehicle(row interface{ Scan(...any) error }) (models.Vehicle, error) {
	var v models.Vehicle
	err := row.Scan(&v.ID, &v.VehicleCode, &v.PlateNumber, &v.Capacity, &v.Status)
	v.Status = strings.ToLower(strings.TrimSpace(v.Status))
	return v, err
}

func (r VehicleRepository) GetByID(ctx context.Context, id int64) (models.Vehicle, error) {
	return scanVehicle(r.DB.QueryRowContext(ctx, r.DB.Q(`SELECT `+vehicleColumns+` FROM vehicles WHERE id=?`), id))
}

// GetForUpdate locks the vehicle row so concurrent assignments of the same
// vehicle serialize on it.
func (r VehicleRepository) GetForUpdate(ctx context.Context, id int64) (models.Vehicle, error) {
	return scanVehicle(r.DB.QueryRowContext(ctx, r.DB.Q(`SELECT `+vehicleColumns+` FROM vehicles WHERE id=?`+r.DB.ForUpdate()), id))
}

func (r VehicleRepository) List(ctx context.Context) ([]models.Vehicle, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY vehicle_code ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// FindByRef matches a vehicle code or plate number, ignoring case and spaces.
func (r VehicleRepository) FindByRef(ctx context.Context, ref string) ([]models.Vehicle, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(ref), " ", ""))
	rows, err := r.DB.QueryContext(ctx, r.DB.Q(`SELECT `+vehicleColumns+` FROM vehicles
		WHERE LOWER(REPLACE(vehicle_code,' ',''))=? OR LOWER(REPLACE(plate_number,' ',''))=?
		ORDER BY id ASC`), key, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r VehicleRepository) Create(ctx context.Context, v models.Vehicle) (int64, error) {
	if v.Status == "" {
		v.Status = models.ResourceAvailable
	}
	return intdb.InsertID(ctx, r.DB, `INSERT INTO vehicles (vehicle_code, plate_number, capacity, status) VALUES (?, ?, ?, ?)`, "id",
		v.VehicleCode, v.PlateNumber, v.Capacity, v.Status)
}

type DriverRepository struct {
	DB intdb.Querier
}

const driverColumns = `id, name, phone, status`

func scanDriver(row interface{ Scan(...any) error }) (models.Driver, error) {
	var d models.Driver
	err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.Status)
	d.Status = strings.ToLower(strings.TrimSpace(d.Status))
	return d, err
}

func (r DriverRepository) GetByID(ctx context.Context, id int64) (models.Driver, error) {
	return scanDriver(r.DB.QueryRowContext(ctx, r.DB.Q(`SELECT `+driverColumns+` FROM drivers WHERE id=?`), id))
}

func (r DriverRepository) GetForUpdate(ctx context.Context, id int64) (models.Driver, error) {
	return scanDriver(r.DB.QueryRowContext(ctx, r.DB.Q(`SELECT `+driverColumns+` FROM drivers WHERE id=?`+r.DB.ForUpdate()), id))
}

func (r DriverRepository) List(ctx context.Context) ([]models.Driver, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// FindByName matches the full name case-insensitively, then falls back to a
// prefix match ("Rahmat" finds "Rahmat Hidayat").
func (r DriverRepository) FindByName(ctx context.Context, name string) ([]models.Driver, error) {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if key == "" {
		return []models.Driver{}, nil
	}
	rows, err := r.DB.QueryContext(ctx, r.DB.Q(`SELECT `+driverColumns+` FROM drivers
		WHERE LOWER(name)=? OR LOWER(name) LIKE ?
		ORDER BY CASE WHEN LOWER(name)=? THEN 0 ELSE 1 END, id ASC`), key, key+" %", key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	// an exact hit wins over prefix hits
	if len(out) > 1 && strings.EqualFold(out[0].Name, key) {
		return out[:1], nil
	}
	return out, nil
}

func (r DriverRepository) Create(ctx context.Context, d models.Driver) (int64, error) {
	if d.Status == "" {
		d.Status = models.ResourceAvailable
	}
	return intdb.InsertID(ctx, r.DB, `INSERT INTO drivers (name, phone, status) VALUES (?, ?, ?)`, "id", d.Name, d.Phone, d.Status)
}

package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain/models"
)

const (
	testDate     = "2030-05-14"
	testNextDate = "2030-05-15"
)

var testNow = time.Date(2030, 5, 14, 6, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// newTestDB opens a migrated SQLite database in a temp dir.
func newTestDB(t *testing.T) *intdb.DB {
	t.Helper()
	db, err := intdb.Open("sqlite", filepath.Join(t.TempDir(), "dispatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

type fixture struct {
	t  *testing.T
	db *intdb.DB
}

func (f fixture) exec(query string, args ...any) {
	f.t.Helper()
	_, err := f.db.ExecContext(context.Background(), f.db.Q(query), args...)
	require.NoError(f.t, err)
}

func (f fixture) trip(id int64, label, date, clock string, status models.TripStatus, capacity int) {
	f.t.Helper()
	ts := intdb.Timestamp(testNow)
	f.exec(`INSERT INTO trips (id, label, route_name, service_date, service_time, status, capacity, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, label, label, date, clock, string(status), capacity, ts, ts)
}

func (f fixture) vehicle(id int64, code, plate, status string) {
	f.t.Helper()
	f.exec(`INSERT INTO vehicles (id, vehicle_code, plate_number, capacity, status) VALUES (?, ?, ?, ?, ?)`, id, code, plate, 14, status)
}

func (f fixture) driver(id int64, name, status string) {
	f.t.Helper()
	f.exec(`INSERT INTO drivers (id, name, phone, status) VALUES (?, ?, ?, ?)`, id, name, "0812", status)
}

// deploy inserts a deployment; zero ids are stored as NULL.
func (f fixture) deploy(tripID, vehicleID, driverID int64) {
	f.t.Helper()
	ts := intdb.Timestamp(testNow)
	f.exec(`INSERT INTO deployments (trip_id, vehicle_id, driver_id, deployed_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		tripID, intdb.NullIfZero(vehicleID), intdb.NullIfZero(driverID), ts, ts)
}

func (f fixture) bookings(tripID int64, n int) {
	f.t.Helper()
	ts := intdb.Timestamp(testNow)
	for i := 0; i < n; i++ {
		f.exec(`INSERT INTO bookings (trip_id, passenger_name, seats, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			tripID, "Penumpang", 1, string(models.BookingConfirmed), ts, ts)
	}
}

// seedDispatch loads one service day:
//
//	trip  5  07:00  vehicle 2 + driver 5, 12 confirmed bookings
//	trip  8  09:00  no deployment, no bookings
//	trip 36  11:15  vehicle 1 + driver 7
//	trip 38  11:00  no deployment
//	trip 39  11:30  no deployment
//	trip 40  14:00  orphan deployment (driver 6 only)
//	trip 41  16:00  cancelled
//	trip 42  18:00  completed
//	trip 50  09:00 next day, same label as trip 8
func seedDispatch(t *testing.T, db *intdb.DB) fixture {
	t.Helper()
	f := fixture{t: t, db: db}

	f.vehicle(1, "V-01", "BA 1001 AA", models.ResourceDeployed)
	f.vehicle(2, "V-02", "BA 1002 AA", models.ResourceAvailable)
	f.vehicle(3, "V-03", "BA 1003 AA", models.ResourceMaintenance)

	f.driver(5, "Andi Saputra", models.ResourceAvailable)
	f.driver(6, "Budi Santoso", models.ResourceAvailable)
	f.driver(7, "Rahmat Hidayat", models.ResourceAvailable)

	f.trip(5, "Padang - Bukittinggi 07:00", testDate, "07:00", models.TripScheduled, 14)
	f.trip(8, "Padang - Solok 09:00", testDate, "09:00", models.TripScheduled, 14)
	f.trip(36, "Padang - Pariaman 11:15", testDate, "11:15", models.TripScheduled, 14)
	f.trip(38, "Padang - Painan 11:00", testDate, "11:00", models.TripScheduled, 14)
	f.trip(39, "Padang - Sawahlunto 11:30", testDate, "11:30", models.TripScheduled, 14)
	f.trip(40, "Padang - Payakumbuh 14:00", testDate, "14:00", models.TripScheduled, 14)
	f.trip(41, "Solok - Padang 16:00", testDate, "16:00", models.TripCancelled, 14)
	f.trip(42, "Bukittinggi - Padang 18:00", testDate, "18:00", models.TripCompleted, 14)
	f.trip(50, "Padang - Solok 09:00", testNextDate, "09:00", models.TripScheduled, 14)

	f.deploy(5, 2, 5)
	f.deploy(36, 1, 7)
	f.deploy(40, 0, 6)

	f.bookings(5, 12)
	return f
}

func countRows(t *testing.T, db *intdb.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), db.Q(query), args...).Scan(&n))
	return n
}

func confirmedBookings(t *testing.T, db *intdb.DB, tripID int64) int {
	t.Helper()
	return countRows(t, db, `SELECT COUNT(*) FROM bookings WHERE trip_id=? AND status='CONFIRMED'`, tripID)
}

func auditEntries(t *testing.T, db *intdb.DB, tripID int64) int {
	t.Helper()
	return countRows(t, db, `SELECT COUNT(*) FROM audit_logs WHERE entity_type='trip' AND entity_id=?`, tripID)
}

func newExecutor(db *intdb.DB) ActionExecutor {
	return ActionExecutor{
		DB:           db,
		Availability: AvailabilityService{Window: DefaultConflictWindow},
		EventsTopic:  "dispatch.actions",
		Now:          fixedNow,
	}
}

func newActionService(db *intdb.DB) ActionService {
	return ActionService{
		DB:          db,
		EventsTopic: "dispatch.actions",
		Now:         fixedNow,
	}
}

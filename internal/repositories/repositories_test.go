package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain/models"
)

func newMock(t *testing.T, driver string) (*intdb.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	d, err := intdb.DialectFor(driver)
	if err != nil {
		t.Fatalf("dialect: %v", err)
	}
	return intdb.Wrap(sqlDB, d), mock
}

var tripCols = []string{"id", "label", "route_name", "service_date", "service_time", "status", "capacity", "created_at", "updated_at"}

func TestTripGetForUpdateLocksOnMySQL(t *testing.T) {
	db, mock := newMock(t, "mysql")
	now := time.Date(2030, 5, 14, 6, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM trips WHERE id=\? FOR UPDATE`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(tripCols).AddRow(5, "Padang - Solok", "", "2030-05-14", "09:00", "scheduled ", 14, now, now))

	trip, err := TripRepository{DB: db}.GetForUpdate(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetForUpdate returned error: %v", err)
	}
	if trip.Status != models.TripScheduled {
		t.Fatalf("status not normalized, got %q", trip.Status)
	}
	if !trip.CreatedAt.Equal(now) {
		t.Fatalf("created_at = %v, want %v", trip.CreatedAt, now)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTripCreateUsesReturningOnPostgres(t *testing.T) {
	db, mock := newMock(t, "postgres")

	mock.ExpectQuery(`INSERT INTO trips \(.*\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8\) RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(77))

	id, err := TripRepository{DB: db}.Create(context.Background(), models.Trip{Label: "Solok - Padang", ServiceDate: "2030-05-14", ServiceTime: "16:00", Capacity: 14}, time.Now())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if id != 77 {
		t.Fatalf("id = %d, want 77", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeploymentGetByTripMissingRow(t *testing.T) {
	db, mock := newMock(t, "mysql")
	mock.ExpectQuery(`SELECT .* FROM deployments WHERE trip_id=\? FOR UPDATE`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"deployment_id", "trip_id", "vehicle_id", "driver_id", "deployed_at"}))

	d, err := DeploymentRepository{DB: db}.GetByTrip(context.Background(), 8, true)
	if err != nil {
		t.Fatalf("GetByTrip returned error: %v", err)
	}
	if d != nil {
		t.Fatalf("expected nil deployment, got %+v", d)
	}
}

func TestDeploymentGetByTripOrphan(t *testing.T) {
	db, mock := newMock(t, "sqlite")
	mock.ExpectQuery(`SELECT .* FROM deployments WHERE trip_id=\?$`).WithArgs(int64(40)).
		WillReturnRows(sqlmock.NewRows([]string{"deployment_id", "trip_id", "vehicle_id", "driver_id", "deployed_at"}).
			AddRow(3, 40, nil, 6, "2030-05-14 06:00:00"))

	d, err := DeploymentRepository{DB: db}.GetByTrip(context.Background(), 40, true)
	if err != nil {
		t.Fatalf("GetByTrip returned error: %v", err)
	}
	if d == nil || d.HasVehicle() || !d.HasDriver() || d.Complete() {
		t.Fatalf("unexpected deployment %+v", d)
	}
	if d.DeployedAt.IsZero() {
		t.Fatalf("deployed_at not parsed")
	}
}

func TestListResourceTripsExcludesClosedTrips(t *testing.T) {
	db, mock := newMock(t, "postgres")
	mock.ExpectQuery(`WHERE d\.driver_id=\$1 AND t\.service_date=\$2 AND t\.id<>\$3 AND t\.status NOT IN \('CANCELLED','COMPLETED'\)`).
		WithArgs(int64(7), "2030-05-14", int64(38)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "label", "service_date", "service_time"}).
			AddRow(36, "Padang - Pariaman", "2030-05-14", "11:15"))

	trips, err := DeploymentRepository{DB: db}.ListResourceTrips(context.Background(), models.ResourceDriver, 7, "2030-05-14", 38, false)
	if err != nil {
		t.Fatalf("ListResourceTrips returned error: %v", err)
	}
	if len(trips) != 1 || trips[0].TripID != 36 {
		t.Fatalf("unexpected trips %+v", trips)
	}
}

func TestSessionMarkDoneOnlyFromPending(t *testing.T) {
	db, mock := newMock(t, "mysql")
	mock.ExpectExec(`UPDATE confirmation_sessions SET status=\?, execution_result=\?, updated_at=\? WHERE session_id=\? AND status=\?`).
		WithArgs("DONE", `{"ok":true}`, sqlmock.AnyArg(), "s-1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := SessionRepository{DB: db}.MarkDone(context.Background(), "s-1", []byte(`{"ok":true}`), time.Now())
	if err != nil {
		t.Fatalf("MarkDone returned error: %v", err)
	}
	if ok {
		t.Fatalf("MarkDone reported success on a resolved session")
	}
}

func TestSessionGetDecodesPendingAction(t *testing.T) {
	db, mock := newMock(t, "mysql")
	now := time.Date(2030, 5, 14, 6, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM confirmation_sessions WHERE session_id=\? FOR UPDATE`).WithArgs("s-2").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "user_id", "pending_action", "status", "created_at", "updated_at", "execution_result"}).
			AddRow("s-2", 4, []byte(`{"action":"remove_vehicle","params":{"trip_id":5,"cancel_bookings":true}}`), "PENDING", now, now, nil))

	s, err := SessionRepository{DB: db}.Get(context.Background(), "s-2", true)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if s.PendingAction.Action != models.ActionRemoveVehicle || !s.PendingAction.Params.CancelBookings || s.PendingAction.Params.TripID != 5 {
		t.Fatalf("unexpected pending action %+v", s.PendingAction)
	}
	if s.ExecutionResult != nil {
		t.Fatalf("expected no execution result, got %s", s.ExecutionResult)
	}
}

func TestDriverFindByNamePrefersExactMatch(t *testing.T) {
	db, mock := newMock(t, "mysql")
	mock.ExpectQuery(`FROM drivers\s+WHERE LOWER\(name\)=\? OR LOWER\(name\) LIKE \?`).
		WithArgs("budi", "budi %", "budi").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "status"}).
			AddRow(6, "Budi", "", "available").
			AddRow(9, "Budi Santoso", "", "available"))

	found, err := DriverRepository{DB: db}.FindByName(context.Background(), "  Budi ")
	if err != nil {
		t.Fatalf("FindByName returned error: %v", err)
	}
	if len(found) != 1 || found[0].ID != 6 {
		t.Fatalf("unexpected drivers %+v", found)
	}
}

func TestBookingCancelConfirmed(t *testing.T) {
	db, mock := newMock(t, "postgres")
	mock.ExpectExec(`UPDATE bookings SET status=\$1, updated_at=\$2 WHERE trip_id=\$3 AND status=\$4`).
		WithArgs("CANCELLED", sqlmock.AnyArg(), int64(5), "CONFIRMED").
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := BookingRepository{DB: db}.CancelConfirmed(context.Background(), 5, time.Now())
	if err != nil {
		t.Fatalf("CancelConfirmed returned error: %v", err)
	}
	if n != 12 {
		t.Fatalf("cancelled = %d, want 12", n)
	}
}

func TestTripListFiltersLabelInSQL(t *testing.T) {
	db, mock := newMock(t, "postgres")
	now := time.Date(2030, 5, 14, 6, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM trips WHERE 1=1 AND service_date>=\$1 AND LOWER\(label\) LIKE \$2 ORDER BY .* LIMIT \$3`).
		WithArgs("2030-05-14", "%padang%-%solok%", int64(500)).
		WillReturnRows(sqlmock.NewRows(tripCols).AddRow(8, "Padang - Solok", "", "2030-05-14", "09:00", "SCHEDULED", 14, now, now))

	trips, err := TripRepository{DB: db}.List(context.Background(), TripQuery{FromDate: "2030-05-14", LabelLike: " Padang  - SOLOK ", Limit: 500})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(trips) != 1 || trips[0].ID != 8 {
		t.Fatalf("unexpected trips %+v", trips)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

package db

import (
	"context"
	"database/sql"
)

// Tables the service cannot run without.
var RequiredTables = []string{
	"trips", "vehicles", "drivers", "deployments", "bookings",
	"confirmation_sessions", "audit_logs", "outbox",
}

// HasTable reports whether table exists in the connected schema.
func HasTable(ctx context.Context, q Querier, table string) (bool, error) {
	var query string
	switch q.Dialect().Name() {
	case "sqlite":
		query = `SELECT name FROM sqlite_master WHERE type='table' AND name=? LIMIT 1`
	case "postgres":
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema=current_schema() AND table_name=? LIMIT 1`
	default:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema=DATABASE() AND table_name=? LIMIT 1`
	}
	var name sql.NullString
	err := q.QueryRowContext(ctx, q.Q(query), table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return name.Valid && name.String != "", nil
}

// MissingTables lists the RequiredTables not present yet; migrate creates them.
func MissingTables(ctx context.Context, q Querier) ([]string, error) {
	missing := []string{}
	for _, t := range RequiredTables {
		ok, err := HasTable(ctx, q, t)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain/models"
)

// AuditRepository appends to audit_logs. Rows are never updated or deleted.
type AuditRepository struct {
	DB intdb.Querier
}

func (r AuditRepository) Append(ctx context.Context, action string, userID int64, entityType string, entityID int64, details any, now time.Time) (int64, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return 0, fmt.Errorf("encode audit details: %w", err)
	}
	return intdb.InsertID(ctx, r.DB, `INSERT INTO audit_logs (action, user_id, entity_type, entity_id, details, logged_at) VALUES (?, ?, ?, ?, ?, ?)`, "log_id",
		action, userID, entityType, entityID, string(raw), intdb.Timestamp(now))
}

func (r AuditRepository) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]models.AuditLogEntry, error) {
	rows, err := r.DB.QueryContext(ctx, r.DB.Q(`SELECT log_id, action, user_id, entity_type, entity_id, details, logged_at
		FROM audit_logs WHERE entity_type=? AND entity_id=? ORDER BY log_id ASC`), entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.AuditLogEntry{}
	for rows.Next() {
		var (
			e        models.AuditLogEntry
			details  []byte
			loggedAt any
		)
		if err := rows.Scan(&e.LogID, &e.Action, &e.UserID, &e.EntityType, &e.EntityID, &details, &loggedAt); err != nil {
			return out, err
		}
		e.Details = json.RawMessage(append([]byte(nil), details...))
		e.LoggedAt = intdb.ParseTime(loggedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

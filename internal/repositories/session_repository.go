package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain/models"
)

// SessionRepository is the only writer of confirmation_sessions.
type SessionRepository struct {
	DB intdb.Querier
}

func (r SessionRepository) Create(ctx context.Context, s models.ConfirmationSession) error {
	pending, err := json.Marshal(s.PendingAction)
	if err != nil {
		return fmt.Errorf("encode pending action: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, r.DB.Q(`INSERT INTO confirmation_sessions (session_id, user_id, pending_action, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`),
		s.SessionID, s.UserID, string(pending), string(s.Status), intdb.Timestamp(s.CreatedAt), intdb.Timestamp(s.UpdatedAt))
	return err
}

// Get returns sql.ErrNoRows for an unknown id. lock=true holds the row for
// the rest of the transaction so two confirms of one session serialize.
func (r SessionRepository) Get(ctx context.Context, sessionID string, lock bool) (models.ConfirmationSession, error) {
	query := `SELECT session_id, user_id, pending_action, status, created_at, updated_at, execution_result FROM confirmation_sessions WHERE session_id=?`
	if lock {
		query += r.DB.ForUpdate()
	}
	var (
		s                  models.ConfirmationSession
		pending            []byte
		status             string
		createdAt, updated any
		result             sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, r.DB.Q(query), sessionID).Scan(&s.SessionID, &s.UserID, &pending, &status, &createdAt, &updated, &result)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(pending, &s.PendingAction); err != nil {
		return s, fmt.Errorf("decode pending action of %s: %w", sessionID, err)
	}
	s.Status = models.SessionStatus(status)
	s.CreatedAt = intdb.ParseTime(createdAt)
	s.UpdatedAt = intdb.ParseTime(updated)
	if result.Valid && result.String != "" {
		s.ExecutionResult = json.RawMessage(result.String)
	}
	return s, nil
}

// MarkDone moves a PENDING session to DONE with its result. It returns
// false when the session was no longer PENDING.
func (r SessionRepository) MarkDone(ctx context.Context, sessionID string, result json.RawMessage, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, r.DB.Q(`UPDATE confirmation_sessions SET status=?, execution_result=?, updated_at=? WHERE session_id=? AND status=?`),
		string(models.SessionDone), string(result), intdb.Timestamp(now), sessionID, string(models.SessionPending))
	return affectedOne(res, err)
}

func (r SessionRepository) MarkCancelled(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, r.DB.Q(`UPDATE confirmation_sessions SET status=?, updated_at=? WHERE session_id=? AND status=?`),
		string(models.SessionCancelled), intdb.Timestamp(now), sessionID, string(models.SessionPending))
	return affectedOne(res, err)
}

// ExpireStale sweeps PENDING sessions created before cutoff to EXPIRED.
func (r SessionRepository) ExpireStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, r.DB.Q(`UPDATE confirmation_sessions SET status=?, updated_at=? WHERE status=? AND created_at<?`),
		string(models.SessionExpired), intdb.Timestamp(now), string(models.SessionPending), intdb.Timestamp(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func affectedOne(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

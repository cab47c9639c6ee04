package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain"
	"dispatch/internal/domain/models"
	"dispatch/internal/metrics"
	"dispatch/internal/repositories"
	"dispatch/internal/utils"
)

const DefaultSessionTTL = 30 * time.Minute

// ConfirmationService owns confirmation_sessions. A session has no timer:
// its age is judged against TTL whenever it is read.
type ConfirmationService struct {
	DB        *intdb.DB
	TTL       time.Duration
	Metrics   *metrics.Metrics
	Now       func() time.Time
	RequestID string
}

func (s ConfirmationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return utils.NowUTC()
}

func (s ConfirmationService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultSessionTTL
}

// Stale reports a PENDING session older than the retention window.
func (s ConfirmationService) Stale(sess models.ConfirmationSession) bool {
	return sess.Status == models.SessionPending && s.now().Sub(sess.CreatedAt) > s.ttl()
}

func (s ConfirmationService) Create(ctx context.Context, userID int64, pending models.PendingAction) (string, error) {
	now := s.now()
	sess := models.ConfirmationSession{
		SessionID:     uuid.NewString(),
		UserID:        userID,
		PendingAction: pending,
		Status:        models.SessionPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := (repositories.SessionRepository{DB: s.DB}).Create(ctx, sess); err != nil {
		return "", fmt.Errorf("create confirmation session: %w", err)
	}
	s.Metrics.ObserveSessionCreated()
	utils.LogEvent(s.RequestID, "confirmation", "create", "session opened",
		zap.String("session_id", sess.SessionID), zap.String("pending_action", string(pending.Action)), zap.Int64("trip_id", pending.Params.TripID))
	return sess.SessionID, nil
}

// Load returns the session as stored, with SessionNotFound for unknown ids.
func (s ConfirmationService) Load(ctx context.Context, sessionID string) (models.ConfirmationSession, error) {
	sess, err := repositories.SessionRepository{DB: s.DB}.Get(ctx, sessionID, false)
	if repositories.IsNoRows(err) {
		return sess, domain.NewActionError(domain.KindSessionNotFound, "session %s not found", sessionID)
	}
	return sess, err
}

// CompleteOutcome is the result of a confirm. Result holds the bytes written
// to execution_result, a TEXT column in every dialect, so a replay returns
// exactly what the first confirm returned.
type CompleteOutcome struct {
	Session     models.ConfirmationSession
	Result      json.RawMessage
	AlreadyDone bool
}

// RunFunc executes the pending action on the session's transaction.
type RunFunc func(ctx context.Context, tx *intdb.Tx, sess models.ConfirmationSession) (models.ExecutionResult, error)

// Complete moves PENDING to DONE after run succeeds. The session row is
// locked for the whole transaction and run shares it, so concurrent
// confirms execute the action once; the loser sees DONE and gets the stored
// result. A failing run rolls back and leaves the session PENDING.
func (s ConfirmationService) Complete(ctx context.Context, sessionID string, run RunFunc) (CompleteOutcome, error) {
	var out CompleteOutcome
	err := s.DB.WithTx(ctx, func(tx *intdb.Tx) error {
		out = CompleteOutcome{}
		sessions := repositories.SessionRepository{DB: tx}
		sess, err := sessions.Get(ctx, sessionID, true)
		if repositories.IsNoRows(err) {
			return domain.NewActionError(domain.KindSessionNotFound, "session %s not found", sessionID)
		}
		if err != nil {
			return err
		}
		out.Session = sess

		switch sess.Status {
		case models.SessionDone:
			out.Result = sess.ExecutionResult
			out.AlreadyDone = true
			return nil
		case models.SessionCancelled:
			return domain.NewActionError(domain.KindSessionAlreadyResolved, "session %s was cancelled", sessionID)
		case models.SessionExpired:
			return domain.NewActionError(domain.KindSessionExpired, "session %s has expired", sessionID)
		}
		if s.Stale(sess) {
			return domain.NewActionError(domain.KindSessionExpired, "session %s has expired", sessionID)
		}

		result, err := run(ctx, tx, sess)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(result)
		if err != nil {
			return err
		}
		now := s.now()
		ok, err := sessions.MarkDone(ctx, sessionID, raw, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewActionError(domain.KindSessionAlreadyResolved, "session %s is no longer pending", sessionID)
		}
		out.Session.Status = models.SessionDone
		out.Session.UpdatedAt = now
		out.Session.ExecutionResult = raw
		out.Result = raw
		return nil
	})
	if err != nil {
		s.Metrics.ObserveSessionResolved(string(domain.KindOf(err)))
		return out, err
	}
	if out.AlreadyDone {
		s.Metrics.ObserveSessionResolved("already_done")
	} else {
		s.Metrics.ObserveSessionResolved("executed")
	}
	return out, nil
}

// Cancel moves PENDING to CANCELLED. Cancelling an already cancelled
// session is reported as success with no change.
func (s ConfirmationService) Cancel(ctx context.Context, sessionID string) (models.ConfirmationSession, error) {
	var sess models.ConfirmationSession
	err := s.DB.WithTx(ctx, func(tx *intdb.Tx) error {
		sessions := repositories.SessionRepository{DB: tx}
		var err error
		sess, err = sessions.Get(ctx, sessionID, true)
		if repositories.IsNoRows(err) {
			return domain.NewActionError(domain.KindSessionNotFound, "session %s not found", sessionID)
		}
		if err != nil {
			return err
		}
		switch sess.Status {
		case models.SessionCancelled:
			return nil
		case models.SessionDone:
			return domain.NewActionError(domain.KindSessionAlreadyResolved, "session %s was already executed", sessionID)
		case models.SessionExpired:
			return domain.NewActionError(domain.KindSessionExpired, "session %s has expired", sessionID)
		}
		now := s.now()
		if _, err := sessions.MarkCancelled(ctx, sessionID, now); err != nil {
			return err
		}
		sess.Status = models.SessionCancelled
		sess.UpdatedAt = now
		return nil
	})
	if err == nil {
		s.Metrics.ObserveSessionResolved("cancelled")
	}
	return sess, err
}

// ExpireStale sweeps PENDING sessions older than TTL to EXPIRED.
func (s ConfirmationService) ExpireStale(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := repositories.SessionRepository{DB: s.DB}.ExpireStale(ctx, now.Add(-s.ttl()), now)
	if err != nil {
		return 0, err
	}
	s.Metrics.ObserveSessionsExpired(n)
	utils.LogEvent(s.RequestID, "confirmation", "expire", "stale sessions swept", zap.Int64("expired", n))
	return n, nil
}

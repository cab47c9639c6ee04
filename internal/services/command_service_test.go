package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/domain"
	"dispatch/internal/intent"
)

type stubParser struct {
	in   intent.Intent
	err  error
	seen domain.OperatorContext
}

func (p *stubParser) Parse(ctx context.Context, text string, oc domain.OperatorContext) (intent.Intent, error) {
	p.seen = oc
	return p.in, p.err
}

func TestCommandRunsParsedIntent(t *testing.T) {
	db := newTestDB(t)
	seedDispatch(t, db)

	parser := &stubParser{in: intent.Intent{
		Action:      "assign_vehicle",
		TargetHints: domain.TargetHints{Time: "09:00"},
		Parameters:  map[string]any{"vehicle_id": "V-02", "driver_id": "Budi"},
		Confidence:  0.95,
	}}
	oc := domain.OperatorContext{ServiceDate: testDate}
	resp := newActionService(db).Command(context.Background(), parser, CommandRequest{Text: "pasang V-02 dan Budi ke trip jam 9", Context: oc, UserID: 3})

	require.Equal(t, StatusExecuted, resp.Status, resp.Message)
	assert.Equal(t, oc, parser.seen)
	require.NotNil(t, resp.Trip)
	assert.Equal(t, int64(8), resp.Trip.ID)
}

func TestCommandLowConfidenceNeedsClarification(t *testing.T) {
	db := newTestDB(t)
	seedDispatch(t, db)

	parser := &stubParser{in: intent.Intent{Action: "cancel_trip", TargetHints: domain.TargetHints{ID: 8}}}
	resp := newActionService(db).Command(context.Background(), parser, CommandRequest{Text: "batalkan"})

	assert.Equal(t, StatusNeedsClarification, resp.Status)
	assert.Equal(t, domain.KindTargetAmbiguous, resp.Error)
	assert.Equal(t, 0, countRows(t, db, `SELECT COUNT(*) FROM audit_logs`))
}

func TestCommandParserFailures(t *testing.T) {
	db := newTestDB(t)
	svc := newActionService(db)
	ctx := context.Background()

	resp := svc.Command(ctx, &stubParser{err: errors.New("bad json")}, CommandRequest{Text: "???"})
	assert.Equal(t, StatusNeedsClarification, resp.Status)

	resp = svc.Command(ctx, nil, CommandRequest{Text: "cancel trip 8"})
	assert.Equal(t, StatusFailed, resp.Status)

	resp = svc.Command(ctx, &stubParser{}, CommandRequest{Text: "  "})
	assert.Equal(t, domain.KindMissingParameter, resp.Error)
}

// blockingParser waits for its context like a stalled model call.
type blockingParser struct{ hadDeadline bool }

func (p *blockingParser) Parse(ctx context.Context, text string, oc domain.OperatorContext) (intent.Intent, error) {
	_, p.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return intent.Intent{}, ctx.Err()
}

func TestCommandParseIsBoundedByTimeout(t *testing.T) {
	db := newTestDB(t)
	svc := newActionService(db)
	svc.ParseTimeout = 20 * time.Millisecond

	parser := &blockingParser{}
	start := time.Now()
	resp := svc.Command(context.Background(), parser, CommandRequest{Text: "batalkan trip 8"})

	assert.True(t, parser.hadDeadline)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, StatusFailed, resp.Status)
	assert.Equal(t, "command parsing timed out", resp.Message)
}

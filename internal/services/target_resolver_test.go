package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain"
	"dispatch/internal/domain/models"
)

func newResolver(t *testing.T) TargetResolver {
	t.Helper()
	db := newTestDB(t)
	seedDispatch(t, db)
	return TargetResolver{DB: db, Now: fixedNow}
}

func candidateIDs(c []Candidate) []int64 {
	out := make([]int64, 0, len(c))
	for _, m := range c {
		out = append(out, m.ID)
	}
	return out
}

func TestResolveByID(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	res, err := r.Resolve(ctx, ResolveInput{Hints: domain.TargetHints{ID: "36"}})
	require.NoError(t, err)
	assert.Equal(t, ResolveResolved, res.Status)
	require.NotNil(t, res.Trip)
	assert.Equal(t, int64(36), res.Trip.ID)
	assert.Equal(t, 1.0, res.Confidence)

	res, err = r.Resolve(ctx, ResolveInput{Hints: domain.TargetHints{ID: float64(404)}})
	require.NoError(t, err)
	assert.Equal(t, ResolveNotFound, res.Status)
}

func TestResolveUsesSelectedTripWithoutHints(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	res, err := r.Resolve(ctx, ResolveInput{Context: domain.OperatorContext{SelectedTripID: 8}})
	require.NoError(t, err)
	assert.Equal(t, ResolveResolved, res.Status)
	assert.Equal(t, int64(8), res.Trip.ID)

	res, err = r.Resolve(ctx, ResolveInput{})
	require.NoError(t, err)
	assert.Equal(t, ResolveNeedsContext, res.Status)
	assert.Nil(t, res.Trip)
}

func TestResolveRejectsMalformedIDWithoutFallingBack(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	for _, id := range []any{12.5, true, 1e30, -4.0} {
		res, err := r.Resolve(ctx, ResolveInput{
			Hints:   domain.TargetHints{ID: id},
			Context: domain.OperatorContext{SelectedTripID: 8},
		})
		require.NoError(t, err)
		if res.Status != ResolveAmbiguous || res.Trip != nil {
			t.Fatalf("id %v: status %s trip %+v, want AMBIGUOUS without a trip", id, res.Status, res.Trip)
		}
		assert.Contains(t, res.Reason, "not a valid trip id")
	}

	// text still falls back to a label search
	res, err := r.Resolve(ctx, ResolveInput{Hints: domain.TargetHints{ID: "#abc"}, Context: domain.OperatorContext{SelectedTripID: 8}})
	require.NoError(t, err)
	assert.NotEqual(t, ResolveResolved, res.Status)
}

func TestResolveByLabel(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()
	day := domain.OperatorContext{ServiceDate: testDate}

	res, err := r.Resolve(ctx, ResolveInput{Hints: domain.TargetHints{Label: "padang -  SOLOK 09:00"}, Context: day})
	require.NoError(t, err)
	assert.Equal(t, ResolveResolved, res.Status)
	assert.Equal(t, int64(8), res.Trip.ID)
	assert.Equal(t, 1.0, res.Confidence)

	res, err = r.Resolve(ctx, ResolveInput{Hints: domain.TargetHints{Label: "pariaman"}, Context: day})
	require.NoError(t, err)
	assert.Equal(t, ResolveResolved, res.Status)
	assert.Equal(t, int64(36), res.Trip.ID)
	assert.Equal(t, 0.8, res.Confidence)
}

func TestResolveLabelFindsTripsPastABusyDay(t *testing.T) {
	db := newTestDB(t)
	seedDispatch(t, db)
	r := TargetResolver{DB: db, Now: fixedNow}

	// more early trips on the first day than one pool page holds
	err := db.WithTx(context.Background(), func(tx *intdb.Tx) error {
		ts := intdb.Timestamp(testNow)
		for i := 0; i < 600; i++ {
			_, err := tx.ExecContext(context.Background(), tx.Q(`INSERT INTO trips (label, route_name, service_date, service_time, status, capacity, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
				fmt.Sprintf("Shuttle %03d", i), "", testDate, "05:00", string(models.TripScheduled), 14, ts, ts)
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), ResolveInput{Hints: domain.TargetHints{Label: "Padang - Solok 09:00"}})
	require.NoError(t, err)
	assert.Equal(t, ResolveAmbiguous, res.Status)
	assert.ElementsMatch(t, []int64{8, 50}, candidateIDs(res.Candidates))
}

func TestResolveSameLabelOnTwoDaysIsAmbiguous(t *testing.T) {
	r := newResolver(t)

	res, err := r.Resolve(context.Background(), ResolveInput{Hints: domain.TargetHints{Label: "Padang - Solok 09:00"}})
	require.NoError(t, err)
	assert.Equal(t, ResolveAmbiguous, res.Status)
	assert.Nil(t, res.Trip)
	assert.Equal(t, []int64{8, 50}, candidateIDs(res.Candidates))
}

func TestResolvePrefersSelectedTripAmongMatches(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	res, err := r.Resolve(ctx, ResolveInput{
		Hints:   domain.TargetHints{Label: "Padang -"},
		Context: domain.OperatorContext{ServiceDate: testDate},
	})
	require.NoError(t, err)
	assert.Equal(t, ResolveAmbiguous, res.Status)
	assert.Greater(t, len(res.Candidates), 2)

	res, err = r.Resolve(ctx, ResolveInput{
		Hints:   domain.TargetHints{Label: "Padang -"},
		Context: domain.OperatorContext{ServiceDate: testDate, SelectedTripID: 38},
	})
	require.NoError(t, err)
	assert.Equal(t, ResolveResolved, res.Status)
	assert.Equal(t, int64(38), res.Trip.ID)
}

func TestResolveByTime(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	res, err := r.Resolve(ctx, ResolveInput{Hints: domain.TargetHints{Time: "11.00"}})
	require.NoError(t, err)
	assert.Equal(t, ResolveResolved, res.Status)
	assert.Equal(t, int64(38), res.Trip.ID)
	assert.Equal(t, 0.9, res.Confidence)

	// nearest within half an hour: 11:15 beats 11:30 and 11:00
	res, err = r.Resolve(ctx, ResolveInput{Hints: domain.TargetHints{Time: "11:20"}})
	require.NoError(t, err)
	assert.Equal(t, ResolveResolved, res.Status)
	assert.Equal(t, int64(36), res.Trip.ID)
	assert.Equal(t, 0.7, res.Confidence)

	res, err = r.Resolve(ctx, ResolveInput{Hints: domain.TargetHints{Time: "03:00"}})
	require.NoError(t, err)
	assert.Equal(t, ResolveNotFound, res.Status)
}

func TestResolveLabelNarrowedByTime(t *testing.T) {
	r := newResolver(t)

	res, err := r.Resolve(context.Background(), ResolveInput{
		Hints:   domain.TargetHints{Label: "padang", Time: "11:15"},
		Context: domain.OperatorContext{ServiceDate: testDate},
	})
	require.NoError(t, err)
	assert.Equal(t, ResolveResolved, res.Status)
	assert.Equal(t, int64(36), res.Trip.ID)
}

func TestResolveLowConfidenceAsksToConfirm(t *testing.T) {
	r := newResolver(t)

	res, err := r.Resolve(context.Background(), ResolveInput{Hints: domain.TargetHints{ID: 8}, Confidence: 0.5})
	require.NoError(t, err)
	assert.Equal(t, ResolveAmbiguous, res.Status)
	assert.Nil(t, res.Trip)
	assert.Equal(t, []int64{8}, candidateIDs(res.Candidates))
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
}

func TestResolveNotFoundSuggests(t *testing.T) {
	r := newResolver(t)

	res, err := r.Resolve(context.Background(), ResolveInput{
		Hints:   domain.TargetHints{Label: "Pdg Solok"},
		Context: domain.OperatorContext{ServiceDate: testDate},
	})
	require.NoError(t, err)
	assert.Equal(t, ResolveNotFound, res.Status)
	assert.Contains(t, res.Suggestions, "Padang - Solok 09:00")
	assert.Contains(t, res.Reason, "create a new trip")
}

func TestResolveResources(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	v, err := r.ResolveVehicle(ctx, "ba 1002 aa")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.ID)

	v, err = r.ResolveVehicle(ctx, "v-03")
	require.NoError(t, err)
	assert.Equal(t, models.ResourceMaintenance, v.Status)

	_, err = r.ResolveVehicle(ctx, "V-99")
	assert.Equal(t, domain.KindTargetNotFound, domain.KindOf(err))

	d, err := r.ResolveDriver(ctx, "budi")
	require.NoError(t, err)
	assert.Equal(t, int64(6), d.ID)

	d, err = r.ResolveDriver(ctx, "RAHMAT HIDAYAT")
	require.NoError(t, err)
	assert.Equal(t, int64(7), d.ID)

	_, err = r.ResolveDriver(ctx, float64(77))
	assert.Equal(t, domain.KindTargetNotFound, domain.KindOf(err))
}

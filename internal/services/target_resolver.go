package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	intdb "dispatch/internal/db"
	"dispatch/internal/domain"
	"dispatch/internal/domain/models"
	"dispatch/internal/repositories"
	"dispatch/internal/utils"
)

const DefaultConfidenceThreshold = 0.6

type ResolveStatus string

const (
	ResolveResolved     ResolveStatus = "RESOLVED"
	ResolveAmbiguous    ResolveStatus = "AMBIGUOUS"
	ResolveNotFound     ResolveStatus = "NOT_FOUND"
	ResolveNeedsContext ResolveStatus = "NEEDS_CONTEXT"
)

// Match scores by resolution step.
const (
	scoreID       = 1.0
	scoreSelected = 1.0
	scoreExact    = 1.0
	scoreTime     = 0.9
	scoreContains = 0.8
	scoreNearTime = 0.7

	nearTimeTolerance = 30 // minutes
	maxSuggestions    = 5
)

type Candidate struct {
	models.TripSummary
	Score float64 `json:"score"`
}

type ResolveInput struct {
	Action  models.ActionName
	Hints   domain.TargetHints
	Context domain.OperatorContext
	// Confidence of the upstream intent, 0..1. Zero means a structured
	// request and counts as 1.
	Confidence float64
}

type Resolution struct {
	Status      ResolveStatus `json:"status"`
	Trip        *models.Trip  `json:"trip,omitempty"`
	Confidence  float64       `json:"confidence"`
	Candidates  []Candidate   `json:"candidates,omitempty"`
	Suggestions []string      `json:"suggestions,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}

// TargetResolver maps loose trip references to one trip. It reads through DB
// only and never holds locks.
type TargetResolver struct {
	DB        intdb.Querier
	Threshold float64
	Now       func() time.Time
}

func (r TargetResolver) threshold() float64 {
	if r.Threshold > 0 {
		return r.Threshold
	}
	return DefaultConfidenceThreshold
}

func (r TargetResolver) today() string {
	if r.Now != nil {
		return utils.FormatDate(r.Now().UTC())
	}
	return utils.FormatDate(utils.NowUTC())
}

func (r TargetResolver) trips() repositories.TripRepository {
	return repositories.TripRepository{DB: r.DB}
}

// Resolve walks id, exact label, label contains, then time of day. With no
// hints at all the operator's selected trip is used directly.
func (r TargetResolver) Resolve(ctx context.Context, in ResolveInput) (Resolution, error) {
	conf := in.Confidence
	if conf <= 0 || conf > 1 {
		conf = 1
	}
	hints := in.Hints
	hints.Label = utils.NormalizeSpace(hints.Label)
	hints.Time = strings.TrimSpace(hints.Time)

	id, hasID, idErr := utils.ParseID(hints.ID)
	if idErr != nil {
		s, isText := hints.ID.(string)
		if !isText {
			// 12.5 or true is a bad id, never a request for the selected trip
			return Resolution{Status: ResolveAmbiguous, Reason: fmt.Sprintf("trip id %v is not a valid trip id", hints.ID)}, nil
		}
		// "#abc" or a label typed into the id field
		if hints.Label == "" {
			hints.Label = utils.NormalizeSpace(s)
		}
		hasID = false
	}

	if hasID {
		return r.byID(ctx, id, scoreID, conf)
	}

	if hints.Label == "" && hints.Time == "" {
		if in.Context.SelectedTripID > 0 {
			return r.byID(ctx, in.Context.SelectedTripID, scoreSelected, conf)
		}
		return Resolution{Status: ResolveNeedsContext, Reason: "select a trip first or name one"}, nil
	}

	pool, err := r.candidatePool(ctx, in.Context, hints)
	if err != nil {
		return Resolution{}, err
	}

	var matches []Candidate
	if hints.Label != "" {
		matches = matchLabel(pool, hints.Label)
		if hints.Time != "" && len(matches) > 1 {
			if narrowed := matchTime(tripsOf(matches, pool), hints.Time); len(narrowed) > 0 {
				matches = narrowed
			}
		}
	} else {
		matches = matchTime(pool, hints.Time)
	}

	if len(matches) > 1 && in.Context.SelectedTripID > 0 {
		for _, m := range matches {
			if m.ID == in.Context.SelectedTripID {
				matches = []Candidate{m}
				break
			}
		}
	}

	switch len(matches) {
	case 0:
		others, err := r.suggestionPool(ctx, in.Context, hints.Label)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{
			Status:      ResolveNotFound,
			Suggestions: suggest(others, hints.Label),
			Reason:      notFoundReason(hints),
		}, nil
	case 1:
		score := matches[0].Score * conf
		trip := findTrip(pool, matches[0].ID)
		if score < r.threshold() {
			return Resolution{
				Status:     ResolveAmbiguous,
				Confidence: score,
				Candidates: matches,
				Reason:     "low confidence, please confirm the trip",
			}, nil
		}
		return Resolution{Status: ResolveResolved, Trip: trip, Confidence: score, Candidates: matches}, nil
	}
	rank(matches)
	return Resolution{
		Status:     ResolveAmbiguous,
		Confidence: matches[0].Score * conf,
		Candidates: matches,
		Reason:     fmt.Sprintf("%d trips match", len(matches)),
	}, nil
}

func (r TargetResolver) byID(ctx context.Context, id int64, score, conf float64) (Resolution, error) {
	trip, err := r.trips().GetByID(ctx, id)
	if repositories.IsNoRows(err) {
		return Resolution{Status: ResolveNotFound, Reason: fmt.Sprintf("trip %d not found", id)}, nil
	}
	if err != nil {
		return Resolution{}, err
	}
	c := Candidate{TripSummary: trip.Summary(), Score: score}
	final := score * conf
	if final < r.threshold() {
		return Resolution{Status: ResolveAmbiguous, Confidence: final, Candidates: []Candidate{c}, Reason: "low confidence, please confirm the trip"}, nil
	}
	return Resolution{Status: ResolveResolved, Trip: &trip, Confidence: final, Candidates: []Candidate{c}}, nil
}

// candidatePool scopes the search: the context date when given, today when
// only a time was named, otherwise trips from today on. A label is filtered
// in SQL as well.
func (r TargetResolver) candidatePool(ctx context.Context, oc domain.OperatorContext, hints domain.TargetHints) ([]models.Trip, error) {
	return r.trips().List(ctx, r.poolQuery(oc, hints.Label, true))
}

// poolQuery filters by label in SQL when filterLabel is set, so open-ended
// date ranges are not cut off by the row limit before matching.
func (r TargetResolver) poolQuery(oc domain.OperatorContext, label string, filterLabel bool) repositories.TripQuery {
	q := repositories.TripQuery{Limit: 500}
	switch {
	case strings.TrimSpace(oc.ServiceDate) != "":
		q.ServiceDate = strings.TrimSpace(oc.ServiceDate)
	case label == "":
		q.ServiceDate = r.today()
	default:
		q.FromDate = r.today()
	}
	if filterLabel {
		q.LabelLike = label
	}
	return q
}

// suggestionPool is the unfiltered pool used for "did you mean" labels
// once the filtered search came back empty.
func (r TargetResolver) suggestionPool(ctx context.Context, oc domain.OperatorContext, label string) ([]models.Trip, error) {
	if label == "" {
		return nil, nil
	}
	return r.trips().List(ctx, r.poolQuery(oc, label, false))
}

func matchLabel(pool []models.Trip, label string) []Candidate {
	key := utils.FoldKey(label)
	exact := []Candidate{}
	for _, t := range pool {
		if utils.FoldKey(t.Label) == key {
			exact = append(exact, Candidate{TripSummary: t.Summary(), Score: scoreExact})
		}
	}
	if len(exact) > 0 {
		return exact
	}
	contains := []Candidate{}
	for _, t := range pool {
		if strings.Contains(utils.FoldKey(t.Label), key) {
			contains = append(contains, Candidate{TripSummary: t.Summary(), Score: scoreContains})
		}
	}
	return contains
}

// matchTime prefers exact time matches and falls back to the nearest trips
// within nearTimeTolerance.
func matchTime(pool []models.Trip, raw string) []Candidate {
	want, err := utils.ParseClock(raw)
	if err != nil {
		return nil
	}
	exact := []Candidate{}
	near := []Candidate{}
	best := nearTimeTolerance + 1
	for _, t := range pool {
		got, err := utils.ParseClock(t.ServiceTime)
		if err != nil {
			continue
		}
		d := got - want
		if d < 0 {
			d = -d
		}
		switch {
		case d == 0:
			exact = append(exact, Candidate{TripSummary: t.Summary(), Score: scoreTime})
		case d <= nearTimeTolerance && d < best:
			best = d
			near = []Candidate{{TripSummary: t.Summary(), Score: scoreNearTime}}
		case d <= nearTimeTolerance && d == best:
			near = append(near, Candidate{TripSummary: t.Summary(), Score: scoreNearTime})
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return near
}

func suggest(pool []models.Trip, label string) []string {
	if label == "" || len(pool) == 0 {
		return nil
	}
	labels := make([]string, len(pool))
	for i, t := range pool {
		labels[i] = t.Label
	}
	seen := map[string]bool{}
	out := []string{}
	for _, m := range fuzzy.Find(label, labels) {
		if seen[m.Str] {
			continue
		}
		seen[m.Str] = true
		out = append(out, m.Str)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

func notFoundReason(h domain.TargetHints) string {
	switch {
	case h.Label != "" && h.Time != "":
		return fmt.Sprintf("no trip matches %q at %s; create a new trip?", h.Label, h.Time)
	case h.Label != "":
		return fmt.Sprintf("no trip matches %q; create a new trip?", h.Label)
	default:
		return fmt.Sprintf("no trip at %s; create a new trip?", h.Time)
	}
}

func rank(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Score != c[j].Score {
			return c[i].Score > c[j].Score
		}
		if c[i].ServiceDate != c[j].ServiceDate {
			return c[i].ServiceDate < c[j].ServiceDate
		}
		if c[i].ServiceTime != c[j].ServiceTime {
			return c[i].ServiceTime < c[j].ServiceTime
		}
		return c[i].ID < c[j].ID
	})
}

func tripsOf(c []Candidate, pool []models.Trip) []models.Trip {
	out := make([]models.Trip, 0, len(c))
	for _, m := range c {
		if t := findTrip(pool, m.ID); t != nil {
			out = append(out, *t)
		}
	}
	return out
}

func findTrip(pool []models.Trip, id int64) *models.Trip {
	for i := range pool {
		if pool[i].ID == id {
			t := pool[i]
			return &t
		}
	}
	return nil
}

// ResolveVehicle maps a numeric id, a vehicle code or a plate number to one
// vehicle.
func (r TargetResolver) ResolveVehicle(ctx context.Context, ref any) (models.Vehicle, error) {
	repo := repositories.VehicleRepository{DB: r.DB}
	id, ok, err := utils.ParseID(ref)
	if err == nil && ok {
		v, err := repo.GetByID(ctx, id)
		if repositories.IsNoRows(err) {
			return v, domain.NewActionError(domain.KindTargetNotFound, "vehicle %d not found", id)
		}
		return v, err
	}
	text, _ := ref.(string)
	if strings.TrimSpace(text) == "" {
		return models.Vehicle{}, domain.NewActionError(domain.KindMissingParameter, "vehicle is required")
	}
	found, err := repo.FindByRef(ctx, text)
	if err != nil {
		return models.Vehicle{}, err
	}
	switch len(found) {
	case 0:
		return models.Vehicle{}, domain.NewActionError(domain.KindTargetNotFound, "vehicle %q not found", text)
	case 1:
		return found[0], nil
	}
	return models.Vehicle{}, domain.NewActionError(domain.KindTargetAmbiguous, "%d vehicles match %q", len(found), text)
}

// ResolveDriver maps a numeric id or a driver name to one driver.
func (r TargetResolver) ResolveDriver(ctx context.Context, ref any) (models.Driver, error) {
	repo := repositories.DriverRepository{DB: r.DB}
	id, ok, err := utils.ParseID(ref)
	if err == nil && ok {
		d, err := repo.GetByID(ctx, id)
		if repositories.IsNoRows(err) {
			return d, domain.NewActionError(domain.KindTargetNotFound, "driver %d not found", id)
		}
		return d, err
	}
	text, _ := ref.(string)
	if strings.TrimSpace(text) == "" {
		return models.Driver{}, domain.NewActionError(domain.KindMissingParameter, "driver is required")
	}
	found, err := repo.FindByName(ctx, text)
	if err != nil {
		return models.Driver{}, err
	}
	switch len(found) {
	case 0:
		return models.Driver{}, domain.NewActionError(domain.KindTargetNotFound, "driver %q not found", text)
	case 1:
		return found[0], nil
	}
	return models.Driver{}, domain.NewActionError(domain.KindTargetAmbiguous, "%d drivers match %q", len(found), text)
}

package analytics

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/apperr"
	"github.com/dealflow/dealflow-api/internal/database"
	"github.com/dealflow/dealflow-api/internal/models"
	"github.com/dealflow/dealflow-api/internal/scope"
)

func TestTrend_Scenario(t *testing.T) {
	db := database.NewMemoryDB()
	owner := primitive.NewObjectID()
	db.InsertDeal(models.Deal{Title: "won", Amount: 50000, Stage: "Closed Won", Probability: 100, OwnerID: owner,
		CreatedAt: time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC),
		ClosedAt:  tp(time.Date(2025, 2, 14, 15, 0, 0, 0, time.UTC))})
	db.InsertDeal(models.Deal{Title: "open", Amount: 100000, Stage: "Proposal", Probability: 50, OwnerID: owner,
		CreatedAt: time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC),
		CloseDate: tp(time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))})

	loc := mustLoc("America/New_York")
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	w, err := ResolveWindow(TrendQuery{From: "2025-01-01", To: "2025-03-31"}, now, loc)
	require.NoError(t, err)

	tr, err := NewService(NewMemoryStore(db), Options{Location: loc}).PerformanceTrend(context.Background(), scope.All(), w)
	require.NoError(t, err)
	require.Equal(t, []TrendPoint{
		{Month: "2025-01", Actual: 0, Forecast: 0},
		{Month: "2025-02", Actual: 50000, Forecast: 0},
		{Month: "2025-03", Actual: 0, Forecast: 50000},
	}, tr.Series)
	require.Equal(t, TrendTotals{Actual: 50000, Forecast: 50000}, tr.Totals)
	require.Equal(t, 3, tr.Range.Months)
	require.Equal(t, "America/New_York", tr.Range.Timezone)
}

func TestTrend_ForecastBucketsAndRounding(t *testing.T) {
	db := database.NewMemoryDB()
	owner := primitive.NewObjectID()
	utc := time.UTC
	// no closeDate: bucketed by createdAt
	db.InsertDeal(models.Deal{Title: "a", Amount: 1001, Stage: "Lead", Probability: 50, OwnerID: owner,
		CreatedAt: time.Date(2025, 4, 3, 0, 0, 0, 0, utc)})
	// lost deals still carry a forecast weight
	db.InsertDeal(models.Deal{Title: "b", Amount: 3, Stage: "Closed Lost", Probability: 50, OwnerID: owner,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, utc), CloseDate: tp(time.Date(2025, 4, 28, 0, 0, 0, 0, utc))})
	// outside the window
	db.InsertDeal(models.Deal{Title: "c", Amount: 999999, Stage: "Lead", Probability: 90, OwnerID: owner,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, utc)})

	w := Window{Start: time.Date(2025, 4, 1, 0, 0, 0, 0, utc), End: time.Date(2025, 5, 31, 23, 59, 59, 0, utc), Location: utc}
	tr, err := NewService(NewMemoryStore(db), Options{}).PerformanceTrend(context.Background(), scope.All(), w)
	require.NoError(t, err)
	// 500.5 + 1.5 = 502
	require.Equal(t, 502.0, tr.Series[0].Forecast)
	require.Equal(t, 0.0, tr.Series[1].Forecast)
}

func TestBuildTrend_RoundsHalfAwayFromZero(t *testing.T) {
	w := Window{Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), Location: time.UTC}
	tr := BuildTrend(w, nil, map[string]float64{"2025-01": 12.5, "2025-02": 7.49})
	require.Equal(t, 13.0, tr.Series[0].Forecast)
	require.Equal(t, 7.0, tr.Series[1].Forecast)
	require.Equal(t, 20.0, tr.Totals.Forecast)
}

func TestTrend_MonthUsesTimezone(t *testing.T) {
	db := database.NewMemoryDB()
	// 2025-03-01 03:00 UTC is still February 28 in New York
	db.InsertDeal(models.Deal{Title: "late feb", Amount: 700, Stage: "Closed Won", Probability: 100, OwnerID: primitive.NewObjectID(),
		ClosedAt: tp(time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC))})
	loc := mustLoc("America/New_York")
	w, err := ResolveWindow(TrendQuery{From: "2025-02-01", To: "2025-03-31"}, time.Now(), loc)
	require.NoError(t, err)

	tr, err := NewService(NewMemoryStore(db), Options{}).PerformanceTrend(context.Background(), scope.All(), w)
	require.NoError(t, err)
	require.Equal(t, 700.0, tr.Series[0].Actual)
	require.Equal(t, 0.0, tr.Series[1].Actual)
}

var monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// The series has one entry per calendar month of the window, with no gaps or duplicates.
func TestBuildTrend_SeriesLength(t *testing.T) {
	locs := []*time.Location{time.UTC, mustLoc("America/New_York"), mustLoc("Asia/Kolkata"), mustLoc("Pacific/Auckland")}
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, loc := range locs {
		for startOff := 0; startOff < 30; startOff += 7 {
			for span := 0; span < 40; span += 3 {
				start := monthStart(base.AddDate(0, startOff, 0), loc)
				end := start.AddDate(0, span, 17)
				tr := BuildTrend(Window{Start: start, End: end, Location: loc}, nil, nil)

				s, e := start.In(loc), end.In(loc)
				want := (e.Year()*12 + int(e.Month())) - (s.Year()*12 + int(s.Month())) + 1
				require.Len(t, tr.Series, want)
				require.Equal(t, want, tr.Range.Months)
				require.Equal(t, s.Format("2006-01"), tr.Series[0].Month)
				require.Equal(t, e.Format("2006-01"), tr.Series[len(tr.Series)-1].Month)

				seen := map[string]bool{}
				prev := ""
				for _, p := range tr.Series {
					require.Regexp(t, monthRe, p.Month)
					require.False(t, seen[p.Month])
					require.True(t, prev == "" || p.Month > prev)
					seen[p.Month] = true
					prev = p.Month
				}
			}
		}
	}
}

func TestBuildTrend_SameMonthWindowHasOneRow(t *testing.T) {
	at := time.Date(2025, 7, 9, 0, 0, 0, 0, time.UTC)
	tr := BuildTrend(Window{Start: at, End: at, Location: time.UTC}, nil, nil)
	require.Len(t, tr.Series, 1)
	require.Equal(t, "2025-07", tr.Series[0].Month)
}

func TestResolveWindow(t *testing.T) {
	ny := mustLoc("America/New_York")
	now := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

	w, err := ResolveWindow(TrendQuery{}, now, ny)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, ny), w.Start, "default is the last six months")
	require.Equal(t, now, w.End)
	require.Equal(t, 6, w.Months())

	w, err = ResolveWindow(TrendQuery{Range: "last12"}, now, ny)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, ny), w.Start)
	require.Equal(t, 12, w.Months())

	w, err = ResolveWindow(TrendQuery{From: "2025-01-20", To: "2025-03-31"}, now, ny)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, ny), w.Start, "start snaps to the first of its month")
	require.Equal(t, time.Date(2025, 3, 31, 23, 59, 59, 999999999, ny), w.End, "a date-only upper bound covers the whole day")

	w, err = ResolveWindow(TrendQuery{From: "2025-02-01T00:00:00Z", To: "2025-04-01T12:00:00Z"}, now, time.UTC)
	require.NoError(t, err)
	require.Equal(t, 3, w.Months())

	w, err = ResolveWindow(TrendQuery{To: "2025-03-31"}, now, ny)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, ny), w.Start, "a lone upper bound spans the named range back")

	for _, q := range []TrendQuery{
		{Range: "last7"},
		{From: "2025-05-01", To: "2025-04-01"},
		{From: "yesterday"},
		{To: "2025-13-01"},
	} {
		_, err := ResolveWindow(q, now, ny)
		require.ErrorIs(t, err, apperr.ErrValidation, "%+v", q)
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("", time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)

	loc, err = LoadLocation("Europe/Berlin", time.UTC)
	require.NoError(t, err)
	require.Equal(t, "Europe/Berlin", loc.String())

	_, err = LoadLocation("Mars/Base", time.UTC)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestOptionalBound(t *testing.T) {
	ny := mustLoc("America/New_York")

	require.Nil(t, OptionalBound("", ny, false))
	require.Nil(t, OptionalBound("yesterday", ny, false), "malformed filters are dropped")

	from := OptionalBound("2025-03-01", ny, false)
	require.NotNil(t, from)
	require.True(t, from.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, ny)))

	to := OptionalBound("2025-03-31", ny, true)
	require.NotNil(t, to)
	require.True(t, to.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, ny).Add(-time.Nanosecond)))
}

package analytics

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dealflow/dealflow-api/internal/apperr"
)

// Named trend windows, each ending now.
const (
	RangeLast6  = "last6"
	RangeLast12 = "last12"
)

var rangeMonths = map[string]int{RangeLast6: 6, RangeLast12: 12}

// TrendQuery is the unparsed trend request. From and To accept YYYY-MM-DD or RFC3339.
type TrendQuery struct {
	Range string
	From  string
	To    string
}

// Window is a resolved trend window. Start is the first instant of its month
// in Location.
type Window struct {
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// Months is the inclusive calendar-month count of the window, at least 1.
func (w Window) Months() int {
	s, e := w.Start.In(w.Location), w.End.In(w.Location)
	n := (e.Year()*12 + int(e.Month())) - (s.Year()*12 + int(s.Month())) + 1
	if n < 1 {
		return 1
	}
	return n
}

func monthStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// parseBound parses a window bound. A date-only upper bound means the end of that day.
func parseBound(v string, loc *time.Location, upper bool) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", v, loc); err == nil {
		if upper {
			return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date %q, expected YYYY-MM-DD or RFC3339", v)
	}
	return t, nil
}

// ResolveWindow turns a query into a window at now in loc. An explicit bound
// wins over the named range; a missing upper bound is now and a missing lower
// bound spans the named range back from the upper one.
func ResolveWindow(q TrendQuery, now time.Time, loc *time.Location) (Window, error) {
	name := strings.TrimSpace(q.Range)
	if name == "" {
		name = RangeLast6
	}
	months, ok := rangeMonths[name]
	if !ok {
		return Window{}, apperr.Validation("unknown range %q, expected last6 or last12", q.Range)
	}

	end := now
	if v := strings.TrimSpace(q.To); v != "" {
		t, err := parseBound(v, loc, true)
		if err != nil {
			return Window{}, err
		}
		end = t
	}
	start := monthStart(end, loc).AddDate(0, -(months - 1), 0)
	if v := strings.TrimSpace(q.From); v != "" {
		t, err := parseBound(v, loc, false)
		if err != nil {
			return Window{}, err
		}
		if t.After(end) {
			return Window{}, apperr.Validation("from must not be after to")
		}
		start = monthStart(t, loc)
	}
	return Window{Start: start, End: end, Location: loc}, nil
}

// LoadLocation resolves an IANA timezone name, falling back to def when blank.
func LoadLocation(name string, def *time.Location) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return def, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperr.Validation("unknown timezone %q", name)
	}
	return loc, nil
}

type TrendPoint struct {
	Month    string  `json:"month"`
	Actual   float64 `json:"actual"`
	Forecast float64 `json:"forecast"`
}

type TrendRange struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Months   int       `json:"months"`
	Timezone string    `json:"timezone"`
}

type TrendTotals struct {
	Actual   float64 `json:"actual"`
	Forecast float64 `json:"forecast"`
}

type Trend struct {
	Range  TrendRange   `json:"range"`
	Series []TrendPoint `json:"series"`
	Totals TrendTotals  `json:"totals"`
}

// BuildTrend emits one point per calendar month of w, zero-filled where the
// sparse maps have nothing. Forecast month sums are rounded to whole units,
// half away from zero.
func BuildTrend(w Window, actuals, forecasts map[string]float64) Trend {
	n := w.Months()
	out := Trend{
		Range:  TrendRange{Start: w.Start, End: w.End, Months: n, Timezone: w.Location.String()},
		Series: make([]TrendPoint, 0, n),
	}
	actualSum, forecastSum := decimal.Zero, decimal.Zero
	cursor := monthStart(w.Start, w.Location)
	for i := 0; i < n; i++ {
		key := cursor.Format(monthLayout)
		actual := decimal.NewFromFloat(actuals[key]).Round(2)
		forecast := decimal.NewFromFloat(forecasts[key]).Round(0)
		out.Series = append(out.Series, TrendPoint{
			Month:    key,
			Actual:   actual.InexactFloat64(),
			Forecast: forecast.InexactFloat64(),
		})
		actualSum = actualSum.Add(actual)
		forecastSum = forecastSum.Add(forecast)
		cursor = cursor.AddDate(0, 1, 0)
	}
	out.Totals = TrendTotals{Actual: actualSum.InexactFloat64(), Forecast: forecastSum.InexactFloat64()}
	return out
}

// OptionalBound parses a lenient filter bound; blank or malformed values yield nil.
func OptionalBound(v string, loc *time.Location, upper bool) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	t, err := parseBound(v, loc, upper)
	if err != nil {
		return nil
	}
	return &t
}

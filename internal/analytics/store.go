// Package analytics computes the dashboard read models: KPIs, the stage
// summary, the activity overview and the actual-vs-forecast revenue trend.
// A Store does the grouping close to the data; the pure builders in this
// package shape the grouped rows into responses.
package analytics

import (
	"context"
	"time"

	"github.com/dealflow/dealflow-api/internal/models"
	"github.com/dealflow/dealflow-api/internal/scope"
)

// DealFilter narrows the deals a stage grouping sees.
type DealFilter struct {
	Scope       scope.Scope
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	// Title is matched as a case-insensitive literal substring.
	Title string
}

// StageGroup is one stage bucket of live deals.
type StageGroup struct {
	Stage          string  `bson:"_id"`
	Count          int64   `bson:"count"`
	TotalValue     float64 `bson:"totalValue"`
	SumProbability float64 `bson:"sumProbability"`
	// WeightedSum is Σ amount × probability, still scaled by 100.
	WeightedSum float64 `bson:"weightedSum"`
}

// ActivityFilter narrows the activities an overview sees.
type ActivityFilter struct {
	Scope   scope.Scope
	DueFrom *time.Time
	DueTo   *time.Time
}

// ActivityCell counts live activities sharing type, priority, status and
// overdue-ness (open with dueAt before now).
type ActivityCell struct {
	Type     string
	Priority string
	Status   string
	Overdue  bool
	Count    int64
}

// TrendFilter selects deals for the monthly series. Months are keyed
// "YYYY-MM" in Location.
type TrendFilter struct {
	Scope    scope.Scope
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// Store is the read side the aggregators run against.
type Store interface {
	GroupDealsByStage(ctx context.Context, f DealFilter) ([]StageGroup, error)
	CountContacts(ctx context.Context, sc scope.Scope) (int64, error)
	GroupActivities(ctx context.Context, f ActivityFilter, now time.Time) ([]ActivityCell, error)
	// NextDueActivities returns open activities by dueAt, then _id, ascending.
	NextDueActivities(ctx context.Context, f ActivityFilter, limit int) ([]models.Activity, error)
	// MonthlyWon sums amount of Closed Won deals by closedAt month.
	MonthlyWon(ctx context.Context, f TrendFilter) (map[string]float64, error)
	// MonthlyForecast sums amount × probability/100 of every other deal by
	// the month of closeDate, falling back to createdAt. Sums are unrounded.
	MonthlyForecast(ctx context.Context, f TrendFilter) (map[string]float64, error)
	// QuotaForYear returns the stored annual target; ok is false when none exists.
	QuotaForYear(ctx context.Context, year int) (target float64, ok bool, err error)
}

const monthLayout = "2006-01"

func monthKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(monthLayout)
}

package analytics

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/database"
	"github.com/dealflow/dealflow-api/internal/models"
	"github.com/dealflow/dealflow-api/internal/scope"
)

// MemoryStore runs the groupings over a database.MemoryDB.
type MemoryStore struct {
	db *database.MemoryDB
}

func NewMemoryStore(db *database.MemoryDB) *MemoryStore {
	return &MemoryStore{db: db}
}

func ownedBy(sc scope.Scope, owner primitive.ObjectID) bool {
	return !sc.Restricted() || *sc.OwnerID == owner
}

func within(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func (m *MemoryStore) GroupDealsByStage(ctx context.Context, f DealFilter) ([]StageGroup, error) {
	needle := strings.ToLower(f.Title)
	groups := map[string]*StageGroup{}
	var order []string
	for _, d := range m.db.Deals() {
		if !d.Live() || !ownedBy(f.Scope, d.OwnerID) || !within(d.CreatedAt, f.CreatedFrom, f.CreatedTo) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(d.Title), needle) {
			continue
		}
		g, ok := groups[d.Stage]
		if !ok {
			g = &StageGroup{Stage: d.Stage}
			groups[d.Stage] = g
			order = append(order, d.Stage)
		}
		g.Count++
		g.TotalValue += d.Amount
		g.SumProbability += float64(d.Probability)
		g.WeightedSum += d.Amount * float64(d.Probability)
	}
	out := make([]StageGroup, 0, len(order))
	for _, s := range order {
		out = append(out, *groups[s])
	}
	return out, nil
}

func (m *MemoryStore) CountContacts(ctx context.Context, sc scope.Scope) (int64, error) {
	var n int64
	for _, c := range m.db.Contacts() {
		if c.Live() && ownedBy(sc, c.OwnerID) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) activities(f ActivityFilter) []models.Activity {
	var out []models.Activity
	for _, a := range m.db.Activities() {
		if a.Live() && ownedBy(f.Scope, a.OwnerID) && within(a.DueAt, f.DueFrom, f.DueTo) {
			out = append(out, a)
		}
	}
	return out
}

func (m *MemoryStore) GroupActivities(ctx context.Context, f ActivityFilter, now time.Time) ([]ActivityCell, error) {
	type key struct {
		typ, priority, status string
		overdue               bool
	}
	counts := map[key]int64{}
	var order []key
	for _, a := range m.activities(f) {
		k := key{a.Type, a.Priority, a.Status, a.Status == models.StatusOpen && a.DueAt.Before(now)}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}
	out := make([]ActivityCell, 0, len(order))
	for _, k := range order {
		out = append(out, ActivityCell{Type: k.typ, Priority: k.priority, Status: k.status, Overdue: k.overdue, Count: counts[k]})
	}
	return out, nil
}

func (m *MemoryStore) NextDueActivities(ctx context.Context, f ActivityFilter, limit int) ([]models.Activity, error) {
	var open []models.Activity
	for _, a := range m.activities(f) {
		if a.Status == models.StatusOpen {
			open = append(open, a)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if !open[i].DueAt.Equal(open[j].DueAt) {
			return open[i].DueAt.Before(open[j].DueAt)
		}
		return bytes.Compare(open[i].ID[:], open[j].ID[:]) < 0
	})
	if len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

func (m *MemoryStore) MonthlyWon(ctx context.Context, f TrendFilter) (map[string]float64, error) {
	out := map[string]float64{}
	for _, d := range m.db.Deals() {
		if !d.Live() || d.Stage != models.StageClosedWon || d.ClosedAt == nil || !ownedBy(f.Scope, d.OwnerID) {
			continue
		}
		if !within(*d.ClosedAt, &f.Start, &f.End) {
			continue
		}
		out[monthKey(*d.ClosedAt, f.Location)] += d.Amount
	}
	return out, nil
}

func (m *MemoryStore) MonthlyForecast(ctx context.Context, f TrendFilter) (map[string]float64, error) {
	out := map[string]float64{}
	for _, d := range m.db.Deals() {
		if !d.Live() || d.Stage == models.StageClosedWon || !ownedBy(f.Scope, d.OwnerID) {
			continue
		}
		at := d.ForecastDate()
		if !within(at, &f.Start, &f.End) {
			continue
		}
		out[monthKey(at, f.Location)] += d.Amount * float64(d.Probability) / 100
	}
	return out, nil
}

func (m *MemoryStore) QuotaForYear(ctx context.Context, year int) (float64, bool, error) {
	q, ok := m.db.Quota(year)
	return q.Target, ok, nil
}

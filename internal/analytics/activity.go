package analytics

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/models"
)

// NextDueLimit is how many upcoming open activities the overview lists.
const NextDueLimit = 5

type ActivityTotals struct {
	Open      int64 `json:"open"`
	Completed int64 `json:"completed"`
	Overdue   int64 `json:"overdue"`
	Upcoming  int64 `json:"upcoming"`
}

type facetCounts struct {
	Open      int64 `json:"open"`
	Completed int64 `json:"completed"`
	Overdue   int64 `json:"overdue"`
}

func (f *facetCounts) add(c ActivityCell) {
	switch c.Status {
	case models.StatusOpen:
		f.Open += c.Count
		if c.Overdue {
			f.Overdue += c.Count
		}
	case models.StatusCompleted:
		f.Completed += c.Count
	}
}

type TypeRow struct {
	Type string `json:"type"`
	facetCounts
}

type PriorityRow struct {
	Priority string `json:"priority"`
	facetCounts
}

type DueItem struct {
	ID       primitive.ObjectID `json:"id"`
	Title    string             `json:"title"`
	Type     string             `json:"type"`
	Priority string             `json:"priority"`
	DueAt    time.Time          `json:"dueAt"`
	OwnerID  primitive.ObjectID `json:"ownerId"`
}

type ActivityOverview struct {
	Totals     ActivityTotals `json:"totals"`
	ByType     []TypeRow      `json:"byType"`
	ByPriority []PriorityRow  `json:"byPriority"`
	Next5      []DueItem      `json:"next5"`
}

// BuildActivityOverview folds the grouped cells into totals and one row per
// known type and priority, zero rows included. Canceled activities count
// toward nothing. Cells with an unknown type or priority still reach totals.
func BuildActivityOverview(cells []ActivityCell, next []models.Activity) ActivityOverview {
	out := ActivityOverview{
		ByType:     make([]TypeRow, len(models.ActivityTypes)),
		ByPriority: make([]PriorityRow, len(models.ActivityPriorities)),
		Next5:      make([]DueItem, 0, len(next)),
	}
	typeIdx := make(map[string]int, len(models.ActivityTypes))
	for i, t := range models.ActivityTypes {
		out.ByType[i].Type = t
		typeIdx[t] = i
	}
	prioIdx := make(map[string]int, len(models.ActivityPriorities))
	for i, p := range models.ActivityPriorities {
		out.ByPriority[i].Priority = p
		prioIdx[p] = i
	}

	for _, c := range cells {
		switch c.Status {
		case models.StatusOpen:
			out.Totals.Open += c.Count
			if c.Overdue {
				out.Totals.Overdue += c.Count
			} else {
				out.Totals.Upcoming += c.Count
			}
		case models.StatusCompleted:
			out.Totals.Completed += c.Count
		}
		if i, ok := typeIdx[c.Type]; ok {
			out.ByType[i].add(c)
		}
		if i, ok := prioIdx[c.Priority]; ok {
			out.ByPriority[i].add(c)
		}
	}

	for _, a := range next {
		out.Next5 = append(out.Next5, DueItem{
			ID:       a.ID,
			Title:    a.Title,
			Type:     a.Type,
			Priority: a.Priority,
			DueAt:    a.DueAt,
			OwnerID:  a.OwnerID,
		})
	}
	return out
}

package analytics

import (
	"github.com/dealflow/dealflow-api/internal/models"
)

// KPIs is the flat scalar metric set of the dashboard header.
type KPIs struct {
	TotalDeals       int64   `json:"totalDeals"`
	WonDeals         int64   `json:"wonDeals"`
	TotalContacts    int64   `json:"totalContacts"`
	OpenActivities   int64   `json:"openActivities"`
	PipelineValue    float64 `json:"pipelineValue"`
	WonValue         float64 `json:"wonValue"`
	QuotaTarget      float64 `json:"quotaTarget"`
	QuotaAchievement float64 `json:"quotaAchievement"`
	WinRate          float64 `json:"winRate"`
}

// percent is x/y*100, or 0 when y is not positive.
func percent(x, y float64) float64 {
	if y <= 0 {
		return 0
	}
	return x / y * 100
}

// ComputeKPIs folds stage groups and activity cells into the KPI set.
// Pipeline value covers every stage that is not closed, registry stages included.
func ComputeKPIs(groups []StageGroup, cells []ActivityCell, contacts int64, quotaTarget float64) KPIs {
	k := KPIs{TotalContacts: contacts, QuotaTarget: quotaTarget}
	for _, g := range groups {
		k.TotalDeals += g.Count
		switch {
		case g.Stage == models.StageClosedWon:
			k.WonDeals += g.Count
			k.WonValue += g.TotalValue
		case !models.IsClosedStage(g.Stage):
			k.PipelineValue += g.TotalValue
		}
	}
	for _, c := range cells {
		if c.Status == models.StatusOpen {
			k.OpenActivities += c.Count
		}
	}
	k.QuotaAchievement = percent(k.WonValue, quotaTarget)
	k.WinRate = percent(float64(k.WonDeals), float64(k.TotalDeals))
	return k
}

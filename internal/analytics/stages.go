package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/dealflow/dealflow-api/internal/models"
)

// SummaryStages are the buckets of the stage summary, in display order.
// Closed Lost is not among them, so lost deals appear in neither rows nor totals.
var SummaryStages = []string{
	models.StageLead,
	models.StageQualified,
	models.StageProposal,
	models.StageNegotiation,
	models.StageClosedWon,
}

var hundred = decimal.NewFromInt(100)

type StageRow struct {
	Stage          string  `json:"stage"`
	Count          int64   `json:"count"`
	TotalValue     float64 `json:"totalValue"`
	AvgProbability float64 `json:"avgProbability"`
	WeightedValue  float64 `json:"weightedValue"`
}

type StageTotals struct {
	Count         int64   `json:"count"`
	TotalValue    float64 `json:"totalValue"`
	WeightedValue float64 `json:"weightedValue"`
}

type StageSummary struct {
	Stages []StageRow   `json:"stages"`
	Totals StageTotals `json:"totals"`
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// SummarizeStages returns exactly one row per SummaryStages entry, zero-filled
// for stages without deals, plus field-wise totals over those rows. Money is
// rounded to cents per row before it is totalled.
func SummarizeStages(groups []StageGroup) StageSummary {
	byStage := make(map[string]StageGroup, len(groups))
	for _, g := range groups {
		byStage[g.Stage] = g
	}

	out := StageSummary{Stages: make([]StageRow, 0, len(SummaryStages))}
	totalValue, weighted := decimal.Zero, decimal.Zero
	for _, name := range SummaryStages {
		row := StageRow{Stage: name}
		if g, ok := byStage[name]; ok && g.Count > 0 {
			value := decimal.NewFromFloat(g.TotalValue).Round(2)
			w := decimal.NewFromFloat(g.WeightedSum).Div(hundred).Round(2)
			row.Count = g.Count
			row.TotalValue = money(value)
			row.WeightedValue = money(w)
			row.AvgProbability = decimal.NewFromFloat(g.SumProbability).Div(decimal.NewFromInt(g.Count)).Round(2).InexactFloat64()

			out.Totals.Count += g.Count
			totalValue = totalValue.Add(value)
			weighted = weighted.Add(w)
		}
		out.Stages = append(out.Stages, row)
	}
	out.Totals.TotalValue = money(totalValue)
	out.Totals.WeightedValue = money(weighted)
	return out
}

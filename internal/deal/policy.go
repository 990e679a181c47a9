// Package deal holds the stage-transition policy and the deal stage-change path.
package deal

import (
	"time"

	"github.com/dealflow/dealflow-api/internal/models"
)

var defaultProbabilities = map[string]int{
	models.StageLead:        10,
	models.StageQualified:   40,
	models.StageProposal:    60,
	models.StageNegotiation: 80,
	models.StageClosedWon:   100,
	models.StageClosedLost:  0,
}

// DefaultProbability returns the win probability a deal takes on when it
// enters stage without an explicit override. ok is false for names outside
// the six enumerated stages.
func DefaultProbability(stage string) (int, bool) {
	p, ok := defaultProbabilities[stage]
	return p, ok
}

// ApplyTransition moves d into stage at now. A non-nil override is used as
// the probability verbatim; otherwise the stage default applies, and for
// unknown stage names the current probability is kept. Entering Closed Won
// stamps ClosedAt unless it is already set; leaving Closed Won clears it.
func ApplyTransition(d *models.Deal, stage string, override *int, now time.Time) {
	prev := d.Stage
	d.Stage = stage
	switch {
	case override != nil:
		d.Probability = *override
	default:
		if p, ok := DefaultProbability(stage); ok {
			d.Probability = p
		}
	}
	switch {
	case stage == models.StageClosedWon && d.ClosedAt == nil:
		at := now.UTC()
		d.ClosedAt = &at
	case prev == models.StageClosedWon && stage != models.StageClosedWon:
		d.ClosedAt = nil
	}
	d.UpdatedAt = now.UTC()
}

package analytics

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/database"
	"github.com/dealflow/dealflow-api/internal/models"
)

func tp(t time.Time) *time.Time { return &t }

func mustLoc(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// scenarioDeals loads the six-deal pipeline used across the dashboard tests.
func scenarioDeals(db *database.MemoryDB, owner primitive.ObjectID) {
	stages := []string{"Lead", "Lead", "Qualified", "Proposal", "Negotiation", "Closed Won"}
	amounts := []float64{45000, 28000, 75000, 250000, 180000, 35000}
	probs := []int{20, 25, 40, 70, 85, 100}
	titles := []string{"Acme onboarding", "Globex pilot", "Initech rollout", "Umbrella platform", "Hooli expansion", "Stark renewal"}
	created := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	for i := range stages {
		d := models.Deal{
			Title:       titles[i],
			Amount:      amounts[i],
			Stage:       stages[i],
			Probability: probs[i],
			OwnerID:     owner,
			CreatedAt:   created.AddDate(0, 0, i),
		}
		if stages[i] == models.StageClosedWon {
			d.ClosedAt = tp(time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC))
		}
		db.InsertDeal(d)
	}
}

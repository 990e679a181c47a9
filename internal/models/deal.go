package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Deal stage names. The stored value is the literal string.
const (
	StageLead        = "Lead"
	StageQualified   = "Qualified"
	StageProposal    = "Proposal"
	StageNegotiation = "Negotiation"
	StageClosedWon   = "Closed Won"
	StageClosedLost  = "Closed Lost"
)

// DealStages is the fixed stage enumeration in pipeline order.
var DealStages = []string{StageLead, StageQualified, StageProposal, StageNegotiation, StageClosedWon, StageClosedLost}

// IsDealStage reports whether name is one of the six enumerated stages.
func IsDealStage(name string) bool {
	for _, s := range DealStages {
		if s == name {
			return true
		}
	}
	return false
}

// IsClosedStage reports whether the stage ends the deal lifecycle.
func IsClosedStage(name string) bool {
	return name == StageClosedWon || name == StageClosedLost
}

type Deal struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title       string              `bson:"title" json:"title"`
	Amount      float64             `bson:"amount" json:"amount"`
	Stage       string              `bson:"stage" json:"stage"`
	Probability int                 `bson:"probability" json:"probability"`
	OwnerID     primitive.ObjectID  `bson:"ownerId" json:"ownerId"`
	ContactID   *primitive.ObjectID `bson:"contactId,omitempty" json:"contactId,omitempty"`
	CloseDate   *time.Time          `bson:"closeDate,omitempty" json:"closeDate,omitempty"`
	ClosedAt    *time.Time          `bson:"closedAt,omitempty" json:"closedAt,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
	DeletedAt   *time.Time          `bson:"deletedAt" json:"deletedAt,omitempty"`
}

// Live reports whether the deal is not soft-deleted.
func (d *Deal) Live() bool { return d.DeletedAt == nil }

// ForecastDate is the date a non-won deal is bucketed under: the expected
// close date when present, otherwise the creation time.
func (d *Deal) ForecastDate() time.Time {
	if d.CloseDate != nil {
		return *d.CloseDate
	}
	return d.CreatedAt
}

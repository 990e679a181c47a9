package stage

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stage types.
const (
	TypeOpen = "open"
	TypeWon  = "won"
	TypeLost = "lost"
)

// Stage is one entry of the pipeline-stage registry. Deals reference an entry
// by Name; Probability, Color and Order are display metadata.
type Stage struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Probability int                `json:"probability" bson:"probability"`
	Type        string             `json:"type" bson:"type"`
	Color       string             `json:"color,omitempty" bson:"color,omitempty"`
	Order       int                `json:"order" bson:"order"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=50"`
	Probability *int    `json:"probability,omitempty" validate:"omitempty,min=0,max=100"`
	Type        *string `json:"type,omitempty" validate:"omitempty,oneof=open won lost"`
	Color       *string `json:"color,omitempty" validate:"omitempty,max=32"`
	Order       *int    `json:"order,omitempty" validate:"omitempty,min=0"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Probability == nil && p.Type == nil && p.Color == nil && p.Order == nil
}

// Apply copies the set fields onto s.
func (p Patch) Apply(s *Stage) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Probability != nil {
		s.Probability = *p.Probability
	}
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.Color != nil {
		s.Color = *p.Color
	}
	if p.Order != nil {
		s.Order = *p.Order
	}
}

// OrderUpdate assigns a new order to one stage during a reorder.
type OrderUpdate struct {
	ID    primitive.ObjectID
	Order int
}

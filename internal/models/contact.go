package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Contact struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	OwnerID   primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	DeletedAt *time.Time         `bson:"deletedAt" json:"deletedAt,omitempty"`
}

func (c *Contact) Live() bool { return c.DeletedAt == nil }

// Quota is the annual revenue target for one calendar year.
type Quota struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Year   int                `bson:"year" json:"year"`
	Target float64            `bson:"target" json:"target"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ActivityCall    = "call"
	ActivityEmail   = "email"
	ActivityMeeting = "meeting"
	ActivityTask    = "task"

	StatusOpen      = "open"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var (
	ActivityTypes      = []string{ActivityCall, ActivityEmail, ActivityMeeting, ActivityTask}
	ActivityPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
)

type Activity struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Type      string             `bson:"type" json:"type"`
	Status    string             `bson:"status" json:"status"`
	Priority  string             `bson:"priority" json:"priority"`
	DueAt     time.Time          `bson:"dueAt" json:"dueAt"`
	OwnerID   primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	DeletedAt *time.Time         `bson:"deletedAt" json:"deletedAt,omitempty"`
}

func (a *Activity) Live() bool { return a.DeletedAt == nil }

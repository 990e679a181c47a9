package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dealflow/dealflow-api/internal/models"
)

// MongoRepo implements Repository on the deals collection.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

func liveByID(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "deletedAt": nil}
}

func (m *MongoRepo) Get(ctx context.Context, id primitive.ObjectID) (*models.Deal, error) {
	var d models.Deal
	if err := m.col.FindOne(ctx, liveByID(id)).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// stageUpdate builds the update document for SaveStage. A nil ClosedAt is
// unset rather than stored as null.
func stageUpdate(d *models.Deal) bson.M {
	set := bson.M{
		"stage":       d.Stage,
		"probability": d.Probability,
		"updatedAt":   d.UpdatedAt,
	}
	if d.ClosedAt != nil {
		set["closedAt"] = *d.ClosedAt
		return bson.M{"$set": set}
	}
	return bson.M{"$set": set, "$unset": bson.M{"closedAt": ""}}
}

func (m *MongoRepo) SaveStage(ctx context.Context, d *models.Deal) error {
	res, err := m.col.UpdateOne(ctx, liveByID(d.ID), stageUpdate(d))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) CountLiveByStage(ctx context.Context, stage string) (int64, error) {
	return m.col.CountDocuments(ctx, bson.M{"stage": stage, "deletedAt": nil})
}

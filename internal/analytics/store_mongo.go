package analytics

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dealflow/dealflow-api/internal/database"
	"github.com/dealflow/dealflow-api/internal/models"
	"github.com/dealflow/dealflow-api/internal/scope"
)

// MongoStore runs the groupings as aggregation pipelines.
type MongoStore struct {
	deals      *mongo.Collection
	activities *mongo.Collection
	contacts   *mongo.Collection
	quotas     *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		deals:      db.Collection(database.DealsCollection),
		activities: db.Collection(database.ActivitiesCollection),
		contacts:   db.Collection(database.ContactsCollection),
		quotas:     db.Collection(database.QuotasCollection),
	}
}

func (m *MongoStore) GroupDealsByStage(ctx context.Context, f DealFilter) ([]StageGroup, error) {
	cur, err := m.deals.Aggregate(ctx, stageGroupPipeline(f))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []StageGroup
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoStore) CountContacts(ctx context.Context, sc scope.Scope) (int64, error) {
	return m.contacts.CountDocuments(ctx, liveMatch(sc))
}

func (m *MongoStore) GroupActivities(ctx context.Context, f ActivityFilter, now time.Time) ([]ActivityCell, error) {
	cur, err := m.activities.Aggregate(ctx, activityGroupPipeline(f, now))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []ActivityCell
	for cur.Next(ctx) {
		var doc struct {
			ID struct {
				Type     string `bson:"type"`
				Priority string `bson:"priority"`
				Status   string `bson:"status"`
				Overdue  bool   `bson:"overdue"`
			} `bson:"_id"`
			Count int64 `bson:"count"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, ActivityCell{
			Type:     doc.ID.Type,
			Priority: doc.ID.Priority,
			Status:   doc.ID.Status,
			Overdue:  doc.ID.Overdue,
			Count:    doc.Count,
		})
	}
	return out, cur.Err()
}

func (m *MongoStore) NextDueActivities(ctx context.Context, f ActivityFilter, limit int) ([]models.Activity, error) {
	filter := activityMatch(f)
	filter["status"] = models.StatusOpen
	opts := options.Find().
		SetSort(bson.D{{Key: "dueAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := m.activities.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Activity
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoStore) monthly(ctx context.Context, pipeline []bson.M) (map[string]float64, error) {
	cur, err := m.deals.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]float64{}
	for cur.Next(ctx) {
		var doc struct {
			Month string  `bson:"_id"`
			Total float64 `bson:"total"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out[doc.Month] = doc.Total
	}
	return out, cur.Err()
}

func (m *MongoStore) MonthlyWon(ctx context.Context, f TrendFilter) (map[string]float64, error) {
	return m.monthly(ctx, wonMonthlyPipeline(f))
}

func (m *MongoStore) MonthlyForecast(ctx context.Context, f TrendFilter) (map[string]float64, error) {
	return m.monthly(ctx, forecastMonthlyPipeline(f))
}

func (m *MongoStore) QuotaForYear(ctx context.Context, year int) (float64, bool, error) {
	var q models.Quota
	err := m.quotas.FindOne(ctx, bson.M{"year": year}).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return q.Target, true, nil
}

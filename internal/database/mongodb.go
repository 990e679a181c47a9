package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared by the repositories and the seeder.
const (
	DealsCollection      = "deals"
	ActivitiesCollection = "activities"
	ContactsCollection   = "contacts"
	QuotasCollection     = "quotas"
	StagesCollection     = "pipeline_stages"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectMongoWithRetry retries ConnectMongo with exponential backoff to tolerate startup races.
func ConnectMongoWithRetry(ctx context.Context, uri string, timeout time.Duration, attempts int, onRetry func(attempt int, err error)) (*mongo.Client, error) {
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := ConnectMongo(ctx, uri, timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, lastErr
}

// IndexModels lists the indexes each collection needs for the dashboard queries.
func IndexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		DealsCollection: {
			{Keys: bson.D{{Key: "deletedAt", Value: 1}, {Key: "ownerId", Value: 1}, {Key: "stage", Value: 1}}},
			{Keys: bson.D{{Key: "stage", Value: 1}, {Key: "closedAt", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: 1}}},
		},
		ActivitiesCollection: {
			{Keys: bson.D{{Key: "deletedAt", Value: 1}, {Key: "status", Value: 1}, {Key: "dueAt", Value: 1}}},
			{Keys: bson.D{{Key: "ownerId", Value: 1}}},
		},
		ContactsCollection: {
			{Keys: bson.D{{Key: "deletedAt", Value: 1}, {Key: "ownerId", Value: 1}}},
		},
		QuotasCollection: {
			{Keys: bson.D{{Key: "year", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		StagesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}}},
		},
	}
}

// EnsureIndexes creates the indexes from IndexModels. Existing identical indexes are a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range IndexModels() {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", coll, err)
		}
	}
	return nil
}

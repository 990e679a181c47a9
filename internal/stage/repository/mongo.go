package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dealflow/dealflow-api/internal/stage"
)

// MongoRepo implements Repository on the pipeline_stages collection. Name
// uniqueness relies on the unique index created by database.EnsureIndexes.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

func (m *MongoRepo) List(ctx context.Context) ([]*stage.Stage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*stage.Stage{}
	for cur.Next(ctx) {
		var s stage.Stage
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, cur.Err()
}

func (m *MongoRepo) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*stage.Stage, error) {
	var s stage.Stage
	if err := m.col.FindOne(ctx, filter, opts...).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (m *MongoRepo) Get(ctx context.Context, id primitive.ObjectID) (*stage.Stage, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoRepo) FindByName(ctx context.Context, name string) (*stage.Stage, error) {
	return m.findOne(ctx, bson.M{"name": name})
}

func (m *MongoRepo) MaxOrder(ctx context.Context) (int, bool, error) {
	s, err := m.findOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "order", Value: -1}}))
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return s.Order, true, nil
}

func (m *MongoRepo) Create(ctx context.Context, s *stage.Stage) error {
	now := time.Now().UTC()
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	s.CreatedAt = now
	s.UpdatedAt = now
	if _, err := m.col.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateName
		}
		return err
	}
	return nil
}

// patchSet builds the $set document for a Patch.
func patchSet(p stage.Patch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Probability != nil {
		set["probability"] = *p.Probability
	}
	if p.Type != nil {
		set["type"] = *p.Type
	}
	if p.Color != nil {
		set["color"] = *p.Color
	}
	if p.Order != nil {
		set["order"] = *p.Order
	}
	return set
}

func (m *MongoRepo) Update(ctx context.Context, id primitive.ObjectID, p stage.Patch) (*stage.Stage, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var s stage.Stage
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": patchSet(p, time.Now().UTC())}, opts).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return &s, nil
}

func (m *MongoRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// orderWrites turns a reorder into one UpdateOne per stage. The $ne guard keeps
// unchanged stages out of the modified count and leaves their updatedAt alone.
func orderWrites(updates []stage.OrderUpdate, now time.Time) []mongo.WriteModel {
	writes := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": u.ID, "order": bson.M{"$ne": u.Order}}).
			SetUpdate(bson.M{"$set": bson.M{"order": u.Order, "updatedAt": now}}))
	}
	return writes
}

func (m *MongoRepo) ApplyOrders(ctx context.Context, updates []stage.OrderUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	res, err := m.col.BulkWrite(ctx, orderWrites(updates, time.Now().UTC()), options.BulkWrite().SetOrdered(true))
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

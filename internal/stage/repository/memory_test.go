package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dealflow/dealflow-api/internal/stage"
)

func TestMemoryRepo_ListOrdersByOrderThenID(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	first := &stage.Stage{ID: primitive.NewObjectIDFromTimestamp(time.Unix(1000, 0)), Name: "first", Order: 1}
	second := &stage.Stage{ID: primitive.NewObjectIDFromTimestamp(time.Unix(2000, 0)), Name: "second", Order: 1}
	zero := &stage.Stage{Name: "zero", Order: 0}
	for _, s := range []*stage.Stage{second, zero, first} {
		require.NoError(t, r.Create(ctx, s))
	}

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "zero", list[0].Name)
	require.Equal(t, "first", list[1].Name)
	require.Equal(t, "second", list[2].Name)

	max, ok, err := r.MaxOrder(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, max)
}

func TestMemoryRepo_CRUD(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	_, ok, err := r.MaxOrder(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	s := &stage.Stage{Name: "Lead", Probability: 10, Type: stage.TypeOpen}
	require.NoError(t, r.Create(ctx, s))
	require.False(t, s.ID.IsZero())
	require.ErrorIs(t, r.Create(ctx, &stage.Stage{Name: "Lead"}), ErrDuplicateName)

	found, err := r.FindByName(ctx, "Lead")
	require.NoError(t, err)
	require.Equal(t, s.ID, found.ID)

	// returned values are copies
	found.Name = "mutated"
	again, err := r.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "Lead", again.Name)

	name := "Prospect"
	updated, err := r.Update(ctx, s.ID, stage.Patch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Prospect", updated.Name)

	n, err := r.ApplyOrders(ctx, []stage.OrderUpdate{{ID: s.ID, Order: 0}, {ID: primitive.NewObjectID(), Order: 4}})
	require.NoError(t, err)
	require.Equal(t, int64(0), n, "unchanged and unknown stages are not counted")

	require.NoError(t, r.Delete(ctx, s.ID))
	require.ErrorIs(t, r.Delete(ctx, s.ID), ErrNotFound)
	_, err = r.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOrderWrites(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	writes := orderWrites([]stage.OrderUpdate{{ID: a, Order: 0}, {ID: b, Order: 1}}, now)
	require.Len(t, writes, 2)

	m, ok := writes[1].(*mongo.UpdateOneModel)
	require.True(t, ok)
	require.Equal(t, bson.M{"_id": b, "order": bson.M{"$ne": 1}}, m.Filter)
	require.Equal(t, bson.M{"$set": bson.M{"order": 1, "updatedAt": now}}, m.Update)
}

func TestPatchSet(t *testing.T) {
	now := time.Now()
	prob, color := 35, "#f59e0b"
	set := patchSet(stage.Patch{Probability: &prob, Color: &color}, now)
	require.Equal(t, bson.M{"probability": 35, "color": "#f59e0b", "updatedAt": now}, set)
}

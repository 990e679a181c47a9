package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/database"
	"github.com/dealflow/dealflow-api/internal/models"
)

func TestMemoryRepo(t *testing.T) {
	db := database.NewMemoryDB()
	ctx := context.Background()
	owner := primitive.NewObjectID()
	live := db.InsertDeal(models.Deal{Title: "Acme", Stage: models.StageProposal, OwnerID: owner})
	db.InsertDeal(models.Deal{Title: "Globex", Stage: models.StageProposal, OwnerID: owner})
	gone := db.InsertDeal(models.Deal{Title: "Initech", Stage: models.StageProposal, OwnerID: owner})
	require.NoError(t, db.SoftDeleteDeal(gone))

	r := NewMemoryRepo(db)
	n, err := r.CountLiveByStage(ctx, models.StageProposal)
	require.NoError(t, err)
	require.Equal(t, int64(2), n, "soft-deleted deals do not reference a stage")

	_, err = r.Get(ctx, gone)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get(ctx, primitive.NewObjectID())
	require.ErrorIs(t, err, ErrNotFound)

	d, err := r.Get(ctx, live)
	require.NoError(t, err)
	d.Stage = models.StageNegotiation
	d.Probability = 80
	d.Title = "ignored"
	require.NoError(t, r.SaveStage(ctx, d))

	stored, err := db.Deal(live)
	require.NoError(t, err)
	require.Equal(t, models.StageNegotiation, stored.Stage)
	require.Equal(t, 80, stored.Probability)
	require.Equal(t, "Acme", stored.Title, "only stage fields are written")

	require.ErrorIs(t, r.SaveStage(ctx, &models.Deal{ID: gone}), ErrNotFound)
}

func TestStageUpdate(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	d := &models.Deal{Stage: models.StageClosedWon, Probability: 100, UpdatedAt: now, ClosedAt: &now}
	require.Equal(t, bson.M{"$set": bson.M{"stage": "Closed Won", "probability": 100, "updatedAt": now, "closedAt": now}}, stageUpdate(d))

	d = &models.Deal{Stage: models.StageLead, Probability: 10, UpdatedAt: now}
	require.Equal(t, bson.M{
		"$set":   bson.M{"stage": "Lead", "probability": 10, "updatedAt": now},
		"$unset": bson.M{"closedAt": ""},
	}, stageUpdate(d))
}

package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/analytics"
	"github.com/dealflow/dealflow-api/internal/database"
	"github.com/dealflow/dealflow-api/internal/models"
	"github.com/dealflow/dealflow-api/internal/scope"
	"github.com/dealflow/dealflow-api/internal/stage"
	"github.com/dealflow/dealflow-api/internal/stage/repository"
)

func TestDefaultStages(t *testing.T) {
	st := DefaultStages(time.Now())
	require.Len(t, st, len(models.DealStages))
	require.Equal(t, "Lead", st[0].Name)
	require.Equal(t, 10, st[0].Probability)
	require.Equal(t, stage.TypeWon, st[4].Type)
	require.Equal(t, stage.TypeLost, st[5].Type)
	require.Equal(t, 5, st[5].Order)
}

func TestLoadMemory_FeedsDashboard(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDB()
	stages := repository.NewMemoryRepo()
	owner := primitive.NewObjectID()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, LoadMemory(ctx, db, stages, Demo(owner, now)))
	// a second load must not duplicate registry entries
	require.NoError(t, LoadMemory(ctx, db, stages, Demo(owner, now)))
	list, err := stages.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 6)

	svc := analytics.NewService(analytics.NewMemoryStore(db), analytics.Options{QuotaTarget: 1, Location: time.UTC})
	k, err := svc.KPIs(ctx, scope.Owner(owner), now)
	require.NoError(t, err)
	require.Equal(t, int64(12), k.TotalDeals)
	require.Equal(t, int64(2), k.WonDeals)
	require.Equal(t, float64(DemoQuota), k.QuotaTarget)
	require.Equal(t, int64(6), k.TotalContacts)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/apperr"
	"github.com/dealflow/dealflow-api/internal/database"
	"github.com/dealflow/dealflow-api/internal/deal/repository"
	"github.com/dealflow/dealflow-api/internal/models"
	"github.com/dealflow/dealflow-api/internal/stage"
	stagerepo "github.com/dealflow/dealflow-api/internal/stage/repository"
	stageservice "github.com/dealflow/dealflow-api/internal/stage/service"
	"github.com/dealflow/dealflow-api/pkg/lock"
)

// catalog records whether fn ran inside WithStage.
type catalog struct {
	names map[string]bool
	runs  int
}

func (c *catalog) WithStage(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error) {
	if !c.names[name] {
		return false, nil
	}
	c.runs++
	return true, fn(ctx)
}

func intp(v int) *int { return &v }

type fixture struct {
	svc   *Service
	cat   *catalog
	db    *database.MemoryDB
	owner *models.User
	other *models.User
	admin *models.User
	deal  primitive.ObjectID
	now   time.Time
}

func newFixture() *fixture {
	db := database.NewMemoryDB()
	owner := &models.User{ID: primitive.NewObjectID(), Role: "rep"}
	f := &fixture{
		db:    db,
		owner: owner,
		other: &models.User{ID: primitive.NewObjectID(), Role: "rep"},
		admin: &models.User{ID: primitive.NewObjectID(), Role: "Admin"},
		now:   time.Date(2025, 6, 3, 15, 0, 0, 0, time.UTC),
	}
	f.deal = db.InsertDeal(models.Deal{Title: "Acme renewal", Amount: 45000, Stage: models.StageLead, Probability: 20, OwnerID: owner.ID})
	f.cat = &catalog{names: map[string]bool{"Discovery": true}}
	f.svc = NewService(repository.NewMemoryRepo(db), f.cat)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestChangeStage_DefaultsProbability(t *testing.T) {
	f := newFixture()
	d, err := f.svc.ChangeStage(context.Background(), f.owner, f.deal.Hex(), ChangeStageInput{Stage: "Qualified"})
	require.NoError(t, err)
	require.Equal(t, "Qualified", d.Stage)
	require.Equal(t, 40, d.Probability)

	stored, err := f.db.Deal(f.deal)
	require.NoError(t, err)
	require.Equal(t, 40, stored.Probability)
	require.Equal(t, f.now, stored.UpdatedAt)
}

func TestChangeStage_OverrideAndWin(t *testing.T) {
	f := newFixture()
	d, err := f.svc.ChangeStage(context.Background(), f.admin, f.deal.Hex(), ChangeStageInput{Stage: "Closed Won", Probability: intp(90)})
	require.NoError(t, err)
	require.Equal(t, 90, d.Probability)
	require.NotNil(t, d.ClosedAt)
	require.Equal(t, f.now, *d.ClosedAt)
}

func TestChangeStage_RegistryStageKeepsProbability(t *testing.T) {
	f := newFixture()
	d, err := f.svc.ChangeStage(context.Background(), f.owner, f.deal.Hex(), ChangeStageInput{Stage: "Discovery"})
	require.NoError(t, err)
	require.Equal(t, "Discovery", d.Stage)
	require.Equal(t, 20, d.Probability)
	require.Equal(t, 1, f.cat.runs, "registry moves are saved inside the catalog callback")

	_, err = f.svc.ChangeStage(context.Background(), f.owner, f.deal.Hex(), ChangeStageInput{Stage: "Proposal"})
	require.NoError(t, err)
	require.Equal(t, 1, f.cat.runs, "enumerated stages skip the registry")
}

func TestChangeStage_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.ChangeStage(ctx, f.other, f.deal.Hex(), ChangeStageInput{Stage: "Proposal"})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.ChangeStage(ctx, f.owner, f.deal.Hex(), ChangeStageInput{Stage: "Pending"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.ChangeStage(ctx, f.owner, f.deal.Hex(), ChangeStageInput{Stage: " "})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.ChangeStage(ctx, f.owner, f.deal.Hex(), ChangeStageInput{Stage: "Proposal", Probability: intp(101)})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.ChangeStage(ctx, f.owner, "nope", ChangeStageInput{Stage: "Proposal"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, f.db.SoftDeleteDeal(f.deal))
	_, err = f.svc.ChangeStage(ctx, f.admin, f.deal.Hex(), ChangeStageInput{Stage: "Proposal"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

// gatedCatalog parks the save inside the registry lock until release closes.
type gatedCatalog struct {
	*stageservice.Service
	entered chan struct{}
	release chan struct{}
}

func (g gatedCatalog) WithStage(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error) {
	return g.Service.WithStage(ctx, name, func(ctx context.Context) error {
		close(g.entered)
		<-g.release
		return fn(ctx)
	})
}

func TestChangeStage_DeleteWaitsForRegistryMove(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDB()
	deals := repository.NewMemoryRepo(db)
	stages := stageservice.NewService(stagerepo.NewMemoryRepo(), deals, lock.NewLocal())
	discovery, err := stages.Create(ctx, stageservice.CreateInput{Name: "Discovery", Probability: intp(30), Type: stage.TypeOpen})
	require.NoError(t, err)

	owner := &models.User{ID: primitive.NewObjectID(), Role: "rep"}
	id := db.InsertDeal(models.Deal{Title: "Globex pilot", Amount: 28000, Stage: models.StageLead, Probability: 10, OwnerID: owner.ID})
	gate := gatedCatalog{Service: stages, entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(deals, gate)

	moved := make(chan error, 1)
	go func() {
		_, err := svc.ChangeStage(ctx, owner, id.Hex(), ChangeStageInput{Stage: "Discovery"})
		moved <- err
	}()
	<-gate.entered

	deleted := make(chan error, 1)
	go func() { deleted <- stages.Delete(ctx, discovery.ID.Hex()) }()
	select {
	case err := <-deleted:
		t.Fatalf("delete finished while the move held the registry: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	require.NoError(t, <-moved)
	require.ErrorIs(t, <-deleted, apperr.ErrConflict)

	ok, err := stages.ExistsByName(ctx, "Discovery")
	require.NoError(t, err)
	require.True(t, ok)
}

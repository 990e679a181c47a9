package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/database"
	"github.com/dealflow/dealflow-api/internal/models"
)

// MemoryRepo reads and writes deals held by a database.MemoryDB.
type MemoryRepo struct {
	db *database.MemoryDB
}

func NewMemoryRepo(db *database.MemoryDB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

func (m *MemoryRepo) Get(ctx context.Context, id primitive.ObjectID) (*models.Deal, error) {
	d, err := m.db.Deal(id)
	if errors.Is(err, database.ErrNoDocument) || (err == nil && !d.Live()) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (m *MemoryRepo) SaveStage(ctx context.Context, d *models.Deal) error {
	_, err := m.db.UpdateDeal(d.ID, func(cur *models.Deal) error {
		if !cur.Live() {
			return ErrNotFound
		}
		cur.Stage = d.Stage
		cur.Probability = d.Probability
		cur.ClosedAt = d.ClosedAt
		cur.UpdatedAt = d.UpdatedAt
		return nil
	})
	if errors.Is(err, database.ErrNoDocument) {
		return ErrNotFound
	}
	return err
}

func (m *MemoryRepo) CountLiveByStage(ctx context.Context, stage string) (int64, error) {
	var n int64
	for _, d := range m.db.Deals() {
		if d.Live() && d.Stage == stage {
			n++
		}
	}
	return n, nil
}

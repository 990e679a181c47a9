package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/models"
)

var ErrNotFound = errors.New("deal not found")

// Repository is the slice of deal persistence the stage-change path needs.
// Soft-deleted deals are invisible to every method.
type Repository interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Deal, error)
	// SaveStage persists stage, probability, closedAt and updatedAt of d.
	SaveStage(ctx context.Context, d *models.Deal) error
	CountLiveByStage(ctx context.Context, stage string) (int64, error)
}

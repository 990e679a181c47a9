package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/stage"
)

var (
	ErrNotFound      = errors.New("stage not found")
	ErrDuplicateName = errors.New("stage name already exists")
)

// Repository persists pipeline stages.
type Repository interface {
	// List returns every stage ordered by order, then _id.
	List(ctx context.Context) ([]*stage.Stage, error)
	Get(ctx context.Context, id primitive.ObjectID) (*stage.Stage, error)
	FindByName(ctx context.Context, name string) (*stage.Stage, error)
	// MaxOrder returns the highest order in use; ok is false on an empty registry.
	MaxOrder(ctx context.Context) (max int, ok bool, err error)
	Create(ctx context.Context, s *stage.Stage) error
	Update(ctx context.Context, id primitive.ObjectID, p stage.Patch) (*stage.Stage, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// ApplyOrders writes the given orders and returns how many stages actually changed.
	ApplyOrders(ctx context.Context, updates []stage.OrderUpdate) (int64, error)
}

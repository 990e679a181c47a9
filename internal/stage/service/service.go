package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/apperr"
	"github.com/dealflow/dealflow-api/internal/stage"
	"github.com/dealflow/dealflow-api/internal/stage/repository"
	"github.com/dealflow/dealflow-api/pkg/lock"
	"github.com/dealflow/dealflow-api/pkg/logger"
	"github.com/dealflow/dealflow-api/pkg/metrics"
	"github.com/dealflow/dealflow-api/pkg/validate"
)

// lockName serializes registry mutations that read and then write orders or names.
const lockName = "pipeline-stages"

// lockWait bounds how long a mutation waits for another one to finish.
const lockWait = 5 * time.Second

// DealCounter reports how many live deals currently sit in a stage name.
type DealCounter interface {
	CountLiveByStage(ctx context.Context, name string) (int64, error)
}

// CreateInput is the body of a stage create request.
type CreateInput struct {
	Name        string `json:"name" validate:"required,min=1,max=50"`
	Probability *int   `json:"probability" validate:"required,min=0,max=100"`
	Type        string `json:"type" validate:"required,oneof=open won lost"`
	Color       string `json:"color" validate:"omitempty,max=32"`
	Order       *int   `json:"order" validate:"omitempty,min=0"`
}

// ReorderItem assigns an order to one stage id.
type ReorderItem struct {
	ID    string `json:"id" validate:"required"`
	Order *int   `json:"order" validate:"required,min=0"`
}

type reorderRequest struct {
	Items []ReorderItem `json:"items" validate:"required,min=1,dive"`
}

// Service implements the stage registry operations.
type Service struct {
	repo   repository.Repository
	deals  DealCounter
	locker lock.Locker
}

func NewService(repo repository.Repository, deals DealCounter, locker lock.Locker) *Service {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Service{repo: repo, deals: deals, locker: locker}
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()
	release, err := s.locker.Acquire(ctx, lockName)
	if err != nil {
		return nil, fmt.Errorf("acquire stage lock: %w", err)
	}
	return release, nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid stage id %q", id)
	}
	return oid, nil
}

func (s *Service) List(ctx context.Context) ([]*stage.Stage, error) {
	return s.repo.List(ctx)
}

// ExistsByName reports whether a registry entry carries the exact name.
func (s *Service) ExistsByName(ctx context.Context, name string) (bool, error) {
	_, err := s.repo.FindByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// WithStage runs fn while holding the registry lock, provided an entry named
// name exists. Deletes and renames cannot interleave with fn, so a deal moved
// into the stage by fn is counted by their reference checks. ok is false, and
// fn is not run, when no such entry exists.
func (s *Service) WithStage(ctx context.Context, name string, fn func(ctx context.Context) error) (ok bool, err error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	ok, err = s.ExistsByName(ctx, name)
	if err != nil || !ok {
		return false, err
	}
	return true, fn(ctx)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*stage.Stage, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	st := &stage.Stage{Name: in.Name, Probability: *in.Probability, Type: in.Type, Color: in.Color}
	if in.Order != nil {
		st.Order = *in.Order
	} else {
		max, ok, err := s.repo.MaxOrder(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			st.Order = max + 1
		}
	}
	if err := s.repo.Create(ctx, st); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return nil, apperr.Conflict("stage %q already exists", in.Name)
		}
		return nil, err
	}
	logger.With("stage", st.Name, "order", st.Order).Infof("stage created")
	return st, nil
}

func (s *Service) Update(ctx context.Context, id string, p stage.Patch) (*stage.Stage, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		trimmed := strings.TrimSpace(*p.Name)
		p.Name = &trimmed
	}
	if p.Empty() {
		return nil, apperr.Validation("no fields to update")
	}
	if err := validate.Struct(p); err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.repo.Get(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("stage %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if p.Name != nil && *p.Name != current.Name {
		n, err := s.deals.CountLiveByStage(ctx, current.Name)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, apperr.Conflict("stage %q is used by %d deal(s) and cannot be renamed", current.Name, n)
		}
	}
	updated, err := s.repo.Update(ctx, oid, p)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound("stage %s not found", id)
	case errors.Is(err, repository.ErrDuplicateName):
		return nil, apperr.Conflict("stage %q already exists", *p.Name)
	case err != nil:
		return nil, err
	}
	return updated, nil
}

// Delete removes a stage unless a live deal still references its name.
func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	current, err := s.repo.Get(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("stage %s not found", id)
	}
	if err != nil {
		return err
	}
	n, err := s.deals.CountLiveByStage(ctx, current.Name)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("stage %q is used by %d deal(s)", current.Name, n)
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("stage %s not found", id)
		}
		return err
	}
	logger.With("stage", current.Name).Infof("stage deleted")
	return nil
}

// Reorder applies the given orders as one serialized batch and returns how
// many stages changed. Replaying the same batch changes nothing.
func (s *Service) Reorder(ctx context.Context, items []ReorderItem) (modified int64, err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.StageReorders.WithLabelValues(result).Inc()
	}()

	if err := validate.Struct(reorderRequest{Items: items}); err != nil {
		return 0, err
	}
	updates := make([]stage.OrderUpdate, 0, len(items))
	seen := make(map[primitive.ObjectID]struct{}, len(items))
	for _, it := range items {
		oid, err := parseID(it.ID)
		if err != nil {
			return 0, err
		}
		if _, dup := seen[oid]; dup {
			return 0, apperr.Validation("stage %s listed more than once", it.ID)
		}
		seen[oid] = struct{}{}
		updates = append(updates, stage.OrderUpdate{ID: oid, Order: *it.Order})
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	for _, u := range updates {
		if _, err := s.repo.Get(ctx, u.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return 0, apperr.NotFound("stage %s not found", u.ID.Hex())
			}
			return 0, err
		}
	}
	modified, err = s.repo.ApplyOrders(ctx, updates)
	if err != nil {
		return 0, err
	}
	logger.With("items", len(updates), "modified", modified).Infof("stages reordered")
	return modified, nil
}

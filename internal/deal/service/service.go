package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/apperr"
	"github.com/dealflow/dealflow-api/internal/deal"
	"github.com/dealflow/dealflow-api/internal/deal/repository"
	"github.com/dealflow/dealflow-api/internal/models"
	"github.com/dealflow/dealflow-api/internal/scope"
	"github.com/dealflow/dealflow-api/pkg/logger"
	"github.com/dealflow/dealflow-api/pkg/metrics"
	"github.com/dealflow/dealflow-api/pkg/validate"
)

// StageCatalog runs fn while the registry entry named name is guaranteed to
// exist; ok is false when there is no such entry.
type StageCatalog interface {
	WithStage(ctx context.Context, name string, fn func(ctx context.Context) error) (ok bool, err error)
}

// ChangeStageInput is the body of a stage change.
type ChangeStageInput struct {
	Stage       string `json:"stage" validate:"required,min=1,max=50"`
	Probability *int   `json:"probability" validate:"omitempty,min=0,max=100"`
}

type Service struct {
	repo    repository.Repository
	catalog StageCatalog
	now     func() time.Time
}

func NewService(repo repository.Repository, catalog StageCatalog) *Service {
	return &Service{repo: repo, catalog: catalog, now: time.Now}
}

// moveTo runs save directly for the six enumerated names and under the
// registry lock for registry names.
func (s *Service) moveTo(ctx context.Context, name string, save func(ctx context.Context) error) error {
	if models.IsDealStage(name) {
		return save(ctx)
	}
	if s.catalog == nil {
		return apperr.Validation("unknown stage %q", name)
	}
	ok, err := s.catalog.WithStage(ctx, name, save)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("unknown stage %q", name)
	}
	return nil
}

// ChangeStage moves a live deal to a new stage on behalf of caller, who must
// own the deal or hold an elevated role.
func (s *Service) ChangeStage(ctx context.Context, caller *models.User, id string, in ChangeStageInput) (*models.Deal, error) {
	in.Stage = strings.TrimSpace(in.Stage)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("invalid deal id %q", id)
	}

	d, err := s.repo.Get(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("deal %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if caller == nil || !scope.CanModify(caller.Role, caller.ID, d.OwnerID) {
		return nil, apperr.Forbidden("only the deal owner or a manager can change its stage")
	}

	from := d.Stage
	err = s.moveTo(ctx, in.Stage, func(ctx context.Context) error {
		deal.ApplyTransition(d, in.Stage, in.Probability, s.now())
		return s.repo.SaveStage(ctx, d)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("deal %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	metrics.StageChanges.WithLabelValues(d.Stage).Inc()
	logger.With("deal", id, "from", from, "to", d.Stage, "probability", d.Probability).Infof("deal stage changed")
	return d, nil
}

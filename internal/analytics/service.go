package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/dealflow/dealflow-api/internal/scope"
	"github.com/dealflow/dealflow-api/pkg/logger"
	"github.com/dealflow/dealflow-api/pkg/metrics"
)

// Aggregator names used in metrics and logs.
const (
	AggKPIs             = "kpis"
	AggPipelineSummary  = "pipeline_summary"
	AggActivityOverview = "activity_overview"
	AggPerformanceTrend = "performance_trend"
)

// Options configure a Service.
type Options struct {
	// QuotaTarget applies when no quota record exists for the current year.
	QuotaTarget float64
	// Location is the default timezone for year and month boundaries.
	Location *time.Location
}

// Service runs each aggregator against a Store. Aggregators are independent;
// two calls are not guaranteed to observe the same data.
type Service struct {
	store Store
	opts  Options
}

func NewService(store Store, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{store: store, opts: opts}
}

// Location is the default dashboard timezone.
func (s *Service) Location() *time.Location { return s.opts.Location }

func observe(name string, start time.Time, err error) {
	metrics.ObserveAggregation(name, start, err)
	if err != nil {
		logger.With("aggregator", name).Errorf("aggregation failed: %v", err)
	}
}

// quotaTarget prefers the current year's quota record over the configured fallback.
func (s *Service) quotaTarget(ctx context.Context, now time.Time) (float64, error) {
	target, ok, err := s.store.QuotaForYear(ctx, now.In(s.opts.Location).Year())
	if err != nil {
		return 0, fmt.Errorf("load quota: %w", err)
	}
	if ok {
		return target, nil
	}
	return s.opts.QuotaTarget, nil
}

func (s *Service) KPIs(ctx context.Context, sc scope.Scope, now time.Time) (k KPIs, err error) {
	defer func(start time.Time) { observe(AggKPIs, start, err) }(time.Now())

	groups, err := s.store.GroupDealsByStage(ctx, DealFilter{Scope: sc})
	if err != nil {
		return KPIs{}, fmt.Errorf("group deals: %w", err)
	}
	cells, err := s.store.GroupActivities(ctx, ActivityFilter{Scope: sc}, now)
	if err != nil {
		return KPIs{}, fmt.Errorf("group activities: %w", err)
	}
	contacts, err := s.store.CountContacts(ctx, sc)
	if err != nil {
		return KPIs{}, fmt.Errorf("count contacts: %w", err)
	}
	target, err := s.quotaTarget(ctx, now)
	if err != nil {
		return KPIs{}, err
	}
	return ComputeKPIs(groups, cells, contacts, target), nil
}

func (s *Service) PipelineSummary(ctx context.Context, f DealFilter) (sum StageSummary, err error) {
	defer func(start time.Time) { observe(AggPipelineSummary, start, err) }(time.Now())

	groups, err := s.store.GroupDealsByStage(ctx, f)
	if err != nil {
		return StageSummary{}, fmt.Errorf("group deals: %w", err)
	}
	return SummarizeStages(groups), nil
}

func (s *Service) ActivityOverview(ctx context.Context, f ActivityFilter, now time.Time) (ov ActivityOverview, err error) {
	defer func(start time.Time) { observe(AggActivityOverview, start, err) }(time.Now())

	cells, err := s.store.GroupActivities(ctx, f, now)
	if err != nil {
		return ActivityOverview{}, fmt.Errorf("group activities: %w", err)
	}
	next, err := s.store.NextDueActivities(ctx, f, NextDueLimit)
	if err != nil {
		return ActivityOverview{}, fmt.Errorf("next due activities: %w", err)
	}
	return BuildActivityOverview(cells, next), nil
}

// PerformanceTrend builds the series for an already resolved window.
func (s *Service) PerformanceTrend(ctx context.Context, sc scope.Scope, w Window) (tr Trend, err error) {
	defer func(start time.Time) { observe(AggPerformanceTrend, start, err) }(time.Now())

	f := TrendFilter{Scope: sc, Start: w.Start, End: w.End, Location: w.Location}
	actuals, err := s.store.MonthlyWon(ctx, f)
	if err != nil {
		return Trend{}, fmt.Errorf("monthly won: %w", err)
	}
	forecasts, err := s.store.MonthlyForecast(ctx, f)
	if err != nil {
		return Trend{}, fmt.Errorf("monthly forecast: %w", err)
	}
	return BuildTrend(w, actuals, forecasts), nil
}

package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dealflow/dealflow-api/internal/analytics"
	"github.com/dealflow/dealflow-api/internal/cache"
	"github.com/dealflow/dealflow-api/internal/report"
	"github.com/dealflow/dealflow-api/internal/scope"
	"github.com/dealflow/dealflow-api/pkg/logger"
	"github.com/dealflow/dealflow-api/pkg/middleware"
	"github.com/dealflow/dealflow-api/pkg/respond"
)

// DashboardHandler serves the read-only dashboard aggregates.
type DashboardHandler struct {
	svc      *analytics.Service
	cache    cache.Cache
	exporter *report.Exporter
	now      func() time.Time
}

// NewDashboardHandler wires the aggregates. A nil cache disables caching and a
// nil exporter disables the XLSX export route.
func NewDashboardHandler(svc *analytics.Service, c cache.Cache, exporter *report.Exporter) *DashboardHandler {
	if c == nil {
		c = cache.Nop{}
	}
	return &DashboardHandler{svc: svc, cache: c, exporter: exporter, now: time.Now}
}

type dashboardMeta struct {
	Scope       string    `json:"scope"`
	Timezone    string    `json:"timezone,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Register mounts the dashboard on rg, which must already run the auth middleware.
func (h *DashboardHandler) Register(rg gin.IRouter) {
	g := rg.Group("/dashboard")
	g.GET("/kpis", h.kpis)
	g.GET("/pipeline-summary", h.pipelineSummary)
	g.GET("/activity-overview", h.activityOverview)
	g.GET("/performance-trend", h.performanceTrend)
	if h.exporter != nil {
		g.GET("/performance-trend/export", h.exportTrend)
	}
}

// Invalidate drops every cached aggregate. It is the onChange hook for the
// deal and stage mutation routes.
func (h *DashboardHandler) Invalidate(c *gin.Context) {
	if err := h.cache.InvalidatePrefix(c.Request.Context(), ""); err != nil {
		logger.Warnf("dashboard cache invalidation failed: %v", err)
	}
}

// resolveScope pins reps to their own records; elevated callers may pass ownerId.
func resolveScope(c *gin.Context) (scope.Scope, bool) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		respond.Fail(c, http.StatusUnauthorized, "authentication required")
		return scope.Scope{}, false
	}
	return scope.Resolve(u.Role, u.ID, c.Query("ownerId")), true
}

func cacheKey(parts ...string) string {
	return strings.Join(parts, ":")
}

func (h *DashboardHandler) kpis(c *gin.Context) {
	sc, ok := resolveScope(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	now := h.now()
	k, err := cache.Load(ctx, h.cache, cacheKey(analytics.AggKPIs, sc.Key()), func() (analytics.KPIs, error) {
		return h.svc.KPIs(ctx, sc, now)
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond.OKMeta(c, http.StatusOK, k, dashboardMeta{Scope: sc.Key(), GeneratedAt: now.UTC()})
}

func (h *DashboardHandler) pipelineSummary(c *gin.Context) {
	sc, ok := resolveScope(c)
	if !ok {
		return
	}
	loc := h.svc.Location()
	f := analytics.DealFilter{
		Scope:       sc,
		CreatedFrom: analytics.OptionalBound(c.Query("from"), loc, false),
		CreatedTo:   analytics.OptionalBound(c.Query("to"), loc, true),
		Title:       strings.TrimSpace(c.Query("q")),
	}
	ctx := c.Request.Context()
	key := cacheKey(analytics.AggPipelineSummary, sc.Key(), boundKey(f.CreatedFrom), boundKey(f.CreatedTo), f.Title)
	sum, err := cache.Load(ctx, h.cache, key, func() (analytics.StageSummary, error) {
		return h.svc.PipelineSummary(ctx, f)
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond.OKMeta(c, http.StatusOK, sum, dashboardMeta{Scope: sc.Key(), GeneratedAt: h.now().UTC()})
}

func (h *DashboardHandler) activityOverview(c *gin.Context) {
	sc, ok := resolveScope(c)
	if !ok {
		return
	}
	loc := h.svc.Location()
	f := analytics.ActivityFilter{
		Scope:   sc,
		DueFrom: analytics.OptionalBound(c.Query("from"), loc, false),
		DueTo:   analytics.OptionalBound(c.Query("to"), loc, true),
	}
	ctx := c.Request.Context()
	now := h.now()
	// overdue and upcoming move with now
	key := cacheKey(analytics.AggActivityOverview, sc.Key(), boundKey(f.DueFrom), boundKey(f.DueTo), minuteKey(now))
	ov, err := cache.Load(ctx, h.cache, key, func() (analytics.ActivityOverview, error) {
		return h.svc.ActivityOverview(ctx, f, now)
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond.OKMeta(c, http.StatusOK, ov, dashboardMeta{Scope: sc.Key(), GeneratedAt: now.UTC()})
}

// trend resolves the window from the query and loads the series through the cache.
func (h *DashboardHandler) trend(c *gin.Context, sc scope.Scope) (analytics.Trend, *time.Location, error) {
	loc, err := analytics.LoadLocation(c.Query("tz"), h.svc.Location())
	if err != nil {
		return analytics.Trend{}, nil, err
	}
	q := analytics.TrendQuery{Range: c.Query("range"), From: c.Query("from"), To: c.Query("to")}
	w, err := analytics.ResolveWindow(q, h.now(), loc)
	if err != nil {
		return analytics.Trend{}, nil, err
	}
	ctx := c.Request.Context()
	end := w.End
	if strings.TrimSpace(q.To) == "" {
		// an open window ends now; share one entry per minute
		end = end.Truncate(time.Minute)
	}
	key := cacheKey(analytics.AggPerformanceTrend, sc.Key(), loc.String(),
		w.Start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	tr, err := cache.Load(ctx, h.cache, key, func() (analytics.Trend, error) {
		return h.svc.PerformanceTrend(ctx, sc, w)
	})
	return tr, loc, err
}

func (h *DashboardHandler) performanceTrend(c *gin.Context) {
	sc, ok := resolveScope(c)
	if !ok {
		return
	}
	tr, loc, err := h.trend(c, sc)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond.OKMeta(c, http.StatusOK, tr, dashboardMeta{Scope: sc.Key(), Timezone: loc.String(), GeneratedAt: h.now().UTC()})
}

func (h *DashboardHandler) exportTrend(c *gin.Context) {
	sc, ok := resolveScope(c)
	if !ok {
		return
	}
	tr, _, err := h.trend(c, sc)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := h.exporter.Trend(c.Request.Context(), sc.Key(), tr)
	if err != nil {
		_ = c.Error(fmt.Errorf("export trend: %w", err))
		return
	}
	if out.URL != "" {
		c.Header("X-Report-URL", out.URL)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	c.Data(http.StatusOK, report.ContentTypeXLSX, out.Data)
}

func minuteKey(t time.Time) string {
	return t.UTC().Truncate(time.Minute).Format("200601021504")
}

func boundKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339Nano)
}

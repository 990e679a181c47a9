package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dealflow/dealflow-api/handlers"
	"github.com/dealflow/dealflow-api/internal/analytics"
	"github.com/dealflow/dealflow-api/internal/cache"
	"github.com/dealflow/dealflow-api/internal/config"
	"github.com/dealflow/dealflow-api/internal/database"
	dealhandler "github.com/dealflow/dealflow-api/internal/deal/handler"
	dealrepo "github.com/dealflow/dealflow-api/internal/deal/repository"
	dealservice "github.com/dealflow/dealflow-api/internal/deal/service"
	"github.com/dealflow/dealflow-api/internal/oidc"
	"github.com/dealflow/dealflow-api/internal/report"
	"github.com/dealflow/dealflow-api/internal/seed"
	stagehandler "github.com/dealflow/dealflow-api/internal/stage/handler"
	stagerepo "github.com/dealflow/dealflow-api/internal/stage/repository"
	stageservice "github.com/dealflow/dealflow-api/internal/stage/service"
	"github.com/dealflow/dealflow-api/internal/storage"
	"github.com/dealflow/dealflow-api/internal/tokens"
	"github.com/dealflow/dealflow-api/pkg/lock"
	"github.com/dealflow/dealflow-api/pkg/logger"
	"github.com/dealflow/dealflow-api/pkg/metrics"
	"github.com/dealflow/dealflow-api/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: oidc=%v mongo=%v redis=%v minio=%v", cfg.OIDC.Issuer != "", cfg.MongoDB.URI != "", cfg.Redis.Addr() != "", cfg.Storage.Endpoint != "")
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.ErrorHandler(cfg.Server.IsProduction()))

	// Redis backs the rate limiter, the dashboard cache and the registry lock.
	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			rdb = nil
		} else {
			logger.Infof("connected to Redis: %s", addr)
		}
	}

	var locker lock.Locker = lock.NewLocal()
	var dashCache cache.Cache = cache.Nop{}
	if rdb != nil {
		locker = lock.NewRedis(rdb, "dealflow:lock:", 10*time.Second)
		if cfg.Dashboard.CacheTTL > 0 {
			dashCache = cache.NewRedis(rdb, "dealflow:dash:", cfg.Dashboard.CacheTTL)
		}
	}

	// MongoDB when configured, otherwise the in-memory store with demo data.
	var (
		mongoClient *mongo.Client
		store       analytics.Store
		deals       dealrepo.Repository
		stages      stagerepo.Repository
	)
	if cfg.MongoDB.URI != "" {
		mongoClient, err = database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, func(attempt int, err error) {
			logger.Warnf("attempt %d: failed to connect to MongoDB: %v", attempt, err)
		})
		if err != nil {
			logger.Fatalf("could not connect to MongoDB: %v", err)
		}
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		db := mongoClient.Database(cfg.MongoDB.Database)
		if err := database.EnsureIndexes(ctx, db); err != nil {
			logger.Warnf("%v", err)
		}
		store = analytics.NewMongoStore(db)
		deals = dealrepo.NewMongoRepo(db.Collection(database.DealsCollection))
		stages = stagerepo.NewMongoRepo(db.Collection(database.StagesCollection))
	} else {
		mem := database.NewMemoryDB()
		store = analytics.NewMemoryStore(mem)
		deals = dealrepo.NewMemoryRepo(mem)
		stages = stagerepo.NewMemoryRepo()
		demoOwner := primitive.NewObjectID()
		if err := seed.LoadMemory(ctx, mem, stages, seed.Demo(demoOwner, time.Now())); err != nil {
			logger.Fatalf("seed in-memory store: %v", err)
		}
		logger.Infof("in-memory store seeded with demo data for owner %s", demoOwner.Hex())
	}

	// Bearer verification: OIDC when an issuer is configured, HS256 otherwise.
	var verifier middleware.Verifier
	if cfg.OIDC.Issuer != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if verifier == nil && cfg.JWT.Secret != "" {
		verifier = tokens.NewVerifier(cfg.JWT.Secret)
	}

	exporter := report.NewExporter(nil)
	if st, err := storage.NewMinIOStorage(ctx, cfg.Storage); err == nil {
		exporter = report.NewExporter(st)
	} else if !errors.Is(err, storage.ErrNotConfigured) {
		logger.Warnf("report archiving disabled: %v", err)
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// ready only when every configured dependency answers
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		deps := map[string]bool{"auth": verifier != nil}
		if verifier == nil {
			ready = false
		}
		if mongoClient != nil {
			deps["mongo"] = mongoClient.Ping(ctx, nil) == nil
			ready = ready && deps["mongo"]
		}
		if rdb != nil {
			deps["redis"] = rdb.Ping(ctx).Err() == nil
			ready = ready && deps["redis"]
		}
		status, label := http.StatusOK, "ready"
		if !ready {
			status, label = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(status, gin.H{"status": label, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if verifier == nil {
		logger.Warn("no token verifier configured; API routes are not registered")
	} else {
		api := apiGroup(r, verifier, cfg.RateLimit, rdb)

		analyticsSvc := analytics.NewService(store, analytics.Options{QuotaTarget: cfg.Dashboard.QuotaTarget, Location: cfg.Location()})
		dash := handlers.NewDashboardHandler(analyticsSvc, dashCache, exporter)
		dash.Register(api)

		stageSvc := stageservice.NewService(stages, deals, locker)
		stagehandler.RegisterStageRoutes(api, stageSvc, dash.Invalidate)
		dealhandler.RegisterDealRoutes(api, dealservice.NewService(deals, stageSvc), dash.Invalidate)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting dealflow API on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// apiGroup mounts /api/v1 behind bearer auth. The rate limiter runs after auth
// so authenticated callers are limited per subject rather than per IP.
func apiGroup(r gin.IRouter, verifier middleware.Verifier, rl config.RateLimitConfig, rdb *redis.Client) *gin.RouterGroup {
	api := r.Group("/api/v1", middleware.AuthMiddleware(verifier))
	if !rl.Enabled {
		return api
	}
	if rl.UseRedis && rdb != nil {
		win := time.Duration(rl.WindowSeconds) * time.Second
		api.Use(middleware.RedisRateLimitMiddleware(rdb, rl.RPS, rl.Burst, win))
	} else {
		api.Use(middleware.RateLimitMiddleware(rl.RPS, rl.Burst))
	}
	return api
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/handler"
	"github.com/noah-isme/lms-api/internal/repository"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/internal/store"
	"github.com/noah-isme/lms-api/pkg/cache"
	"github.com/noah-isme/lms-api/pkg/config"
	"github.com/noah-isme/lms-api/pkg/database"
	"github.com/noah-isme/lms-api/pkg/jobs"
	"github.com/noah-isme/lms-api/pkg/logger"
)

// @title LMS API
// @version 1.0.0
// @description Courses, assignments, enrollments and learning progress for teachers and students.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to open store backend", "backend", cfg.Store.Backend, "error", err)
	}
	defer backend.Close()

	metrics := service.NewMetricsService()
	entityStore := store.New(backend.durable, store.Options{
		KeyPrefix: cfg.Store.KeyPrefix,
		Logger:    logr,
		Observer:  metrics,
	})
	if err := entityStore.Load(ctx); err != nil {
		logr.Error("initial store load failed", zap.Error(err))
	}

	refresher := jobs.NewPoller("store-refresh", func(ctx context.Context) error {
		changed, err := entityStore.Refresh(ctx)
		if err == nil && changed {
			logr.Debug("store refreshed", zap.Uint64("version", entityStore.Version()))
		}
		return err
	}, jobs.PollerConfig{Interval: cfg.Store.RefreshInterval, Logger: logr})
	refresher.Start(ctx)
	defer refresher.Stop()

	var cacheRepo service.CacheRepository
	if backend.redis != nil {
		cacheRepo = repository.NewCacheRepository(backend.redis, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && cacheRepo != nil)

	deps := routerDeps{
		cfg:     cfg,
		logger:  logr,
		metrics: metrics,
		store:   entityStore,
		cache:   cacheSvc,
		tokens:  service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}),
		checks:  backend.checks,
	}
	r := newRouter(deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type storeBackend struct {
	durable store.Durable
	redis   *redis.Client
	db      *sqlx.DB
	checks  map[string]handler.ReadinessCheck
}

func (b *storeBackend) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}

// openBackend connects the durable collaborator named by STORE_BACKEND. Redis
// is also dialled for the postgres backend when the dashboard cache is on.
func openBackend(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*storeBackend, error) {
	b := &storeBackend{checks: map[string]handler.ReadinessCheck{}}

	needRedis := cfg.Store.Backend == config.BackendRedis || cfg.Dashboard.CacheEnabled
	if needRedis {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		switch {
		case err == nil:
			b.redis = client
			b.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		case cfg.Store.Backend == config.BackendRedis:
			return nil, err
		default:
			logr.Warn("dashboard cache disabled, redis unavailable", zap.Error(err))
		}
	}

	switch cfg.Store.Backend {
	case config.BackendRedis:
		b.durable = repository.NewRedisSlotRepository(b.redis, logr)
	case config.BackendPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.db = db
		slots := repository.NewPostgresSlotRepository(db)
		if err := slots.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.durable = slots
		b.checks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	case config.BackendMemory, "":
		b.durable = repository.NewMemorySlotRepository()
	default:
		b.Close()
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	return b, nil
}

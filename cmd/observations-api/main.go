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
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-observations/api/swagger"
	"github.com/noah-isme/sma-observations/internal/handler"
	"github.com/noah-isme/sma-observations/internal/repository"
	"github.com/noah-isme/sma-observations/internal/service"
	"github.com/noah-isme/sma-observations/internal/validation"
	"github.com/noah-isme/sma-observations/pkg/cache"
	"github.com/noah-isme/sma-observations/pkg/config"
	"github.com/noah-isme/sma-observations/pkg/database"
	"github.com/noah-isme/sma-observations/pkg/export"
	"github.com/noah-isme/sma-observations/pkg/logger"
)

// @title SMA Observations API
// @version 1.0.0
// @description Student observation records with paginated listing and export
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		logr.Fatal("failed to migrate database", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	checks := map[string]handler.Pinger{"database": db}

	var cacheRepo service.CacheRepository
	if cfg.ListCache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, list cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			checks["redis"] = handler.PingerFunc(repo.Ping)
		}
	}

	validate := validator.New()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.ListCache.TTL, logr, cacheRepo != nil)
	observationSvc := service.NewObservationService(
		repository.NewObservationRepository(db),
		validation.New(validate),
		cacheSvc,
		metrics,
		logr,
	)
	exportSvc := service.NewExportService(observationSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)
	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	if cfg.Auth.Enabled && cfg.JWT.Secret == "" {
		logr.Fatal("AUTH_ENABLED requires JWT_SECRET")
	}

	router := newRouter(routerDeps{
		cfg:          cfg,
		logger:       logr,
		metrics:      metrics,
		observations: handler.NewObservationHandler(observationSvc, exportSvc),
		health:       handler.NewMetricsHandler(metrics, checks),
		tokens:       authSvc,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "auth", cfg.Auth.Enabled, "listCache", cacheSvc.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-observations/internal/handler"
	"github.com/noah-isme/sma-observations/internal/middleware"
	"github.com/noah-isme/sma-observations/internal/models"
	"github.com/noah-isme/sma-observations/internal/service"
	"github.com/noah-isme/sma-observations/pkg/config"
	"github.com/noah-isme/sma-observations/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-observations/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-observations/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg          *config.Config
	logger       *zap.Logger
	metrics      *service.MetricsService
	observations *handler.ObservationHandler
	health       *handler.MetricsHandler
	tokens       middleware.TokenValidator
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger))
	r.Use(corsmiddleware.New(d.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", d.health.Health)
	r.GET("/ready", d.health.Ready)
	r.GET("/metrics", d.health.Prometheus)
	r.GET("/metrics/summary", d.health.Snapshot)

	if d.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.cfg.APIPrefix)
	if d.cfg.Auth.Enabled {
		api.Use(middleware.JWT(d.tokens))
	}
	guard := func(scope string, h gin.HandlerFunc) []gin.HandlerFunc {
		if !d.cfg.Auth.Enabled {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{middleware.RequireScope(scope), h}
	}

	observations := api.Group("/observations")
	observations.GET("", guard(models.ScopeRead, d.observations.List)...)
	observations.GET("/export", guard(models.ScopeRead, d.observations.Export)...)
	observations.GET("/:id", guard(models.ScopeRead, d.observations.Get)...)
	observations.POST("", guard(models.ScopeWrite, d.observations.Create)...)
	observations.PUT("/:id", guard(models.ScopeWrite, d.observations.Replace)...)
	observations.DELETE("/:id", guard(models.ScopeWrite, d.observations.Delete)...)

	return r
}

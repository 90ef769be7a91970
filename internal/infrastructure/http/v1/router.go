// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"docnum/internal/core/numbering"
	domain "docnum/internal/domain/numbering"
	"docnum/internal/infrastructure/http/v1/handlers"
	"docnum/internal/infrastructure/http/v1/middleware"
	"docnum/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Engine    *domain.Engine
	Lifecycle *domain.Lifecycle
	Audit     numbering.AuditReader

	// DB backs the readiness probe.
	DB     handlers.Pinger
	Driver string

	Logger *logger.Logger

	// JWTValidator enables bearer authentication on /api/v1 when set.
	JWTValidator middleware.JWTValidator

	Version     string
	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Order matters: errors raised by recovery must reach ErrorHandler.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Driver, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	api := router.Group("/api/v1")
	if cfg.JWTValidator != nil {
		api.Use(middleware.Auth(cfg.JWTValidator))
	}

	numberingHandler := handlers.NewNumberingHandler(cfg.Engine, cfg.Lifecycle, cfg.Audit)

	submissions := api.Group("/submissions/:id")
	{
		submissions.POST("/document-number", numberingHandler.Generate)
		submissions.GET("/document-number/audit", numberingHandler.SubmissionAudit)
		submissions.POST("/transitions/submitted", numberingHandler.Submitted)
		submissions.POST("/transitions/approved", numberingHandler.Approved)
	}

	series := api.Group("/series/:id")
	{
		series.GET("/preview", numberingHandler.Preview)
		series.GET("/audit", numberingHandler.SeriesAudit)
		series.GET("/audit/export", numberingHandler.SeriesAuditExport)
	}

	api.POST("/numbering/templates/validate", numberingHandler.ValidateTemplate)

	return router
}

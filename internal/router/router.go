package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"scenarioflow/internal/config"
	"scenarioflow/internal/handler"
	"scenarioflow/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.ServerConfig,
	logger *zap.Logger,
	extractionH *handler.ExtractionHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger.Named("http")))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	v1.POST("/extractions", extractionH.Extract)
	v1.POST("/extractions/export", extractionH.Export)
	v1.POST("/generations", extractionH.Generate)

	return r
}

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/timmy/contentsync/internal/api/handler"
	"github.com/timmy/contentsync/internal/api/middleware"
	"github.com/timmy/contentsync/internal/config"
	"github.com/timmy/contentsync/internal/logger"
	"github.com/timmy/contentsync/internal/service"
)

// Dependencies groups what the handlers need.
type Dependencies struct {
	Adapters  handler.AdapterLister
	Sources   handler.SourceStore
	Syncer    handler.Syncer
	Guard     *service.SyncGuard
	Processor handler.ItemProcessor
	Logger    *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps *Dependencies, cfg *config.ServerConfig) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler(deps.Adapters)
	sourceHandler := handler.NewSourceHandler(deps.Sources, deps.Syncer, deps.Guard)
	itemHandler := handler.NewItemHandler(deps.Processor)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/adapters", healthHandler.ListAdapters)

		// Sources
		v1.POST("/sources/ensure", sourceHandler.EnsureSource)
		v1.POST("/sources/:id/sync", sourceHandler.TriggerSync)
		v1.GET("/sources/:id/progress", sourceHandler.GetProgress)
		v1.GET("/sources/:id/runs", sourceHandler.ListRuns)

		// Items
		v1.POST("/items/process", itemHandler.ProcessBatch)
		v1.POST("/items/:id/process", itemHandler.ProcessItem)
	}

	return r
}

package api

import (
	"github.com/gin-gonic/gin"
	"github.com/haln/taskboard/internal/api/handler"
	"github.com/haln/taskboard/internal/api/middleware"
	"github.com/haln/taskboard/internal/config"
	"github.com/haln/taskboard/internal/logger"
	"github.com/haln/taskboard/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	exportService *service.ExportService,
	taskService *service.TaskService,
	cleanupService *service.CleanupService,
	cfg *config.Config,
	log *logger.Logger,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Server.Mode {
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
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	exportHandler := handler.NewExportHandler(exportService)
	taskHandler := handler.NewTaskHandler(taskService)
	adminHandler := handler.NewAdminHandler(cleanupService, cfg.Export.RetentionDays)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Tasks
		v1.GET("/tasks", taskHandler.ListTasks)

		// Exports
		v1.POST("/exports", exportHandler.CreateExport)
		v1.GET("/exports", exportHandler.ListExports)
		v1.GET("/exports/:id", exportHandler.GetExport)
		v1.GET("/exports/:id/download", exportHandler.DownloadExport)

		// Stats
		v1.GET("/stats", taskHandler.GetStats)

		// Maintenance
		v1.POST("/admin/cleanup", adminHandler.Cleanup)
	}

	return r
}

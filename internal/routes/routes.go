package routes

import (
	"net/http"

	"flota_console/internal/handlers"
	"flota_console/internal/logger"
	"flota_console/internal/middleware"
	"flota_console/ws"

	"github.com/gin-gonic/gin"
)

// Options are the parts of the router that depend on configuration.
type Options struct {
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	// FilesDir is served at FilesURL when local storage is in use.
	FilesURL string
	FilesDir string
}

// RegisterRoutes registers every HTTP and WebSocket route.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
	sessions middleware.SessionResolver,
	opts Options,
) {
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.MetricsHandler != nil {
		ginRouter.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}
	if opts.FilesURL != "" && opts.FilesDir != "" {
		ginRouter.Static(opts.FilesURL, opts.FilesDir)
	}

	api := ginRouter.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.SessionMiddleware(sessions))
	{
		appHandlers.SessionHandler.RegisterRoutes(api, protected)
		appHandlers.ListHandler.RegisterRoutes(protected)
		appHandlers.FormHandler.RegisterRoutes(protected)
		appHandlers.AttachmentHandler.RegisterRoutes(protected)
		appHandlers.ConfirmHandler.RegisterRoutes(protected)
		appHandlers.ExportHandler.RegisterRoutes(protected)
		appHandlers.PreviewHandler.RegisterRoutes(protected)
		appHandlers.ReportHandler.RegisterRoutes(protected)
	}

	wsGroup := ginRouter.Group("/ws")
	wsGroup.Use(middleware.SessionMiddleware(sessions))
	{
		wsGroup.GET("", wsHandler.ServeWS)
	}
	logger.Info("WebSocket route /ws registered")
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"flota_console/internal/config"
	"flota_console/internal/console"
	"flota_console/internal/fleetapi"
	"flota_console/internal/handlers"
	"flota_console/internal/imageprocessor"
	"flota_console/internal/logger"
	"flota_console/internal/metrics"
	"flota_console/internal/middleware"
	"flota_console/internal/routes"
	"flota_console/internal/session"
	"flota_console/internal/storage"
	"flota_console/internal/validator"
	"flota_console/internal/workers"
	"flota_console/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// App is the assembled console: session store, fleet client, storage and
// the HTTP router.
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Storage  storage.Storage
	Recorder *metrics.Recorder
	Sessions *session.Manager
	Hub      *ws.Hub
	Router   *gin.Engine
}

// Run loads configuration and serves until SIGINT or SIGTERM.
func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize console", "error", err)
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		logger.Fatal("Server error", "error", err)
	}
}

// New connects the session database and storage and builds the router.
func New(cfg *config.Config) (*App, error) {
	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	db, err := session.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := session.Migrate(db); err != nil {
		return nil, err
	}
	logger.Info("Database connected")

	store, err := storage.NewStorage(storage.Config{
		Type:       cfg.Storage.Type,
		BasePath:   cfg.Storage.BasePath,
		BaseURL:    cfg.Storage.BaseURL,
		Bucket:     cfg.Storage.Bucket,
		Region:     cfg.Storage.Region,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		Endpoint:   cfg.Storage.Endpoint,
		UseSSL:     cfg.Storage.UseSSL,
		PublicRead: cfg.Storage.PublicRead,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	recorder := metrics.New()
	sessions := NewSessionManager(cfg, db, store, recorder)
	hub := ws.NewHub()

	return &App{
		Config:   cfg,
		DB:       db,
		Storage:  store,
		Recorder: recorder,
		Sessions: sessions,
		Hub:      hub,
		Router:   SetupRouter(cfg, sessions, store, recorder, hub),
	}, nil
}

// NewSessionManager builds the session manager on the configured fleet API.
func NewSessionManager(cfg *config.Config, db *gorm.DB, store storage.Storage, recorder *metrics.Recorder) *session.Manager {
	opts := []fleetapi.Option{fleetapi.WithObserver(recorder)}
	if d := cfg.FleetTimeout(); d > 0 {
		opts = append(opts, fleetapi.WithTimeout(d))
	}
	return session.NewManager(db, session.NewRepository(), session.ManagerConfig{
		Client:  fleetapi.New(cfg.FleetAPI.BaseURL, "", opts...),
		Storage: store,
		Workspace: console.WorkspaceConfig{
			PerPage:    cfg.Console.PerPage,
			MaxUpload:  cfg.Upload.MaxSize,
			PreviewTTL: cfg.PreviewTTL(),
			Recorder:   recorder,
		},
		Metrics: recorder,
	})
}

// SessionService is what the router needs from the session manager.
type SessionService interface {
	handlers.SessionService
	middleware.SessionResolver
}

func SetupRouter(cfg *config.Config, sessions SessionService, store storage.Storage, recorder *metrics.Recorder, hub *ws.Hub) *gin.Engine {
	appHandlers := initializeHandlers(cfg, sessions, recorder)
	wsHandler := ws.NewWebSocketHandler(hub)

	ginRouter := initializeGinRouter(cfg, recorder)

	opts := routes.Options{}
	if cfg.Metrics.Enabled {
		opts.MetricsHandler = recorder.Handler()
	}
	if local, ok := store.(*storage.LocalStorage); ok && strings.HasPrefix(cfg.Storage.BaseURL, "/") {
		opts.FilesURL = cfg.Storage.BaseURL
		opts.FilesDir = local.Root()
	}
	routes.RegisterRoutes(ginRouter, appHandlers, wsHandler, sessions, opts)

	return ginRouter
}

func initializeHandlers(cfg *config.Config, sessions handlers.SessionService, recorder *metrics.Recorder) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		SessionHandler:    handlers.NewSessionHandler(baseHandler, sessions, cfg.Console.SessionCookieMaxAge),
		ListHandler:       handlers.NewListHandler(baseHandler),
		FormHandler:       handlers.NewFormHandler(baseHandler),
		AttachmentHandler: handlers.NewAttachmentHandler(baseHandler, cfg.Upload.MaxSize, cfg.Upload.AllowedTypes),
		ConfirmHandler:    handlers.NewConfirmHandler(baseHandler),
		ExportHandler:     handlers.NewExportHandler(baseHandler, cfg.Console.ExportMaxRows, recorder),
		ReportHandler:     handlers.NewReportHandler(baseHandler),
		PreviewHandler:    handlers.NewPreviewHandler(baseHandler, imageprocessor.NewProcessor(0, cfg.Console.ThumbnailSize)),
	}
}

func initializeGinRouter(cfg *config.Config, recorder *metrics.Recorder) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware(recorder))
	router.MaxMultipartMemory = cfg.Upload.MaxSize
	return router
}

// Serve runs the HTTP server, the live view hub and the session sweeper
// until ctx is done, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	go a.Hub.Run(ctx)
	workers.NewSessionWorker(a.Sessions, workers.DefaultSweepInterval).Start(ctx)

	srv := &http.Server{
		Addr:              a.Config.Address(),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Console listening on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", "error", err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// Close releases live workspaces and the database connection.
func (a *App) Close() {
	a.Sessions.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

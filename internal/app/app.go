package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/internal/config"
	"github.com/temcen/affinity/internal/database"
	"github.com/temcen/affinity/internal/handlers"
	"github.com/temcen/affinity/internal/middleware"
	"github.com/temcen/affinity/pkg/models"
	"github.com/temcen/affinity/internal/services"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine
	gatherer prometheus.Gatherer
}

func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg)

	// Initialize database connections
	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app, err := newApp(cfg, logger, db, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(cfg *config.Config, logger *logrus.Logger, db *database.Database, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*App, error) {
	app := &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		gatherer: gatherer,
	}

	services, err := services.New(cfg, logger, db, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = services
	app.handlers = handlers.New(logger, services)

	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// LoadModel builds the initial interaction model from the configured source.
func (a *App) LoadModel(ctx context.Context) error {
	_, err := a.services.Loader.Load(ctx)
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	var errs []error
	if err := a.services.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		a.logger.WithError(err).Error("Error closing connections")
		return err
	}
	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	// Health check endpoints (no auth required)
	router.GET("/health", a.handlers.Health.Check)
	router.GET("/health/ready", a.handlers.Health.Ready)

	if a.config.Monitoring.Enabled {
		metricsPath := a.config.Monitoring.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		router.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))
	}

	validate := middleware.NewValidationMiddleware(a.services.Validator)
	auth := a.services.Auth

	api := router.Group("/api/v1")
	{
		api.Use(middleware.Auth(auth, a.logger))
		api.Use(validate.ValidateHeaders())

		rankings := api.Group("/rankings")
		{
			rankings.POST("", validate.ValidateRankingRequest(), a.handlers.Ranking.Rank)
			rankings.POST("/batch", a.handlers.Ranking.RankBatch)
		}

		users := api.Group("/users")
		{
			users.GET("/:userId/neighbors", validate.ValidateQueryParams(), a.handlers.User.GetNeighbors)
			users.GET("/:userId/profile", validate.ValidateQueryParams(), a.handlers.User.GetProfile)
			users.GET("/:userId/preferences", a.handlers.User.GetPreferences)
		}

		admin := api.Group("/admin")
		{
			admin.Use(middleware.RequireRole(auth, models.RoleAdmin))
			admin.POST("/reload", a.handlers.Admin.Reload)
			admin.POST("/export", a.handlers.Admin.Export)
		}
	}

	a.router = router
}

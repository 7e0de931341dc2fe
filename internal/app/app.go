// Package app wires the application components together.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/chart-back/internal/api"
	"github.com/chart-back/internal/cache"
	"github.com/chart-back/internal/feed"
	"github.com/chart-back/internal/history"
	"github.com/chart-back/internal/messaging"
	"github.com/chart-back/internal/pipeline"
	"github.com/chart-back/pkg/config"
	"github.com/chart-back/pkg/models"
)

// App represents the main application
type App struct {
	cfg    *config.Config
	logger *logrus.Logger

	historyClient *history.Client
	feedDialer    *feed.Dialer
	redisCache    *cache.RedisClient
	natsClient    *messaging.Client
	widgets       *pipeline.Manager
	apiServer     *api.Server
}

// New creates a new application instance
func New(cfg *config.Config, logger *logrus.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Initialize initializes all application components
func (a *App) Initialize() error {
	a.historyClient = history.NewClient(&a.cfg.Upstream, a.logger)
	a.feedDialer = feed.NewDialer(&a.cfg.Upstream, a.logger)

	if a.cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisClient(&a.cfg.Redis, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		a.redisCache = redisCache
	}

	if a.cfg.NATS.Enabled {
		natsClient, err := messaging.NewClient(&a.cfg.NATS, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize NATS: %w", err)
		}
		a.natsClient = natsClient
	}

	openFeed := func(symbol string, h feed.Handlers) (io.Closer, error) {
		return a.feedDialer.Open(symbol, h)
	}

	a.widgets = pipeline.NewManager(a.historyClient, openFeed, a.redisCache, a.natsClient, a.logger)
	a.apiServer = api.NewServer(a.cfg, a.logger, a.widgets, a.historyClient)

	return nil
}

// Start starts the application
func (a *App) Start() error {
	if a.cfg.Charts.BootWidget {
		if _, err := a.widgets.Add(a.cfg.Charts.DefaultSymbol, models.RangeToken(a.cfg.Charts.DefaultRange)); err != nil {
			a.logger.WithError(err).Warn("Failed to add boot widget")
		}
	}

	go func() {
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("API server error")
		}
	}()

	a.logger.Info("Application started")
	return nil
}

// Stop gracefully stops the application
func (a *App) Stop(ctx context.Context) error {
	a.logger.Info("Shutting down...")

	if err := a.apiServer.Stop(ctx); err != nil {
		a.logger.WithError(err).Error("Failed to stop API server")
	}

	a.widgets.Close()

	if a.natsClient != nil {
		a.natsClient.Close()
	}
	if a.redisCache != nil {
		a.redisCache.Close()
	}

	a.logger.Info("Shutdown complete")
	return nil
}

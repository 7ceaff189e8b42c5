package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/indexpulse/config"
	"github.com/guttosm/indexpulse/internal/api"
	"github.com/guttosm/indexpulse/internal/chart"
	"github.com/guttosm/indexpulse/internal/domain/models"
	"github.com/guttosm/indexpulse/internal/pipeline"
	"github.com/guttosm/indexpulse/internal/provider"
)

// providerBuilder is an indirection for unit testing; defaults to the
// real upstream client.
var providerBuilder = func(cfg config.Config) provider.Provider {
	return provider.NewEastMoneyProvider(cfg.Provider.BaseURL, cfg.Provider.Timeout)
}

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Builds the upstream provider client.
//   - Creates the scenario scheduler with the preset scenarios registered.
//   - Creates the SVG chart renderer targeting the configured directory.
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
//   - Starts the periodic refresher when REFRESH_CRON is set.
//   - Provides a cleanup function to stop background work on shutdown.
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	p := providerBuilder(cfg)

	sched, err := pipeline.NewScheduler(p, models.PresetScenarios(cfg.Fetch.Symbol), pipeline.Options{
		FetchTimeout: cfg.Fetch.Timeout,
		MaxParallel:  cfg.Fetch.MaxParallel,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	renderer, err := chart.NewSVGRenderer(cfg.Chart.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize chart renderer: %w", err)
	}

	handler := api.NewHandler(sched, renderer, cfg.Fetch.Symbol)
	router := api.NewRouter(handler)

	healthHandler := api.NewHealthHandler(func() error {
		if len(sched.Labels()) == 0 {
			return fmt.Errorf("no scenarios registered")
		}
		return nil
	})
	healthHandler.Register(router)

	var refresher *pipeline.Refresher
	if cfg.Fetch.RefreshCron != "" {
		refresher, err = pipeline.NewRefresher(cfg.Fetch.RefreshCron, sched)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize refresher: %w", err)
		}
		refresher.Start()
	}

	cleanup := func() {
		if refresher != nil {
			refresher.Stop()
		}
	}

	return router, cleanup, nil
}

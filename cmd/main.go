package main

//
//  @title           indexpulse API
//  @version         1.0
//  @description     Asynchronous CSI 300 market-data loading and charting service.
//  @termsOfService  https://github.com/guttosm/indexpulse
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/indexpulse
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        scenarios
//  @tag.description Endpoints for launching and querying fetch scenarios
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/indexpulse/config"
	_ "github.com/guttosm/indexpulse/docs" // swagger docs
	"github.com/guttosm/indexpulse/internal/app"
	"github.com/guttosm/indexpulse/internal/chart"
	"github.com/guttosm/indexpulse/internal/daterange"
	"github.com/guttosm/indexpulse/internal/domain/models"
	"github.com/guttosm/indexpulse/internal/logger"
	"github.com/guttosm/indexpulse/internal/pipeline"
	"github.com/guttosm/indexpulse/internal/provider"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (e.g., the refresher).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// runFetch performs one-shot fetches for the given scenarios, rendering a
// chart artifact per successful scenario. One scenario failing never aborts
// the others; the first failure is reported after all of them finish.
func runFetch(ctx context.Context, p provider.Provider, scenarios []models.Scenario, chartDir string) error {
	renderer, err := chart.NewSVGRenderer(chartDir)
	if err != nil {
		return err
	}
	today := civil.DateOf(time.Now())

	limit := int(config.AppConfig.Fetch.MaxParallel)
	if limit <= 0 {
		limit = 4
	}
	timeout := config.AppConfig.Fetch.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// A plain group, not WithContext: one scenario failing must not
	// cancel its siblings.
	var g errgroup.Group
	g.SetLimit(limit)

	for _, sc := range scenarios {
		sc := sc
		g.Go(func() error {
			rng := sc.Range
			if rng == nil {
				r := daterange.LookbackRange(sc.LookbackDays, today)
				rng = &r
			}

			taskCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			series, err := pipeline.RunTask(taskCtx, p, sc.Symbol, sc.Period, *rng)
			if err != nil {
				logger.L().Error().Err(err).Str("scenario", sc.Label).Msg("fetch failed")
				return err
			}

			path, err := renderer.Render(series, sc.Symbol+" "+sc.Period.Label(), sc.Label)
			if err != nil {
				return err
			}
			logger.L().Info().
				Str("scenario", sc.Label).
				Int("bars", len(series.Bars)).
				Str("artifact", path).
				Msg("fetch complete")
			return nil
		})
	}
	return g.Wait()
}

// fetchScenarios translates the fetch-mode flags into the scenario list:
// an explicit start/end pair means a single custom run, otherwise every
// preset at the configured symbol.
func fetchScenarios(symbol, period, start, end string) ([]models.Scenario, error) {
	if symbol == "" {
		symbol = config.AppConfig.Fetch.Symbol
	}
	if start == "" && end == "" {
		return models.PresetScenarios(symbol), nil
	}

	p := models.Period(period)
	if !p.Valid() {
		return nil, errors.New("invalid period, expected one of 1, 5, 30, daily")
	}
	startSpec, err := daterange.Parse(start)
	if err != nil {
		return nil, err
	}
	endSpec, err := daterange.Parse(end)
	if err != nil {
		return nil, err
	}
	rng, err := daterange.Resolve(startSpec, endSpec, civil.DateOf(time.Now()))
	if err != nil {
		return nil, err
	}
	return []models.Scenario{{
		Label:  "custom-" + p.Label(),
		Symbol: symbol,
		Period: p,
		Range:  &rng,
	}}, nil
}

// main is the entry point of the indexpulse application.
//
// Modes (selected via --mode flag):
//   - api:   Starts the REST API exposing the scenario pipeline.
//   - fetch: One-shot fetch and chart render, then exit.
//
// Flags:
//   - --mode:   Execution mode ("api" or "fetch"). Default: "api".
//   - --port:   Port for API mode. Defaults to value from config (SERVER_PORT).
//   - --symbol: Index symbol for fetch mode. Defaults to config (SYMBOL).
//   - --period: Bar period for a custom fetch ("1", "5", "30", "daily").
//   - --start, --end: Custom date range ("MM-DD" or "YYYY-MM-DD"); when
//     omitted, fetch mode runs every preset scenario.
//   - --out:    Chart output directory for fetch mode. Defaults to config (CHART_DIR).
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "api", "Mode: api or fetch")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	symbol := flag.String("symbol", "", "Index symbol for fetch mode")
	period := flag.String("period", "5", "Bar period for a custom fetch: 1, 5, 30, daily")
	start := flag.String("start", "", "Custom range start (MM-DD or YYYY-MM-DD)")
	end := flag.String("end", "", "Custom range end (MM-DD or YYYY-MM-DD)")
	out := flag.String("out", config.AppConfig.Chart.Dir, "Chart output directory for fetch mode")
	flag.Parse()

	switch *mode {
	case "fetch":
		logger.L().Info().Msg("running one-shot fetch")

		scenarios, err := fetchScenarios(*symbol, *period, *start, *end)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("invalid fetch flags")
		}

		p := provider.NewEastMoneyProvider(config.AppConfig.Provider.BaseURL, config.AppConfig.Provider.Timeout)
		if err := runFetch(ctx, p, scenarios, *out); err != nil {
			logger.L().Fatal().Err(err).Msg("fetch failed")
		}
		logger.L().Info().Msg("fetch completed successfully")

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}

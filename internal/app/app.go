package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/riskibarqy/h2h-insight/external/livescore"
	"github.com/riskibarqy/h2h-insight/internal/config"
	"github.com/riskibarqy/h2h-insight/internal/domain/fixture"
	"github.com/riskibarqy/h2h-insight/internal/domain/h2h"
	providercache "github.com/riskibarqy/h2h-insight/internal/infrastructure/provider/cache"
	"github.com/riskibarqy/h2h-insight/internal/interfaces/httpapi"
	"github.com/riskibarqy/h2h-insight/internal/observability"
	basecache "github.com/riskibarqy/h2h-insight/internal/platform/cache"
	"github.com/riskibarqy/h2h-insight/internal/platform/logging"
	"github.com/riskibarqy/h2h-insight/internal/platform/metrics"
	"github.com/riskibarqy/h2h-insight/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// App owns the HTTP server and every observability hook started for it.
type App struct {
	cfg     config.Config
	logger  *logging.Logger
	server  *http.Server
	pprof   *http.Server
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func(context.Context) error
}

// New builds the logger, observability exporters and HTTP server. On error
// anything already started is shut down before returning.
func New(cfg config.Config) (*App, error) {
	a := &App{cfg: cfg}

	logger, shutdownBetterStack, err := observability.InitBetterStackLogger(cfg, logging.NewJSON(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("init betterstack: %w", err)
	}
	logging.SetDefault(logger)
	a.logger = logger
	a.addCloser("betterstack", shutdownBetterStack)

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		a.closeAll(context.Background())
		return nil, fmt.Errorf("init uptrace: %w", err)
	}
	a.addCloser("uptrace", shutdownUptrace)

	stopPyroscope, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		a.closeAll(context.Background())
		return nil, fmt.Errorf("init pyroscope: %w", err)
	}
	a.addCloser("pyroscope", stopPyroscope)

	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		recorder = metrics.NewRecorder(metrics.WithRuntimeCollectors())
	}

	server, err := NewHTTPServer(cfg, logger, recorder)
	if err != nil {
		a.closeAll(context.Background())
		return nil, err
	}
	a.server = server

	pprofServer, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		a.closeAll(context.Background())
		return nil, fmt.Errorf("start pprof: %w", err)
	}
	a.pprof = pprofServer

	return a, nil
}

// NewHTTPServer wires the provider client, optional response cache, stats
// service and router. recorder may be nil.
func NewHTTPServer(cfg config.Config, logger *logging.Logger, recorder *metrics.Recorder) (*http.Server, error) {
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}

	client := livescore.NewClient(livescore.ClientConfig{
		BaseURL:        cfg.LivescoreBaseURL,
		SportID:        cfg.LivescoreSportID,
		Lang:           cfg.LivescoreLang,
		H2HLimit:       cfg.LivescoreH2HLimit,
		Timeout:        cfg.LivescoreTimeout,
		MaxRetries:     cfg.LivescoreMaxRetries,
		RateLimit:      cfg.LivescoreRateLimit,
		RateBurst:      cfg.LivescoreRateBurst,
		Logger:         logger.Named("livescore"),
		Metrics:        recorder,
		CircuitBreaker: cfg.LivescoreCircuitBreaker(),
	})

	var fixtures fixture.Source = client
	var records h2h.Source = client
	if cfg.CacheEnabled {
		store := basecache.NewStore(cfg.CacheTTL)
		recorder.RegisterCache("provider", func() (uint64, uint64, int) {
			stats := store.Stats()
			return stats.Hits, stats.Misses, stats.Entries
		})
		fixtures = providercache.NewFixtureSource(client, store)
		records = providercache.NewH2HSource(client, store)
	}

	statsService := usecase.NewStatsService(fixtures, records, usecase.StatsServiceConfig{
		DefaultSubTournamentIDs: cfg.LivescoreSubTournamentIDs,
		MaxConcurrency:          cfg.StatsH2HMaxConcurrency,
		Logger:                  logger.Named("stats"),
		Metrics:                 recorder,
	})

	handler := httpapi.NewHandler(statsService, logger)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		ServiceName:        cfg.ServiceName,
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:            recorder,
		Logger:             logger,
	})

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}, nil
}

func (a *App) Logger() *logging.Logger {
	return a.logger
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled or the listener fails, then shuts every
// component down.
func (a *App) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting",
			"addr", a.cfg.HTTPAddr,
			"env", a.cfg.AppEnv,
			"sub_tournament_ids", a.cfg.LivescoreSubTournamentIDs,
			"h2h_max_concurrency", a.cfg.StatsH2HMaxConcurrency,
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		if runErr != nil {
			a.logger.Error("http server failed", "error", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("graceful shutdown failed", "error", err)
		errs = append(errs, err)
	} else {
		a.logger.Info("http server stopped")
	}
	if err := observability.StopPprofServer(a.pprof, a.logger, shutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("stop pprof: %w", err))
	}
	if err := a.closeAll(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// closeAll runs closers in reverse start order so the log shipper drains last.
func (a *App) closeAll(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

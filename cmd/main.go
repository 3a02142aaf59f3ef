package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/bonk/internal/adapters/http/api"
	"github.com/okian/bonk/internal/adapters/http/site"
	"github.com/okian/bonk/internal/adapters/http/swagger"
	"github.com/okian/bonk/internal/adapters/repository"
	app "github.com/okian/bonk/internal/app"
	"github.com/okian/bonk/internal/config"
	"github.com/okian/bonk/pkg/logger"
	"github.com/okian/bonk/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
	eventBufferSize           = 128
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		loggerInstance.Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}
	if err := setupLogging(cfg); err != nil {
		loggerInstance.Warn(ctx, "invalid logging config; falling back to defaults", logger.Error(err))
	}
	loggerInstance = logger.Get()
	metrics.Init(metrics.WithRefreshInterval(cfg.MetricsRefresh()))

	store, err := repository.Open(ctx, cfg.StoreDriver, cfg.DBPath, repository.WithLogger(loggerInstance.Named("store")))
	if err != nil {
		loggerInstance.Error(ctx, "failed to open score store", logger.Error(err))
		os.Exit(1)
	}

	events := api.NewBroadcaster(eventBufferSize)
	svc := newService(cfg, store, events, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	mux := newMux(ctx, cfg, svc, events, loggerInstance)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		// Event streams end when the root context does.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// setupLogging applies the configured log format and level.
func setupLogging(cfg *config.Config) error {
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_ = logger.Init()
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
		return err
	}
	return nil
}

func newService(cfg *config.Config, store repository.Store, renderer app.Renderer, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithRenderer(renderer),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithInitialTheme(cfg.DefaultTheme),
		app.WithSlots(cfg.SlotCount),
		app.WithRoundSeconds(cfg.RoundSeconds),
		app.WithSpawnDelay(cfg.MinSpawnDelay(), cfg.MaxSpawnDelay()),
		app.WithTargetWindow(cfg.TargetWindow()),
		app.WithPromptDelay(cfg.PromptDelay()),
	)
}

func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, events *api.Broadcaster, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// API reference at /api-docs and /openapi.yaml
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc, events,
		api.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		api.WithLogger(log.Named("http")),
	)
	apiServer.Register(ctx, mux)

	// Browser game at /
	site.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater polls runtime stats every metrics refresh interval.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater polls the pipeline stats every metrics refresh interval.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes the pipeline gauges. GetStats updates
// queue and worker gauges itself once the service is started.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if queueSize, ok := stats["queueSize"].(int); ok {
		metrics.UpdateQueueCapacity(queueSize)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/okian/jansou/internal/adapters/cache"
	"github.com/okian/jansou/internal/adapters/http/api"
	"github.com/okian/jansou/internal/adapters/http/site"
	"github.com/okian/jansou/internal/adapters/http/swagger"
	"github.com/okian/jansou/internal/adapters/mq/queue"
	"github.com/okian/jansou/internal/adapters/mq/worker"
	"github.com/okian/jansou/internal/adapters/repository"
	service "github.com/okian/jansou/internal/app"
	"github.com/okian/jansou/internal/config"
	"github.com/okian/jansou/pkg/logger"
	"github.com/okian/jansou/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "jansou stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// application is the wired process: storage, optional cache, engine and routes.
type application struct {
	store   *repository.SQLiteStore
	redis   *redis.Client
	warmers *worker.Pool
	service *service.Service
	handler http.Handler
}

// build opens storage, connects the standings cache when configured and
// registers every route. Startup I/O runs detached from ctx cancellation, so a
// signal received while starting still ends in an orderly shutdown from run.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*application, error) {
	ctx = context.WithoutCancel(ctx)

	store, err := repository.OpenSQLite(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &application{store: store}

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithPageSize(cfg.SessionsPageSize),
		service.WithGroupDefaults(service.GroupDefaults{
			StartPoint:    cfg.DefaultStartPoint,
			TargetPoint:   cfg.DefaultTargetPoint,
			Uma:           cfg.DefaultUmaArray(),
			ChomboEnabled: cfg.DefaultChomboEnabled,
		}),
	}

	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		standings, err := cache.NewRedis(ctx, &cache.Config{RedisClient: a.redis, TTL: cfg.StandingsCacheTTL()})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect standings cache: %w", err)
		}
		opts = append(opts, service.WithStandingsCache(standings))
		log.Info(ctx, "standings cache enabled", logger.String("redis_addr", cfg.RedisAddr))
	}

	var warmQueue *queue.InMemoryQueue
	if a.redis != nil && cfg.WarmWorkers > 0 {
		warmQueue = queue.NewInMemoryQueue(queue.WithCapacity(cfg.WarmQueueCapacity))
		opts = append(opts, service.WithWarmQueue(warmQueue))
	}

	a.service = service.New(store, opts...)

	if warmQueue != nil {
		a.warmers = worker.NewPool(cfg.WarmWorkers, warmQueue, a.service, worker.WithLogger(log.Named("warmer")))
		a.warmers.Start(ctx)
	}

	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	apiServer := api.NewServer(a.service,
		api.WithTokens(cfg.APITokens...),
		api.WithLogger(log.Named("http")),
	)
	apiServer.Register(ctx, mux)
	a.handler = apiServer.Handler(mux)

	return a, nil
}

// Close drains the warm-up pool, then releases the cache connection and the database.
func (a *application) Close() {
	if a.warmers != nil {
		_ = a.warmers.Shutdown(context.Background())
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
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

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

	"github.com/gorilla/mux"

	"github.com/okian/vibrapulse/internal/adapters/http/api"
	"github.com/okian/vibrapulse/internal/adapters/http/site"
	"github.com/okian/vibrapulse/internal/adapters/http/swagger"
	"github.com/okian/vibrapulse/internal/adapters/model"
	workerpool "github.com/okian/vibrapulse/internal/adapters/mq/worker"
	"github.com/okian/vibrapulse/internal/adapters/notify"
	"github.com/okian/vibrapulse/internal/adapters/repository"
	app "github.com/okian/vibrapulse/internal/app"
	"github.com/okian/vibrapulse/internal/config"
	"github.com/okian/vibrapulse/pkg/logger"
	"github.com/okian/vibrapulse/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "vibrapulse exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	refresh := metrics.RefreshInterval()
	go startSystemMetricsUpdater(ctx, refresh)
	go startServiceMetricsUpdater(ctx, svc, refresh)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service shutdown incomplete", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return runErr
}

// buildService loads the classifier and wires storage and notification sinks.
// A classifier that cannot be loaded is fatal.
func buildService(ctx context.Context, cfg *config.Config) (*app.Service, error) {
	log := logger.Get()

	predictor, err := model.Load(ctx, model.Options{
		Kind:    cfg.ModelKind,
		Path:    cfg.ModelPath,
		URL:     cfg.ModelURL,
		Timeout: cfg.ModelTimeout(),
	})
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "model loaded",
		logger.String("kind", cfg.ModelKind),
		logger.Any("classes", predictor.Classes()),
		logger.Any("features", predictor.Features()),
	)

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sinks, err := buildSinks(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc, err := app.New(predictor,
		app.WithLogger(log.Named("service")),
		app.WithStore(store),
		app.WithSinks(sinks...),
		app.WithWorkerCount(cfg.NotifyWorkerCount),
		app.WithQueueSize(cfg.NotifyQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return svc, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	opts := []repository.Option{
		repository.WithTTL(cfg.ReportTTL()),
		repository.WithCapacity(cfg.MaxReports),
	}
	if cfg.ReportStore != config.StoreRedis {
		return repository.NewMemoryStore(ctx, opts...), nil
	}
	client, err := repository.DialRedis(ctx, repository.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	logger.Get().Info(ctx, "using redis report store", logger.String("addr", cfg.RedisAddr))
	return repository.NewRedisStore(client, opts...), nil
}

func buildSinks(ctx context.Context, cfg *config.Config) ([]workerpool.Sink, error) {
	log := logger.Get()
	var sinks []workerpool.Sink

	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		sinks = append(sinks, notify.NewAlertPublisher(notify.NewKafkaWriter(brokers, cfg.KafkaTopic)))
		log.Info(ctx, "publishing alerts to kafka", logger.Any("brokers", brokers), logger.String("topic", cfg.KafkaTopic))
	}

	if cfg.ArchiveEndpoint != "" {
		client, err := notify.NewMinioClient(ctx, notify.ArchiveConfig{
			Endpoint:  cfg.ArchiveEndpoint,
			Bucket:    cfg.ArchiveBucket,
			AccessKey: cfg.ArchiveAccessKey,
			SecretKey: cfg.ArchiveSecretKey,
			UseSSL:    cfg.ArchiveUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		sinks = append(sinks, notify.NewArchiver(client, cfg.ArchiveBucket))
		log.Info(ctx, "archiving uploads", logger.String("endpoint", cfg.ArchiveEndpoint), logger.String("bucket", cfg.ArchiveBucket))
	}
	return sinks, nil
}

// newHandler assembles routes: API first, then docs, then the dashboard
// catch-all.
func newHandler(cfg *config.Config, svc *app.Service) http.Handler {
	r := mux.NewRouter()

	api.NewServer(svc, svc,
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithListLimits(0, cfg.MaxReportListLimit),
	).Register(r)
	swagger.Register(r)
	site.Register(r)

	opts := api.HardenOptions{AllowedOrigins: cfg.CORSOriginList()}
	if cfg.AccessLog {
		opts.AccessLog = os.Stdout
	}
	return api.Harden(r, opts)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
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

// startServiceMetricsUpdater refreshes queue and store gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats()
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

// API server entry point for taskboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/taskboard/internal/application/calendar"
	"github.com/turtacn/taskboard/internal/application/recurrence"
	"github.com/turtacn/taskboard/internal/config"
	"github.com/turtacn/taskboard/internal/domain/task"
	"github.com/turtacn/taskboard/internal/infrastructure/database/memory"
	"github.com/turtacn/taskboard/internal/infrastructure/database/postgres"
	"github.com/turtacn/taskboard/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/taskboard/internal/infrastructure/database/redis"
	"github.com/turtacn/taskboard/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/taskboard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/taskboard/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/taskboard/internal/interfaces/http"
	"github.com/turtacn/taskboard/internal/interfaces/http/handlers"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer logger.Sync()

	logger.Info("starting taskboard API server",
		logging.String("version", Version),
		logging.String("addr", cfg.Server.Addr()),
		logging.String("database", cfg.Database.Driver),
		logging.Bool("redis", cfg.Redis.Enabled),
		logging.Bool("kafka", cfg.Kafka.Enabled),
	)

	if err := run(cfg, *configPath, logger); err != nil {
		logger.Error("server exited with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, configPath string, logger logging.Logger) error {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close failed", logging.Err(err))
			}
		}
	}()

	var checkers []handlers.HealthChecker

	// ── Metrics ──────────────────────────────────────────────────────────────
	var (
		collector prometheus.MetricsCollector
		metrics   *prometheus.AppMetrics
	)
	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger.Named("metrics"))
		if err != nil {
			return err
		}
		collector = c
		metrics = prometheus.NewAppMetrics(collector)
		prometheus.SetBuildInfo(metrics, Version, GitCommit)
	}

	// ── Task store ───────────────────────────────────────────────────────────
	var repo task.Repository
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		conn, err := postgres.NewConnection(postgres.ConfigFrom(cfg.Database), logger.Named("postgres"))
		if err != nil {
			return err
		}
		closers = append(closers, conn)
		if cfg.Database.AutoMigrate {
			if err := conn.RunMigrations(); err != nil {
				return err
			}
		}
		repo = repositories.NewPostgresTaskRepo(conn, logger.Named("task_repo"))
		checkers = append(checkers, handlers.CheckFunc("postgres", conn.HealthCheck))
	default:
		mem := memory.NewTaskRepository()
		repo = mem
		checkers = append(checkers, handlers.CheckFunc("memory", mem.Ping))
		logger.Warn("using in-memory task store; data is lost on restart")
	}

	// ── Summary cache and series lock ────────────────────────────────────────
	var (
		cache recurrence.SummaryCache
		opts  []recurrence.ServiceOption
	)
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(redis.ConfigFrom(cfg.Redis), logger.Named("redis"))
		if err != nil {
			return err
		}
		closers = append(closers, client)
		checkers = append(checkers, handlers.CheckFunc("redis", client.Ping))

		var rc recurrence.SummaryCache = redis.NewRedisCache(client, logger.Named("cache"),
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.SummaryTTL),
			redis.WithJitter(0.1),
		)
		if metrics != nil {
			rc = prometheus.InstrumentCache(rc, metrics)
		}
		cache = rc
		opts = append(opts, recurrence.WithSeriesLocker(redis.NewLocker(client, logger.Named("lock"))))
	}

	// ── Activity events ──────────────────────────────────────────────────────
	var publisher recurrence.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ConfigFrom(cfg.Kafka), logger.Named("kafka"))
		if err != nil {
			return err
		}
		closers = append(closers, producer)

		var p recurrence.EventPublisher = producer
		if metrics != nil {
			p = prometheus.InstrumentPublisher(p, metrics)
		}
		publisher = p
	}

	// ── Application services ─────────────────────────────────────────────────
	action, err := recurrence.ParseDisposition(cfg.Recurrence.DefaultAction, recurrence.DispositionArchive)
	if err != nil {
		return err
	}
	var serviceMetrics recurrence.Metrics
	if metrics != nil {
		serviceMetrics = metrics
	}
	svc := recurrence.NewService(
		repo,
		recurrence.NewEngine(time.Now),
		cache,
		publisher,
		serviceMetrics,
		logger.Named("recurrence"),
		recurrence.ServiceConfig{
			DefaultAction:   action,
			PreviewMaxCount: cfg.Recurrence.PreviewMaxCount,
			SummaryTTL:      cfg.Redis.SummaryTTL,
		},
		opts...,
	)
	cal := calendar.NewService(repo, calendar.NewExporter(time.Now), logger.Named("calendar"))

	// ── HTTP ─────────────────────────────────────────────────────────────────
	router := httpserver.NewRouter(httpserver.RouterConfig{
		RecurrenceHandler: handlers.NewRecurrenceHandler(svc, cal, logger),
		HealthHandler:     handlers.NewHealthHandler(Version, checkers...),
		Logger:            logger.Named("access"),
		Metrics:           metrics,
		MetricsCollector:  collector,
		MetricsPath:       cfg.Metrics.Path,
	})
	srv := httpserver.NewServer(cfg.Server, router, logger.Named("http"))

	if configPath != "" {
		config.Watch(configPath, func(next *config.Config) {
			logger.Warn("configuration file changed; restart to apply",
				logging.String("path", configPath),
				logging.String("default_action", next.Recurrence.DefaultAction))
		}, func(err error) {
			logger.Error("reloaded configuration is invalid", logging.Err(err))
		})
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

//Personal.AI order the ending

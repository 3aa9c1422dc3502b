package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	leadclaimengine "leadhub/contexts/lead-distribution/lead-claim-engine"
	"leadhub/contexts/lead-distribution/lead-claim-engine/adapters/memory"
	metricsadapter "leadhub/contexts/lead-distribution/lead-claim-engine/adapters/metrics"
	postgresadapter "leadhub/contexts/lead-distribution/lead-claim-engine/adapters/postgres"
	redisadapter "leadhub/contexts/lead-distribution/lead-claim-engine/adapters/redis"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
	"leadhub/internal/platform/config"
	"leadhub/internal/platform/db"
	"leadhub/internal/platform/httpserver"
	"leadhub/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const bootstrapModule = "internal/app/bootstrap"

type APIApp struct {
	server  *httpserver.Server
	runtime *Runtime
	logger  *slog.Logger
}

type WorkerApp struct {
	runtime      *Runtime
	pollInterval time.Duration
	logger       *slog.Logger
}

// Runtime holds the infrastructure shared by every process: the Postgres
// handle, the optional Redis client and the wired lead claim engine module.
type Runtime struct {
	Config   config.Config
	Postgres *db.Postgres
	Redis    *redis.Client
	Registry *prometheus.Registry
	Bus      *messaging.Kafka
	Module   leadclaimengine.Module
	Logger   *slog.Logger
}

// NewLogger builds the process logger from config.
func NewLogger(cfg config.Config, process string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	return slog.New(handler).With("service", cfg.ServiceName, "process", process)
}

// BuildRuntime connects Postgres, optionally Redis, and wires the module.
func BuildRuntime(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := postgresadapter.AutoMigrate(pg.DB); err != nil {
		_ = pg.Close()
		return nil, err
	}

	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	runtime := &Runtime{
		Config:   cfg,
		Postgres: pg,
		Registry: registry,
		Bus:      bus,
		Logger:   logger,
	}

	var locker ports.ContentionLocker = memory.NewLocker()
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		runtime.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		locker = redisadapter.NewLocker(runtime.Redis, cfg.ClaimLockTTL, logger)
		logger.Info("redis contention locker enabled",
			"event", "bootstrap_redis_locker_enabled",
			"module", bootstrapModule,
			"layer", "platform",
			"redis_addr", cfg.RedisAddr,
		)
	}

	repo := postgresadapter.NewRepository(pg.DB, cfg.PostgresLockTimeout, logger)
	runtime.Module = leadclaimengine.NewModule(leadclaimengine.Dependencies{
		Leads:           repo,
		Settings:        repo,
		Catalog:         repo,
		Claims:          repo,
		Idempotency:     repo,
		Outbox:          repo,
		Dedup:           repo,
		Locker:          locker,
		Metrics:         metricsadapter.NewMetrics(registry),
		Clock:           postgresadapter.SystemClock{},
		IDGenerator:     postgresadapter.UUIDGenerator{},
		Publisher:       bus,
		Subscriber:      bus,
		LockWait:        cfg.ClaimLockWait,
		IdempotencyTTL:  cfg.IdempotencyTTL,
		EventDedupTTL:   cfg.EventDedupTTL,
		OutboxBatchSize: cfg.OutboxBatchSize,
		Logger:          logger,
	})
	return runtime, nil
}

// Ready pings every backing store.
func (r *Runtime) Ready(ctx context.Context) error {
	if err := r.Postgres.Ping(ctx); err != nil {
		return err
	}
	if r.Redis != nil {
		return r.Redis.Ping(ctx).Err()
	}
	return nil
}

func (r *Runtime) Close() error {
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.Postgres != nil {
		errs = append(errs, r.Postgres.Close())
	}
	return errors.Join(errs...)
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg, "api")

	runtime, err := BuildRuntime(cfg, logger)
	if err != nil {
		return nil, err
	}

	metricsHandler := promhttp.HandlerFor(runtime.Registry, promhttp.HandlerOpts{})
	server := httpserver.New(runtime.Module, metricsHandler, runtime.Ready, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:  server,
		runtime: runtime,
		logger:  logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg, "worker")

	runtime, err := BuildRuntime(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		runtime:      runtime,
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", bootstrapModule,
		"layer", "platform",
	)
	return a.server.Start(ctx)
}

func (a *APIApp) Close() error {
	if a.runtime != nil {
		return a.runtime.Close()
	}
	return nil
}

// Run starts the signal consumer and the outbox relay loop; the first
// failure cancels the other.
func (w *WorkerApp) Run(ctx context.Context) error {
	module := w.runtime.Module
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := module.Signals.Start(groupCtx); err != nil {
			return err
		}
		<-groupCtx.Done()
		return nil
	})
	group.Go(func() error {
		return RelayLoop(groupCtx, module.OutboxRelay, w.pollInterval, w.logger)
	})

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", bootstrapModule,
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)
	return group.Wait()
}

func (w *WorkerApp) Close() error {
	if w.runtime != nil {
		return w.runtime.Close()
	}
	return nil
}

type outboxRunner interface {
	RunOnce(ctx context.Context) (int, error)
}

// RelayLoop drains the outbox every interval until ctx is done. A full batch
// is followed immediately by another pass.
func RelayLoop(ctx context.Context, relay outboxRunner, interval time.Duration, logger *slog.Logger) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sent, err := relay.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("outbox relay pass failed",
				"event", "bootstrap_outbox_relay_failed",
				"module", bootstrapModule,
				"layer", "platform",
				"error", err.Error(),
			)
		}
		if err == nil && sent > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

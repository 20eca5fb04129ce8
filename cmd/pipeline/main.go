package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/smukkama/airquality-server/internal/aggregation"
	"github.com/smukkama/airquality-server/internal/alerting"
	"github.com/smukkama/airquality-server/internal/database"
	"github.com/smukkama/airquality-server/internal/httpapi"
	"github.com/smukkama/airquality-server/internal/ingestion"
	"github.com/smukkama/airquality-server/internal/notification"
	"github.com/smukkama/airquality-server/internal/observability"
	"github.com/smukkama/airquality-server/internal/provider"
	"github.com/smukkama/airquality-server/internal/queue"
	"github.com/smukkama/airquality-server/internal/scheduler"
	"github.com/smukkama/airquality-server/pkg/config"
)

const (
	jobIngestion   = "ingestion"
	jobAggregation = "daily-aggregation"
	jobAlerts      = "alert-evaluation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, logger); err != nil {
		logger.Error("pipeline exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	db, err := database.Connect(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("connected to database", "host", cfg.Database.Host, "db", cfg.Database.DBName)

	if err := db.RunMigrations(ctx, cfg.Database.MigrationsDir, logger); err != nil {
		return err
	}

	var (
		audit    ingestion.AuditLog
		inAppPub queue.Publisher
	)
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		for _, topic := range []string{cfg.Kafka.TopicIngestionLog, cfg.Kafka.TopicInApp} {
			if err := queue.CreateTopic(cfg.Kafka.Brokers, topic, 3, 1); err != nil {
				logger.Warn("could not create kafka topic", "topic", topic, "error", err)
			}
		}
		auditProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicIngestionLog)
		defer auditProducer.Close()
		inAppProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicInApp)
		defer inAppProducer.Close()

		audit = ingestion.NewKafkaAuditLog(auditProducer)
		inAppPub = inAppProducer
		logger.Info("kafka producers initialized", "brokers", cfg.Kafka.Brokers)
	}

	cooldown, closeCooldown, err := newCooldownStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCooldown()

	sources := make([]provider.Source, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		sources = append(sources, p.Source())
	}
	logger.Info("providers configured", "count", len(sources), "source", cfg.ProvidersSrc)

	orchestrator := ingestion.NewOrchestrator(db, provider.NewFetcher(cfg.Ingestion.FetchTimeout, logger), sources, audit,
		ingestion.Options{
			AutoCreateStations: cfg.Ingestion.AutoCreateStations,
			WriteTimeout:       cfg.Ingestion.WriteTimeout,
		}, metrics, logger, clock)

	aggregator := aggregation.NewDailyAggregator(db, metrics, logger, clock)

	dispatcher := notification.NewDispatcher(map[string]notification.Sender{
		notification.ChannelTelegram: notification.NewTelegramSender(cfg.Telegram),
		notification.ChannelEmail:    notification.NewEmailSender(cfg.SMTP),
		notification.ChannelInApp:    notification.NewInAppSender(inAppPub),
	}, metrics, logger)
	logger.Info("notification channels",
		"telegram", cfg.Telegram.Enabled(), "email", cfg.SMTP.Enabled(), "in_app", inAppPub != nil)

	evaluator := alerting.NewEvaluator(db, dispatcher, cooldown, alerting.Options{
		RecencyWindow: cfg.Alerting.RecencyWindow,
		Cooldown:      cfg.Alerting.Cooldown,
	}, metrics, logger, clock)

	sched := scheduler.New(cfg.Jobs.Timeout, metrics, logger, clock)
	jobs := []scheduler.Job{
		{Name: jobIngestion, Spec: cfg.Jobs.IngestionSchedule, Run: func(ctx context.Context) (any, error) {
			return orchestrator.Run(ctx)
		}},
		{Name: jobAggregation, Spec: cfg.Jobs.AggregationSchedule, Run: func(ctx context.Context) (any, error) {
			return aggregator.AggregatePreviousDay(ctx)
		}},
		{Name: jobAlerts, Spec: cfg.Jobs.AlertSchedule, Run: func(ctx context.Context) (any, error) {
			return evaluator.Run(ctx)
		}},
	}
	for _, j := range jobs {
		if err := sched.Register(j); err != nil {
			return err
		}
	}

	srv := httpapi.NewServer(cfg.HTTP.Addr, db, sched, cfg.Jobs.Timeout, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	schedDone := make(chan error, 1)
	go func() { schedDone <- sched.Run(ctx) }()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// running jobs observe the cancelled context
	select {
	case err := <-schedDone:
		if err != nil {
			logger.Error("scheduler error", "error", err)
		}
	case <-shutdownCtx.Done():
		logger.Warn("jobs still running at shutdown deadline")
	}

	logger.Info("shutdown complete")
	return nil
}

func newCooldownStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (alerting.CooldownStore, func(), error) {
	if cfg.Alerting.CooldownBackend != config.CooldownRedis {
		logger.Info("alert cooldown kept in memory")
		return alerting.NewMemoryCooldownStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("alert cooldown kept in redis", "addr", cfg.Redis.Addr)
	return alerting.NewRedisCooldownStore(client, cfg.Alerting.Cooldown), func() { client.Close() }, nil
}

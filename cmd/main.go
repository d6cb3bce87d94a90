package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeledger/internal/adapters/config"
	"tradeledger/internal/adapters/errors/noop"
	"tradeledger/internal/adapters/errors/sentry"
	"tradeledger/internal/adapters/kafka"
	"tradeledger/internal/adapters/postgres"
	"tradeledger/internal/adapters/redis"
	"tradeledger/internal/domain/commission"
	"tradeledger/internal/domain/equity"
	"tradeledger/internal/domain/position"
	"tradeledger/internal/domain/risk"
	"tradeledger/internal/events"
	repo "tradeledger/internal/repository/postgres"
	"tradeledger/internal/workers"
	"tradeledger/pkg/errors"
	"tradeledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	accountID, err := uuid.Parse(cfg.App.AccountID)
	if err != nil {
		log.Fatalf("ACCOUNT_ID must be a valid UUID: %v", err)
	}

	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
	defer producer.Close()

	// Repositories (the ledger store)
	positionRepo := repo.NewPositionRepository(pgClient.DB())
	equityRepo := repo.NewEquityRepository(pgClient.DB())
	riskRepo := repo.NewRiskRepository(pgClient.DB())
	commissionRepo := repo.NewCommissionRepository(pgClient.DB())

	// Domain services
	equityLedger := equity.NewService(equityRepo)

	fees := commission.NewService(commissionRepo, redisClient, commission.Policy{
		Mode:           commission.Mode(cfg.Commission.Mode),
		FlatValue:      decimal.NewFromFloat(cfg.Commission.FlatValue),
		Percent:        decimal.NewFromFloat(cfg.Commission.Percent),
		PerShareRate:   decimal.NewFromFloat(cfg.Commission.PerShareRate),
		MinimumPerSide: decimal.NewFromFloat(cfg.Commission.MinimumPerSide),
		CapPercent:     decimal.NewFromFloat(cfg.Commission.CapPercent),
	})

	calc := risk.NewBudgetCalculator()
	reconciler := risk.NewUsageReconciler()
	gate := risk.NewGate(
		risk.NewAdmissionController(calc),
		calc,
		riskRepo,
		positionRepo,
		equityLedger,
		reconciler,
		redisClient,
		risk.Policy{
			MaxRiskPerTradePct: decimal.NewFromFloat(cfg.Risk.MaxRiskPerTradePct),
			MaxDailyLossPct:    decimal.NewFromFloat(cfg.Risk.MaxDailyLossPct),
			MaxTradesPerDay:    cfg.Risk.MaxTradesPerDay,
		},
	)

	bus := events.NewBus()
	positionLedger := position.NewService(positionRepo, gate, fees, equityLedger, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if book, err := positionLedger.GetOpenByUser(ctx, accountID); err != nil {
		log.Warnf("Failed to load open positions: %v", err)
	} else {
		log.Infof("Loaded %d open positions", len(book))
	}

	// Relay position-closed notifications to Kafka
	relay := events.NewKafkaRelay(bus, producer)
	go relay.Run(ctx)

	// Background workers
	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(workers.NewRiskUsageSyncWorker(
		accountID,
		riskRepo,
		reconciler,
		redisClient,
		cfg.Workers.RiskUsageSyncInterval,
		cfg.Workers.RiskUsageSyncEnabled,
	))
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, scheduler, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// waitForShutdown blocks until SIGINT/SIGTERM, then drains workers and
// flushes the tracker.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, scheduler *workers.Scheduler, tracker errors.Tracker, log *logger.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infof("Received signal %v, shutting down...", sig)
	case <-ctx.Done():
	}

	cancel()
	if err := scheduler.Stop(); err != nil {
		log.Warnf("Worker shutdown: %v", err)
	}
	if err := tracker.Flush(context.Background()); err != nil {
		log.Warnf("Tracker flush: %v", err)
	}
	log.Info("Shutdown complete")
}

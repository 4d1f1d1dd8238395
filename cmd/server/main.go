package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/config"
	"github.com/garyjia/expense-approval/internal/domain/event"
	"github.com/garyjia/expense-approval/internal/infrastructure/directory"
	"github.com/garyjia/expense-approval/internal/infrastructure/external/exchangerate"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/garyjia/expense-approval/internal/interfaces/http"
	"github.com/garyjia/expense-approval/internal/observability/metrics"
	"github.com/garyjia/expense-approval/pkg/database"
	"github.com/garyjia/expense-approval/pkg/utils"
)

func main() {
	// Load .env if present; real env vars take precedence
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense approval service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	metrics.Init()

	// Initialize persistence layer
	txManager := sqlite.NewDB(db.DB, logger)
	expenseRepo := repository.NewExpenseRepository(db.DB, logger)
	stepRepo := repository.NewStepRepository(db.DB, logger)
	dir := directory.NewSQLDirectory(db.DB, logger)

	// Initialize rate provider
	var rates port.RateProvider
	switch cfg.Rates.Provider {
	case "static":
		pairs := make(map[string]decimal.Decimal, len(cfg.Rates.StaticPairs))
		for pair, rate := range cfg.Rates.StaticPairs {
			pairs[pair] = decimal.NewFromFloat(rate)
		}
		rates = exchangerate.NewStatic(pairs)
	default:
		rates = exchangerate.NewClient(exchangerate.Config{
			BaseURL:  cfg.Rates.BaseURL,
			Timeout:  cfg.Rates.Timeout,
			CacheTTL: cfg.Rates.CacheTTL,
		}, logger)
	}

	kvLogger := utils.NewKVLogger(logger)

	// Initialize event dispatcher with audit-log handlers
	events := dispatcher.NewDispatcher(dispatcher.WithLogger(kvLogger))
	auditLog := func(ctx context.Context, evt *event.Event) error {
		logger.Info("Domain event",
			zap.String("type", string(evt.Type)),
			zap.Int64("expense_id", evt.ExpenseID),
			zap.Any("payload", evt.Payload))
		return nil
	}
	for _, t := range []event.Type{
		event.TypeExpenseSubmitted,
		event.TypeDecisionRecorded,
		event.TypeStatusChanged,
		event.TypeExpenseApproved,
		event.TypeExpenseRejected,
	} {
		events.SubscribeNamed(t, "audit-log", auditLog)
	}

	// Initialize services
	expenseService := service.NewExpenseService(
		expenseRepo,
		stepRepo,
		txManager,
		dir,
		rates,
		kvLogger,
		service.WithDispatcher(events),
	)
	reportService := service.NewReportService(expenseRepo, kvLogger)

	// Initialize HTTP server
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, expenseService, reportService, kvLogger)

	// Shut down on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	if err := events.Close(); err != nil {
		logger.Error("Dispatcher close error", zap.Error(err))
	}
	logger.Info("Server exited successfully")
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/munimji/munimji/internal/app"
	"github.com/munimji/munimji/internal/billing"
	"github.com/munimji/munimji/internal/ledger"
	"github.com/munimji/munimji/internal/masterdata/parties"
	"github.com/munimji/munimji/internal/platform/cache"
	"github.com/munimji/munimji/internal/platform/db"
	"github.com/munimji/munimji/internal/shared"
	"github.com/munimji/munimji/internal/stock"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	bumper := cache.NewBumper(redisClient)

	partiesRepo := parties.NewRepository(dbpool)
	partiesHandler := parties.NewHandler(logger, partiesRepo)

	stockRepo := stock.NewRepository(dbpool)
	stockService := stock.NewService(stockRepo, auditLogger, logger)
	stockHandler := stock.NewHandler(logger, stockService)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, partiesRepo, auditLogger, bumper, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, ledgerRepo)

	billingRepo := billing.NewRepository(dbpool)
	billingService := billing.NewService(billingRepo, partiesRepo, auditLogger, bumper, logger)
	billingHandler := billing.NewHandler(logger, billingService, dbpool)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		BillingHandler: billingHandler,
		LedgerHandler:  ledgerHandler,
		StockHandler:   stockHandler,
		PartiesHandler: partiesHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

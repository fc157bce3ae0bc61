package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/backline-erp/backline/internal/accounts"
	"github.com/backline-erp/backline/internal/app"
	"github.com/backline-erp/backline/internal/balances"
	"github.com/backline-erp/backline/internal/ledger"
	"github.com/backline-erp/backline/internal/masterdata"
	"github.com/backline-erp/backline/internal/platform/cache"
	"github.com/backline-erp/backline/internal/platform/db"
	"github.com/backline-erp/backline/internal/reports"
	"github.com/backline-erp/backline/internal/shared"
	"github.com/backline-erp/backline/internal/vouchers"
	"github.com/backline-erp/backline/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	accountRepo := accounts.NewRepository(pool)
	accountHandler := accounts.NewHandler(logger, accountRepo)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerHandler := ledger.NewHandler(logger, ledgerRepo)
	balanceRepo := balances.NewRepository(pool)
	balanceService := balances.NewService(balanceRepo, ledgerRepo, logger)
	stockHandler := balances.NewHandler(logger, balanceService)

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	voucherRepo := vouchers.NewRepository(pool, ledgerRepo, balanceRepo)
	voucherService := vouchers.NewService(voucherRepo, voucherRepo, auditLogger, idempotencyStore, jobClient, logger)
	voucherHandler := vouchers.NewHandler(logger, voucherService)

	reportRepo := reports.NewRepository(pool)
	reportService := reports.NewService(reportRepo, accountRepo, logger)
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportHandler := reports.NewHandler(logger, reportService, reportCache)

	masterRepo := masterdata.NewRepository(pool)
	masterHandler := masterdata.NewHandler(logger, masterRepo)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AccountsHandler:   accountHandler,
		LedgerHandler:     ledgerHandler,
		VouchersHandler:   voucherHandler,
		ReportsHandler:    reportHandler,
		StockHandler:      stockHandler,
		MasterDataHandler: masterHandler,
		JobHandler:        jobHandler,
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

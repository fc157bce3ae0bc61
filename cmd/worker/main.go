package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/backline-erp/backline/internal/app"
	"github.com/backline-erp/backline/internal/balances"
	"github.com/backline-erp/backline/internal/ledger"
	"github.com/backline-erp/backline/internal/platform/db"
	"github.com/backline-erp/backline/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	ledgerRepo := ledger.NewRepository(pool)
	balanceRepo := balances.NewRepository(pool)
	balanceService := balances.NewService(balanceRepo, ledgerRepo, logger)

	rebuildJob := jobs.NewSnapshotRebuildJob(balanceService, logger)
	verifyJob := jobs.NewLedgerVerifyJob(balanceService, ledgerRepo, logger)

	verifyTask, err := jobs.NewLedgerVerifyTask("", "0.000001")
	if err != nil {
		logger.Error("build verify task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSnapshotRebuild, Handler: rebuildJob.Handle},
			{Type: jobs.TaskLedgerVerify, Handler: verifyJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 1 * * *", Task: verifyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

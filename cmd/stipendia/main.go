package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/stipendia/stipendia/internal/app"
	"github.com/stipendia/stipendia/internal/applications"
	"github.com/stipendia/stipendia/internal/audit"
	"github.com/stipendia/stipendia/internal/auth"
	"github.com/stipendia/stipendia/internal/budgets"
	"github.com/stipendia/stipendia/internal/ledger"
	"github.com/stipendia/stipendia/internal/ops"
	"github.com/stipendia/stipendia/internal/periods"
	"github.com/stipendia/stipendia/internal/platform/cache"
	"github.com/stipendia/stipendia/internal/platform/db"
	"github.com/stipendia/stipendia/internal/programs"
	"github.com/stipendia/stipendia/internal/reports"
	"github.com/stipendia/stipendia/internal/server"
	"github.com/stipendia/stipendia/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, program listing cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	auditor := audit.NewRecorder(pool, logger)
	tokens := auth.NewTokenStore(cfg.TokenTTL)

	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo, tokens)
	authSvc := auth.NewService(userRepo, tokens)

	periodSvc := periods.NewService(periods.NewRepository(pool))

	listCache := programs.NewListCache(redisClient, cfg.ProgramCacheTTL)
	programSvc := programs.NewService(programs.NewRepository(pool), listCache)

	budgetSvc := budgets.NewService(budgets.NewRepository(pool))
	ledgerSvc := ledger.NewService(ledger.NewRepository(pool), auditor, programSvc)

	applicationSvc := applications.NewService(applications.NewRepository(pool), programSvc, periodSvc, auditor)
	reportSvc := reports.NewService(reports.NewRepository(pool))

	dispatcher := server.NewDispatcher(logger, server.Services{
		Auth:         authSvc,
		Users:        userSvc,
		Periods:      periodSvc,
		Programs:     programSvc,
		Budgets:      budgetSvc,
		Ledger:       ledgerSvc,
		Applications: applicationSvc,
		Reports:      reportSvc,
	})
	srv := server.New(cfg.AppAddr, dispatcher, logger, server.Options{
		MaxFrameBytes:  cfg.MaxFrameBytes,
		CommandTimeout: cfg.CommandTimeout,
	})
	opsSrv := ops.New(cfg.OpsAddr, logger, pool, redisClient)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Serve(groupCtx)
	})
	group.Go(func() error {
		return opsSrv.Serve(groupCtx)
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/powermaps/contact/internal/config"
	"github.com/powermaps/contact/internal/logging"
	"github.com/powermaps/contact/internal/pool"
	"github.com/powermaps/contact/internal/storage/postgres"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, ".env")
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := postgres.ConnectDB(ctx, nil, log)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	workers := pool.NewFromConfig(cfg, postgres.NewJobRepository(db), log)
	workers.Start(ctx)
	log.Info("worker pool active, press Ctrl+C to stop",
		zap.Int("workers", cfg.Worker.Count),
		zap.Strings("queues", cfg.Worker.Queues),
	)

	<-ctx.Done()

	workers.Stop()
	log.Info("shutdown complete")
	return nil
}

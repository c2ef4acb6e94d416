package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/powermaps/contact/internal/api"
	"github.com/powermaps/contact/internal/config"
	"github.com/powermaps/contact/internal/contact"
	"github.com/powermaps/contact/internal/job"
	"github.com/powermaps/contact/internal/logging"
	"github.com/powermaps/contact/internal/pool"
	"github.com/powermaps/contact/internal/storage/postgres"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "api:", err)
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

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, sqlDB); err != nil {
			return err
		}
		log.Info("database migrated")
	}

	jobRepo := postgres.NewJobRepository(db)
	subRepo := postgres.NewSubmissionRepository(db)

	router, err := api.NewRouter(cfg, api.Handlers{
		Contact: contact.NewHandler(contact.NewService(subRepo, cfg.Contact, log), log),
		Jobs:    job.NewJobHandler(job.NewJobService(jobRepo)),
	}, sqlDB, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.RunWorkers {
		workers := pool.NewFromConfig(cfg, jobRepo, log)
		workers.Start(gctx)
		g.Go(func() error {
			<-gctx.Done()
			workers.Stop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("api stopped with error", zap.Error(err))
		return err
	}
	log.Info("shutdown complete")
	return nil
}

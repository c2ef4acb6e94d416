package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/powermaps/contact/internal/storage/postgres"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the contact service database schema",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading POSTGRES_* variables")

	root.AddCommand(
		schemaCmd("up", "Apply all pending migrations", postgres.Migrate),
		schemaCmd("down", "Roll back the most recent migration", postgres.Rollback),
		schemaCmd("status", "Show which migrations are applied", postgres.MigrationStatus),
	)
	return root
}

func schemaCmd(use, short string, fn func(context.Context, *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			return fn(ctx, db)
		},
	}
}

func openDB(ctx context.Context) (*sql.DB, error) {
	cfg, err := postgres.LoadConfigFromEnv(ctx)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}

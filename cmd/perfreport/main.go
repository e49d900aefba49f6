package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"perfreport/internal/config"
	"perfreport/internal/db"
	"perfreport/internal/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "perfreport",
		Short:         "Fiscal-year performance reports from CRM, ERP and DataCode exports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newImportCmd(), newGenerateCmd(), newMigrateCmd())
	return root
}

// env is the configuration, logger and database shared by commands that
// touch storage.
type env struct {
	cfg  config.Config
	log  *zap.Logger
	pool *pgxpool.Pool
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("logger error: %w", err)
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &env{cfg: cfg, log: logger, pool: pool}, nil
}

func (e *env) Close() {
	e.pool.Close()
	_ = e.log.Sync()
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			applied, err := db.RunMigrations(cmd.Context(), e.pool)
			if err != nil {
				return fmt.Errorf("migration error: %w", err)
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, version := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", version)
			}
			return nil
		},
	}
}

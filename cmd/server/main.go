package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"perfreport/internal/agent"
	"perfreport/internal/config"
	"perfreport/internal/db"
	httpapi "perfreport/internal/http"
	"perfreport/internal/logging"
	"perfreport/internal/repository"
	"perfreport/internal/service"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("logger error: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	defer pool.Close()

	applied, err := db.RunMigrations(ctx, pool)
	if err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("versions", applied))
	}

	repo := repository.New(pool)
	opts := service.Options{
		ReportAgentID:  cfg.Agent.ReportAgentID,
		CompareAgentID: cfg.Agent.CompareAgentID,
		Logger:         logger.Named("service"),
	}
	if cfg.Agent.Enabled() {
		opts.Agent = agent.NewClient(agent.Options{
			BaseURL: cfg.Agent.URL,
			APIKey:  cfg.Agent.APIKey,
			UserID:  cfg.Agent.UserID,
			Timeout: cfg.Agent.Timeout,
		})
	} else {
		logger.Warn("chat agent not configured; chat and comparison endpoints are disabled")
	}
	svc := service.New(repo, opts)

	handler := httpapi.NewHandler(svc, httpapi.Options{
		Ping:           repo.Ping,
		UploadMaxBytes: cfg.UploadMaxBytes,
		Logger:         logger,
	})
	// Leave room past the agent timeout for storing the answer.
	requestTimeout := cfg.Agent.Timeout + 30*time.Second
	router := httpapi.NewRouter(handler, httpapi.RouterOptions{
		Logger:         logger,
		RequestTimeout: requestTimeout,
	})

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      requestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("perfreport listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("force close failed", zap.Error(closeErr))
		}
	}
	return nil
}

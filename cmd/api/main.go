package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaekwang-park/todo-local/internal/config"
	todohttp "github.com/jaekwang-park/todo-local/internal/http"
	"github.com/jaekwang-park/todo-local/internal/middleware"
	"github.com/jaekwang-park/todo-local/internal/repository"
	"github.com/jaekwang-park/todo-local/internal/service"
)

func main() {
	// Initial logger at info level; reconfigured after config load
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(context.Background()); err != nil {
		logger.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.ParseLogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("config loaded",
		"env", cfg.AppEnv,
		"addr", cfg.Addr(),
		"db_driver", cfg.DB.Driver,
		"auth_enabled", cfg.Auth.TokenSecret != "",
		"log_level", cfg.LogLevel,
	)

	repo, err := repository.NewSQLTodo(cfg.DB.Driver, cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("failed to create todo store: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("failed to close todo store", "error", err)
		}
	}()

	ctl := service.NewListController(repo, logger)
	defer ctl.Close()

	initCtx, cancelInit := context.WithTimeout(ctx, 10*time.Second)
	err = ctl.Initialize(initCtx)
	cancelInit()
	if err != nil {
		return err
	}
	logger.Info("todo list loaded", "count", len(ctl.Items()))

	auth := middleware.NewAuth(middleware.AuthConfig{
		Secret: cfg.Auth.TokenSecret,
		Issuer: cfg.Auth.TokenIssuer,
	})
	if !auth.Enabled() {
		logger.Warn("token auth disabled: API_TOKEN_SECRET not set")
	}

	srv := todohttp.NewServer(cfg.Addr(), logger, ctl, auth, repo.Ping)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Deferred calls then close the controller before the store.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/npezzotti/go-curio/internal/adapter"
	"github.com/npezzotti/go-curio/internal/api"
	"github.com/npezzotti/go-curio/internal/auth"
	"github.com/npezzotti/go-curio/internal/config"
	"github.com/npezzotti/go-curio/internal/database"
	"github.com/npezzotti/go-curio/internal/demo"
	"github.com/npezzotti/go-curio/internal/feedback"
	"github.com/npezzotti/go-curio/internal/guard"
	"github.com/npezzotti/go-curio/internal/server"
	"github.com/npezzotti/go-curio/internal/stats"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func newGuard(cfg *config.Config) (guard.Guard, func(), error) {
	if cfg.Redis.Addr == "" {
		return guard.NewMemoryGuard(), func() {}, nil
	}

	g := guard.NewRedisGuard(guard.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.Ping(ctx); err != nil {
		g.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	return g, func() { g.Close() }, nil
}

func serve(cfg *config.Config) error {
	driver := cfg.DatabaseDriver()
	if err := database.Migrate(driver, cfg.Database.DSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	dbConn, err := database.NewCurioRepository(driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("db close", zap.Error(err))
		}
	}()

	g, closeGuard, err := newGuard(cfg)
	if err != nil {
		return err
	}
	defer closeGuard()

	var authOpts []auth.Option
	var feedbackClient api.FeedbackSender
	if cfg.Feedback.URL != "" {
		fc := feedback.NewClient(cfg.Feedback.URL, cfg.Feedback.Key, cfg.Feedback.To, logger)
		feedbackClient = fc
		authOpts = append(authOpts, auth.WithMailer(fc))
	} else {
		logger.Warn("no feedback relay configured; feedback and password reset are disabled")
	}

	authSvc := auth.NewService(dbConn, cfg.SigningKey, logger, authOpts...)
	entities := adapter.New(dbConn, logger)

	if cfg.Demo {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := demo.Seed(ctx, authSvc, entities, logger)
		cancel()
		if err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		logger.Info("demo mode", zap.String("email", demo.Email), zap.String("password", demo.Password))
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.Run()
	defer statsUpdater.Stop()

	viewServer := server.NewViewServer(logger, entities, g, statsUpdater)
	viewServer.Subscribe(authSvc)
	go viewServer.Run()

	srv := api.NewCurioApp(mux, logger, api.Services{
		Auth:     authSvc,
		Entities: entities,
		Guard:    g,
		Feedback: feedbackClient,
		Health:   dbConn,
		Views:    viewServer,
		Stats:    statsUpdater,
	}, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigs:
		logger.Info("received signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server: %w", err)
		}
	}

	shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Error("HTTP server shutdown", zap.Error(err))
	}

	logger.Info("closing view sessions")
	viewServer.Shutdown()

	logger.Info("shutdown complete")
	return serveErr
}

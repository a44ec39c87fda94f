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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"imkit/internal/app"
)

const shutdownTimeout = 10 * time.Second

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect the SDK and serve until interrupted",
		Long:  "Builds the app, connects the SDK client, starts enabled transports (Telegram, Discord, Slack, WebSocket) and the metrics endpoint. Press Ctrl+C to stop.",
		RunE:  runApp,
	}
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close app", zap.Error(err))
		}
	}()

	if err := a.Connect(ctx); err != nil {
		return err
	}

	chs := a.Channels()
	for _, ch := range chs {
		go func() {
			if err := ch.Start(ctx, a.Client); err != nil {
				logger.Error("channel error", zap.String("channel", ch.Name()), zap.Error(err))
			}
		}()
		logger.Info("channel enabled", zap.String("channel", ch.Name()))
	}

	srv := a.MetricsServer()
	if srv != nil {
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
		logger.Info("metrics endpoint listening", zap.String("addr", srv.Addr), zap.String("path", cfg.Metrics.Path))
	}

	logger.Info("imkit running. Press Ctrl+C to stop.")
	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
	}
	for _, ch := range chs {
		_ = ch.Stop()
	}
	logger.Info("shutdown complete")
	return nil
}

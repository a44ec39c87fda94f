package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"imkit/internal/app"
	"imkit/internal/imsdk"
)

func simulateCmd() *cobra.Command {
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "simulate [script.yaml]",
		Short: "Replay a scripted conversation through the SDK client and event adapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			script, err := imsdk.LoadScript(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Connect(ctx); err != nil {
				return err
			}
			if err := a.Client.Run(ctx, a.Context, script); err != nil {
				return err
			}

			// Let dispatch drain queued receive steps.
			deadline := time.Now().Add(settle)
			for a.Queue.Len() > 0 && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}
			time.Sleep(50 * time.Millisecond)

			logger.Info("simulation finished",
				zap.String("script", script.Name),
				zap.Int("steps", len(script.Steps)),
				zap.Int("unread", a.Client.TotalUnreadCount()),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "unread: %d\nscreens open: %d\n", a.Client.TotalUnreadCount(), a.Router.Depth())
			return nil
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", 2*time.Second, "max time to wait for queued messages to dispatch")
	return cmd
}

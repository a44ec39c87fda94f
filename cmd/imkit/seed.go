package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"imkit/internal/app"
	"imkit/internal/store"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [fixture.yaml]",
		Short: "Load users and groups from a YAML fixture into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Driver != "sqlite" {
				logger.Warn("memory store is not persistent; seeding has no lasting effect", zap.String("driver", cfg.Store.Driver))
			}

			st, err := app.OpenStore(cfg.Store, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			f, err := store.LoadFixture(args[0])
			if err != nil {
				return err
			}
			if err := store.Seed(context.Background(), st, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d groups\n", len(f.Users), len(f.Groups))
			return nil
		},
	}
}

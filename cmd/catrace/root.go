package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/catrace/backend/internal/infrastructure/config"
	"github.com/catrace/backend/pkg/logger"
)

const serviceName = "catrace"

// NewRootCmd creates the root command for the catrace CLI. Settings come from
// the environment; see internal/infrastructure/config.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catrace",
		Short: "Catrace game backend",
		Long: `Catrace serves player login, cat profiles and race signups over HTTP.
All settings are read from environment variables.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}

// loadConfig reads the environment and initialises the process logger from it.
func loadConfig(ctx context.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Nop(), oops.Code("CONFIG_INVALID").Wrap(err)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: serviceName,
	})
	return cfg, log, nil
}

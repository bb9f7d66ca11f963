package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/catrace/backend/internal/api"
	"github.com/catrace/backend/internal/api/handler"
	"github.com/catrace/backend/internal/core/service"
	httpserver "github.com/catrace/backend/internal/infrastructure/http"
	"github.com/catrace/backend/internal/infrastructure/http/handlers"
	"github.com/catrace/backend/internal/pkg/clock"
	"github.com/catrace/backend/pkg/logger"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API on PORT. The server drains in-flight requests and
closes storage on SIGINT or SIGTERM.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("closing storage")
		}
		log.Info().Msg("storage closed")
	}()

	limiter, rdb, err := newLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	sessions, err := service.NewSessionManager([]byte(cfg.Session.Secret), cfg.Session.TTL, clock.Real{})
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	verifier := service.NewPasswordVerifier(cfg.Session.BcryptCost)
	if verifier.Cost() != cfg.Session.BcryptCost {
		log.Warn().Int("requested", cfg.Session.BcryptCost).Int("using", verifier.Cost()).Msg("bcrypt cost adjusted")
	}

	health := map[string]handlers.Pinger{"database": store}
	if rdb != nil {
		health["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	e := api.NewRouter(api.Deps{
		Auth:     service.NewAuthService(store, verifier, sessions, limiter, logger.Component("auth")),
		Profiles: service.NewProfileService(store, logger.Component("profile")),
		Races:    service.NewRaceService(store, logger.Component("races")),
		Cookie: handler.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.CookieSecure(),
			TTL:    sessions.TTL(),
		},
		TrustProxy: cfg.TrustProxy,
		Health:     health,
		Log:        logger.Component("http"),
	})

	log.Info().
		Str("env", cfg.Env).
		Str("storage", cfg.Storage.Driver).
		Dur("session_ttl", sessions.TTL()).
		Msg("starting catrace")

	if err := httpserver.NewServer(e, cfg.Addr(), log).Run(ctx); err != nil {
		return oops.Code("SERVER_FAILED").Wrap(err)
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/catrace/backend/internal/core/domain"
	"github.com/catrace/backend/internal/core/ports"
)

// AuthService implements login and session authentication.
type AuthService struct {
	players  ports.PlayerStore
	verifier *PasswordVerifier
	sessions *SessionManager
	limiter  ports.RateLimiter
	log      zerolog.Logger
}

func NewAuthService(
	players ports.PlayerStore,
	verifier *PasswordVerifier,
	sessions *SessionManager,
	limiter ports.RateLimiter,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		players:  players,
		verifier: verifier,
		sessions: sessions,
		limiter:  limiter,
		log:      log,
	}
}

// Login verifies credentials and issues a session. Unknown usernames and wrong
// passwords both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	// 1. Reject incomplete input before any attempt is counted or looked up.
	if in.Username == "" {
		return nil, domain.NewValidationError("username", "is required")
	}
	if in.Password == "" {
		return nil, domain.NewValidationError("password", "is required")
	}

	// 2. Admission. A limiter outage admits the attempt rather than locking
	// everybody out.
	decision, err := s.limiter.Allow(ctx, in.ClientKey)
	if err != nil {
		s.log.Warn().Err(err).Str("client", in.ClientKey).Msg("rate limiter unavailable, admitting attempt")
	} else if !decision.Allowed {
		return nil, &domain.RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	// 3. Lookup.
	player, err := s.players.FindPlayerByUsername(ctx, in.Username)
	if errors.Is(err, domain.ErrNotFound) {
		s.verifier.CompareDummy(in.Password)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	// 4. Verify.
	res, err := s.verifier.Verify(in.Password, player.Credential)
	if err != nil {
		s.log.Error().Err(err).Int64("player_id", player.ID).Msg("stored credential is unreadable")
		return nil, domain.ErrInvalidCredentials
	}
	if !res.Matched {
		return nil, domain.ErrInvalidCredentials
	}

	// 5. Best-effort migration of a legacy credential.
	migration := ports.MigrationNone
	switch {
	case res.MigrationErr != nil:
		migration = ports.MigrationFailed
		s.log.Error().Err(res.MigrationErr).Int64("player_id", player.ID).Msg("legacy credential could not be hashed")
	case res.Migrated != nil:
		if err := s.players.MigrateCredential(ctx, player.ID, *res.Migrated); err != nil {
			migration = ports.MigrationFailed
			s.log.Error().Err(err).Int64("player_id", player.ID).Msg("failed to persist migrated credential")
		} else {
			migration = ports.MigrationPersisted
			player.Credential = *res.Migrated
			s.log.Info().Int64("player_id", player.ID).Msg("legacy credential migrated to bcrypt")
		}
	}

	// 6. Issue.
	session, err := s.sessions.Issue(player.Identity())
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Int64("player_id", player.ID).Msg("player logged in")

	return &ports.LoginResult{Player: player, Session: session, Migration: migration}, nil
}

func (s *AuthService) Authenticate(_ context.Context, token string) (domain.PlayerIdentity, error) {
	return s.sessions.Authenticate(token)
}

var _ ports.AuthService = (*AuthService)(nil)

package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/catrace/backend/internal/core/domain"
	"github.com/catrace/backend/internal/core/ports"
)

type raceService struct {
	races ports.RaceStore
	log   zerolog.Logger
}

// NewRaceService returns a RaceService implementation.
func NewRaceService(races ports.RaceStore, log zerolog.Logger) ports.RaceService {
	return &raceService{races: races, log: log}
}

func (s *raceService) ListRaces(ctx context.Context) ([]domain.Race, error) {
	races, err := s.races.ListScheduledRaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	return races, nil
}

// Signup registers playerID for raceID at most once. Concurrent duplicate
// requests all succeed; only the one whose insert created the row reports
// Registered. There is no read-then-write on the signup itself: the store's
// insert-if-absent is the sole arbiter.
func (s *raceService) Signup(ctx context.Context, raceID, playerID int64) (domain.SignupResult, error) {
	if raceID <= 0 {
		return domain.SignupResult{}, domain.NewValidationError("race_id", "must be a positive integer")
	}
	if playerID <= 0 {
		return domain.SignupResult{}, domain.ErrInvalidSession
	}

	if _, err := s.races.FindScheduledRace(ctx, raceID); err != nil {
		return domain.SignupResult{}, fmt.Errorf("signup: %w", err)
	}

	created, err := s.races.InsertSignupIfAbsent(ctx, raceID, playerID)
	if err != nil {
		return domain.SignupResult{}, fmt.Errorf("signup: %w", err)
	}

	s.log.Info().
		Int64("race_id", raceID).
		Int64("player_id", playerID).
		Bool("registered", created).
		Msg("race signup")

	return domain.SignupResult{Registered: created, AlreadyRegistered: !created}, nil
}

package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/catrace/backend/internal/core/domain"
	"github.com/catrace/backend/internal/core/ports"
)

// ProfileStore is the storage subset the profile use cases need.
type ProfileStore interface {
	ports.PlayerStore
	ports.CatStore
}

type profileService struct {
	store ProfileStore
	log   zerolog.Logger
}

// NewProfileService returns a ProfileService implementation.
func NewProfileService(store ProfileStore, log zerolog.Logger) ports.ProfileService {
	return &profileService{store: store, log: log}
}

func (s *profileService) GetProfile(ctx context.Context, playerID int64) (*ports.Profile, error) {
	player, err := s.store.FindPlayerByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	profile := &ports.Profile{Player: player}
	if player.CatID == nil {
		return profile, nil
	}

	cat, err := s.store.FindCat(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	profile.Cat = cat
	return profile, nil
}

// SaveCat creates the player's cat on first call and updates it afterwards.
func (s *profileService) SaveCat(ctx context.Context, playerID int64, in domain.CatInput) (*domain.Cat, bool, error) {
	in, err := in.Normalize()
	if err != nil {
		return nil, false, err
	}

	cat, created, err := s.store.UpsertCat(ctx, playerID, in)
	if err != nil {
		return nil, false, fmt.Errorf("save cat: %w", err)
	}

	s.log.Info().
		Int64("player_id", playerID).
		Int64("cat_id", cat.ID).
		Bool("created", created).
		Msg("cat saved")

	return cat, created, nil
}

// Package memory is an in-process Store used for local development and tests.
// All operations run under a single lock, which makes every multi-step write
// atomic.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/catrace/backend/internal/core/domain"
	"github.com/catrace/backend/internal/core/ports"
)

type signupKey struct {
	raceID   int64
	playerID int64
}

type Store struct {
	mu sync.RWMutex

	players    map[int64]*domain.Player
	byUsername map[string]int64
	cats       map[int64]*domain.Cat
	races      map[int64]*domain.Race
	signups    map[signupKey]struct{}

	nextPlayerID int64
	nextCatID    int64
	nextRaceID   int64
}

func New() *Store {
	return &Store{
		players:    make(map[int64]*domain.Player),
		byUsername: make(map[string]int64),
		cats:       make(map[int64]*domain.Cat),
		races:      make(map[int64]*domain.Race),
		signups:    make(map[signupKey]struct{}),
	}
}

func (s *Store) FindPlayerByUsername(_ context.Context, username string) (*domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return clonePlayer(s.players[id]), nil
}

func (s *Store) FindPlayerByID(_ context.Context, id int64) (*domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return clonePlayer(p), nil
}

func (s *Store) MigrateCredential(_ context.Context, playerID int64, hashed domain.Credential) error {
	if hashed.IsLegacy() {
		return domain.NewValidationError("credential", "migration target must be hashed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if p.Credential.IsLegacy() {
		p.Credential = hashed
	}
	return nil
}

func (s *Store) FindCat(_ context.Context, playerID int64) (*domain.Cat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[playerID]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	if p.CatID == nil {
		return nil, nil
	}
	c := *s.cats[*p.CatID]
	return &c, nil
}

func (s *Store) UpsertCat(_ context.Context, playerID int64, in domain.CatInput) (*domain.Cat, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return nil, false, domain.ErrPlayerNotFound
	}

	if p.CatID != nil {
		c := s.cats[*p.CatID]
		c.Name, c.Color, c.Age = in.Name, in.Color, in.Age
		out := *c
		return &out, false, nil
	}

	s.nextCatID++
	c := &domain.Cat{ID: s.nextCatID, Name: in.Name, Color: in.Color, Age: in.Age}
	s.cats[c.ID] = c
	catID := c.ID
	p.CatID = &catID

	out := *c
	return &out, true, nil
}

func (s *Store) ListScheduledRaces(_ context.Context) ([]domain.Race, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	races := make([]domain.Race, 0, len(s.races))
	for _, r := range s.races {
		if r.Status == domain.RaceScheduled {
			races = append(races, *r)
		}
	}
	sort.Slice(races, func(i, j int) bool {
		if races[i].StartsAt.Equal(races[j].StartsAt) {
			return races[i].ID < races[j].ID
		}
		return races[i].StartsAt.Before(races[j].StartsAt)
	})
	return races, nil
}

func (s *Store) FindScheduledRace(_ context.Context, raceID int64) (*domain.Race, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.races[raceID]
	if !ok || r.Status != domain.RaceScheduled {
		return nil, domain.ErrRaceNotFound
	}
	out := *r
	return &out, nil
}

func (s *Store) InsertSignupIfAbsent(_ context.Context, raceID, playerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.races[raceID]; !ok {
		return false, domain.ErrRaceNotFound
	}
	if _, ok := s.players[playerID]; !ok {
		return false, domain.ErrPlayerNotFound
	}

	k := signupKey{raceID: raceID, playerID: playerID}
	if _, exists := s.signups[k]; exists {
		return false, nil
	}
	s.signups[k] = struct{}{}
	return true, nil
}

func (s *Store) SeedPlayer(_ context.Context, sp ports.SeedPlayer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[sp.Username]; exists {
		return false, nil
	}
	s.nextPlayerID++
	s.players[s.nextPlayerID] = &domain.Player{
		ID:          s.nextPlayerID,
		Username:    sp.Username,
		Credential:  sp.Credential,
		DisplayName: sp.DisplayName,
	}
	s.byUsername[sp.Username] = s.nextPlayerID
	return true, nil
}

// SeedRace treats (name, starts_at) as the natural key.
func (s *Store) SeedRace(_ context.Context, r domain.Race) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.races {
		if existing.Name == r.Name && existing.StartsAt.Equal(r.StartsAt) {
			return false, nil
		}
	}
	if r.Status == "" {
		r.Status = domain.RaceScheduled
	}
	s.nextRaceID++
	r.ID = s.nextRaceID
	s.races[r.ID] = &r
	return true, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func clonePlayer(p *domain.Player) *domain.Player {
	out := *p
	if p.CatID != nil {
		id := *p.CatID
		out.CatID = &id
	}
	return &out
}

var _ ports.Store = (*Store)(nil)

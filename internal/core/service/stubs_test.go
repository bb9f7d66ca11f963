package service

import (
	"context"
	"sync"

	"github.com/catrace/backend/internal/core/domain"
	"github.com/catrace/backend/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Player store
// ---------------------------------------------------------------------------

type stubPlayerStore struct {
	mu         sync.Mutex
	byUsername map[string]*domain.Player
	findErr    error
	migrateErr error
	findCalls  int
	migrated   []int64
}

func newStubPlayerStore(players ...*domain.Player) *stubPlayerStore {
	s := &stubPlayerStore{byUsername: make(map[string]*domain.Player)}
	for _, p := range players {
		s.byUsername[p.Username] = p
	}
	return s
}

func (s *stubPlayerStore) FindPlayerByUsername(_ context.Context, username string) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	p, ok := s.byUsername[username]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubPlayerStore) FindPlayerByID(_ context.Context, id int64) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byUsername {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrPlayerNotFound
}

func (s *stubPlayerStore) MigrateCredential(_ context.Context, playerID int64, hashed domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.migrateErr != nil {
		return s.migrateErr
	}
	for _, p := range s.byUsername {
		if p.ID == playerID && p.Credential.IsLegacy() {
			p.Credential = hashed
		}
	}
	s.migrated = append(s.migrated, playerID)
	return nil
}

// ---------------------------------------------------------------------------
// Limiter
// ---------------------------------------------------------------------------

type stubLimiter struct {
	decision ports.RateDecision
	err      error
	calls    int
}

func (l *stubLimiter) Allow(context.Context, string) (ports.RateDecision, error) {
	l.calls++
	return l.decision, l.err
}

// ---------------------------------------------------------------------------
// Race store
// ---------------------------------------------------------------------------

type signupKey struct{ race, player int64 }

type stubRaceStore struct {
	mu          sync.Mutex
	races       map[int64]domain.Race
	signups     map[signupKey]struct{}
	insertErr   error
	insertCalls int
}

func newStubRaceStore(races ...domain.Race) *stubRaceStore {
	s := &stubRaceStore{
		races:   make(map[int64]domain.Race),
		signups: make(map[signupKey]struct{}),
	}
	for _, r := range races {
		s.races[r.ID] = r
	}
	return s
}

func (s *stubRaceStore) ListScheduledRaces(context.Context) ([]domain.Race, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Race
	for _, r := range s.races {
		if r.Status == domain.RaceScheduled {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRaceStore) FindScheduledRace(_ context.Context, raceID int64) (*domain.Race, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.races[raceID]
	if !ok || r.Status != domain.RaceScheduled {
		return nil, domain.ErrRaceNotFound
	}
	return &r, nil
}

func (s *stubRaceStore) InsertSignupIfAbsent(_ context.Context, raceID, playerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.insertErr != nil {
		return false, s.insertErr
	}
	k := signupKey{raceID, playerID}
	if _, ok := s.signups[k]; ok {
		return false, nil
	}
	s.signups[k] = struct{}{}
	return true, nil
}

// ---------------------------------------------------------------------------
// Cat store
// ---------------------------------------------------------------------------

type stubProfileStore struct {
	*stubPlayerStore
	cats         map[int64]*domain.Cat
	nextCatID    int64
	findCatCalls int
}

func newStubProfileStore(players ...*domain.Player) *stubProfileStore {
	return &stubProfileStore{
		stubPlayerStore: newStubPlayerStore(players...),
		cats:            make(map[int64]*domain.Cat),
	}
}

func (s *stubProfileStore) FindCat(_ context.Context, playerID int64) (*domain.Cat, error) {
	s.findCatCalls++
	c, ok := s.cats[playerID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *stubProfileStore) UpsertCat(_ context.Context, playerID int64, in domain.CatInput) (*domain.Cat, bool, error) {
	if c, ok := s.cats[playerID]; ok {
		c.Name, c.Color, c.Age = in.Name, in.Color, in.Age
		cp := *c
		return &cp, false, nil
	}
	s.nextCatID++
	c := &domain.Cat{ID: s.nextCatID, Name: in.Name, Color: in.Color, Age: in.Age}
	s.cats[playerID] = c
	for _, p := range s.byUsername {
		if p.ID == playerID {
			id := c.ID
			p.CatID = &id
		}
	}
	cp := *c
	return &cp, true, nil
}

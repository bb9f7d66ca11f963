package ports

import (
	"context"

	"github.com/catrace/backend/internal/core/domain"
)

// PlayerStore is the credential and profile persistence used by login and
// profile reads. Lookups are exact and case-sensitive.
type PlayerStore interface {
	// FindPlayerByUsername returns domain.ErrPlayerNotFound when no row matches.
	FindPlayerByUsername(ctx context.Context, username string) (*domain.Player, error)
	FindPlayerByID(ctx context.Context, id int64) (*domain.Player, error)
	// MigrateCredential replaces a legacy credential with hashed. It is a no-op
	// when the stored credential is already hashed, so a credential never
	// reverts to legacy.
	MigrateCredential(ctx context.Context, playerID int64, hashed domain.Credential) error
}

// CatStore owns the 0..1 cat linked to each player.
type CatStore interface {
	// FindCat returns nil, nil when the player has no cat yet.
	FindCat(ctx context.Context, playerID int64) (*domain.Cat, error)
	// UpsertCat creates the player's cat on first write and updates it in place
	// afterwards. created reports which branch ran.
	UpsertCat(ctx context.Context, playerID int64, in domain.CatInput) (cat *domain.Cat, created bool, err error)
}

// RaceStore covers race listing and the signup uniqueness arbiter.
type RaceStore interface {
	ListScheduledRaces(ctx context.Context) ([]domain.Race, error)
	// FindScheduledRace returns domain.ErrRaceNotFound when the race does not
	// exist or its status is not scheduled.
	FindScheduledRace(ctx context.Context, raceID int64) (*domain.Race, error)
	// InsertSignupIfAbsent atomically inserts the (race, player) pair. created
	// is true only for the caller whose insert produced the row.
	InsertSignupIfAbsent(ctx context.Context, raceID, playerID int64) (created bool, err error)
}

// SeedPlayer is an out-of-band player definition.
type SeedPlayer struct {
	Username    string
	Credential  domain.Credential
	DisplayName string
}

// Seeder creates fixtures idempotently; created is false when the row existed.
type Seeder interface {
	SeedPlayer(ctx context.Context, p SeedPlayer) (created bool, err error)
	SeedRace(ctx context.Context, r domain.Race) (created bool, err error)
}

// Store is the full storage capability handed to the services.
type Store interface {
	PlayerStore
	CatStore
	RaceStore
	Seeder
	Ping(ctx context.Context) error
	Close() error
}

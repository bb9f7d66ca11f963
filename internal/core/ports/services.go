package ports

import (
	"context"
	"time"

	"github.com/catrace/backend/internal/core/domain"
)

// LoginInput carries the credentials presented by a client and the key the
// rate limiter counts attempts under (the client address).
type LoginInput struct {
	Username  string
	Password  string
	ClientKey string
}

// Session is an issued token and its expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// MigrationOutcome reports what happened to a legacy credential during login.
type MigrationOutcome string

const (
	MigrationNone      MigrationOutcome = ""
	MigrationPersisted MigrationOutcome = "persisted"
	MigrationFailed    MigrationOutcome = "failed"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Player    *domain.Player
	Session   Session
	Migration MigrationOutcome
}

type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	// Authenticate verifies a session token and returns the identity it carries.
	Authenticate(ctx context.Context, token string) (domain.PlayerIdentity, error)
}

// Profile is a player together with their cat, if any.
type Profile struct {
	Player *domain.Player
	Cat    *domain.Cat
}

type ProfileService interface {
	GetProfile(ctx context.Context, playerID int64) (*Profile, error)
	SaveCat(ctx context.Context, playerID int64, in domain.CatInput) (cat *domain.Cat, created bool, err error)
}

type RaceService interface {
	ListRaces(ctx context.Context) ([]domain.Race, error)
	Signup(ctx context.Context, raceID, playerID int64) (domain.SignupResult, error)
}

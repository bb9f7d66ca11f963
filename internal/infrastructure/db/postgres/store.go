package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/catrace/backend/internal/core/domain"
	"github.com/catrace/backend/internal/core/ports"
)

// pool is the subset of *pgxpool.Pool the store uses; pgxmock.PgxPoolIface
// satisfies it in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store implements ports.Store on PostgreSQL. Every call is bounded by the
// configured query timeout.
type Store struct {
	pool    pool
	timeout time.Duration
}

func NewStore(p pool, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{pool: p, timeout: timeout}
}

const selectPlayer = `SELECT id, username, credential_scheme, credential, display_name, cat_id FROM players`

func (s *Store) FindPlayerByUsername(ctx context.Context, username string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := scanPlayer(s.pool.QueryRow(ctx, selectPlayer+` WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, wrapErr("find player by username", err)
	}
	return p, nil
}

func (s *Store) FindPlayerByID(ctx context.Context, id int64) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := scanPlayer(s.pool.QueryRow(ctx, selectPlayer+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PLAYER_NOT_FOUND").With("player_id", id).Wrap(domain.ErrPlayerNotFound)
	}
	if err != nil {
		return nil, wrapErr("find player by id", err)
	}
	return p, nil
}

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var (
		p              domain.Player
		scheme, secret string
	)
	if err := row.Scan(&p.ID, &p.Username, &scheme, &secret, &p.DisplayName, &p.CatID); err != nil {
		return nil, err
	}
	cred, err := domain.ParseCredential(scheme, secret)
	if err != nil {
		return nil, oops.Code("CREDENTIAL_CORRUPT").With("player_id", p.ID).Wrap(err)
	}
	p.Credential = cred
	return &p, nil
}

// MigrateCredential only touches rows still holding a legacy credential, so a
// concurrent migration of the same player is a no-op.
func (s *Store) MigrateCredential(ctx context.Context, playerID int64, hashed domain.Credential) error {
	if hashed.IsLegacy() {
		return domain.NewValidationError("credential", "migration target must be hashed")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`UPDATE players SET credential_scheme = $2, credential = $3, updated_at = now()
		 WHERE id = $1 AND credential_scheme = 'legacy'`,
		playerID, string(hashed.Scheme()), hashed.Secret())
	return wrapErr("migrate credential", err)
}

func (s *Store) FindCat(ctx context.Context, playerID int64) (*domain.Cat, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var c domain.Cat
	err := s.pool.QueryRow(ctx,
		`SELECT c.id, c.name, c.color, c.age
		 FROM players p JOIN cats c ON c.id = p.cat_id
		 WHERE p.id = $1`, playerID).Scan(&c.ID, &c.Name, &c.Color, &c.Age)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find cat", err)
	}
	return &c, nil
}

// UpsertCat locks the player row so two concurrent first writes cannot both
// create a cat.
func (s *Store) UpsertCat(ctx context.Context, playerID int64, in domain.CatInput) (*domain.Cat, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cat := &domain.Cat{Name: in.Name, Color: in.Color, Age: in.Age}
	created := false

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var catID *int64
		err := tx.QueryRow(ctx, `SELECT cat_id FROM players WHERE id = $1 FOR UPDATE`, playerID).Scan(&catID)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrPlayerNotFound
		}
		if err != nil {
			return err
		}

		if catID != nil {
			cat.ID = *catID
			_, err = tx.Exec(ctx,
				`UPDATE cats SET name = $2, color = $3, age = $4, updated_at = now() WHERE id = $1`,
				cat.ID, cat.Name, cat.Color, cat.Age)
			return err
		}

		if err := tx.QueryRow(ctx,
			`INSERT INTO cats (name, color, age) VALUES ($1, $2, $3) RETURNING id`,
			cat.Name, cat.Color, cat.Age).Scan(&cat.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE players SET cat_id = $2, updated_at = now() WHERE id = $1`,
			playerID, cat.ID); err != nil {
			return err
		}
		created = true
		return nil
	})
	if errors.Is(err, domain.ErrPlayerNotFound) {
		return nil, false, err
	}
	if err != nil {
		return nil, false, wrapErr("upsert cat", err)
	}
	return cat, created, nil
}

func (s *Store) ListScheduledRaces(ctx context.Context) ([]domain.Race, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, distance_m, starts_at, status FROM races
		 WHERE status = 'scheduled' ORDER BY starts_at, id`)
	if err != nil {
		return nil, wrapErr("list races", err)
	}
	defer rows.Close()

	races := make([]domain.Race, 0)
	for rows.Next() {
		r, err := scanRace(rows)
		if err != nil {
			return nil, wrapErr("list races", err)
		}
		races = append(races, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list races", err)
	}
	return races, nil
}

func (s *Store) FindScheduledRace(ctx context.Context, raceID int64) (*domain.Race, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	r, err := scanRace(s.pool.QueryRow(ctx,
		`SELECT id, name, distance_m, starts_at, status FROM races
		 WHERE id = $1 AND status = 'scheduled'`, raceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RACE_NOT_FOUND").With("race_id", raceID).Wrap(domain.ErrRaceNotFound)
	}
	if err != nil {
		return nil, wrapErr("find scheduled race", err)
	}
	return &r, nil
}

func scanRace(row pgx.Row) (domain.Race, error) {
	var (
		r      domain.Race
		status string
	)
	if err := row.Scan(&r.ID, &r.Name, &r.DistanceMeters, &r.StartsAt, &status); err != nil {
		return domain.Race{}, err
	}
	r.Status = domain.RaceStatus(status)
	return r, nil
}

// InsertSignupIfAbsent relies on the (race_id, player_id) unique constraint;
// RowsAffected tells the winner apart from duplicates.
func (s *Store) InsertSignupIfAbsent(ctx context.Context, raceID, playerID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO race_signups (race_id, player_id) VALUES ($1, $2)
		 ON CONFLICT (race_id, player_id) DO NOTHING`,
		raceID, playerID)
	if err != nil {
		return false, wrapErr("insert signup", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SeedPlayer(ctx context.Context, sp ports.SeedPlayer) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO players (username, credential_scheme, credential, display_name)
		 VALUES ($1, $2, $3, $4) ON CONFLICT (username) DO NOTHING`,
		sp.Username, string(sp.Credential.Scheme()), sp.Credential.Secret(), sp.DisplayName)
	if err != nil {
		return false, wrapErr("seed player", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SeedRace(ctx context.Context, r domain.Race) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if r.Status == "" {
		r.Status = domain.RaceScheduled
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO races (name, distance_m, starts_at, status)
		 VALUES ($1, $2, $3, $4) ON CONFLICT (name, starts_at) DO NOTHING`,
		r.Name, r.DistanceMeters, r.StartsAt, string(r.Status))
	if err != nil {
		return false, wrapErr("seed race", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

var _ ports.Store = (*Store)(nil)

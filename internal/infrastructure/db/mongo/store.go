package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/catrace/backend/internal/core/domain"
	"github.com/catrace/backend/internal/core/ports"
)

const (
	playersCollection  = "players"
	catsCollection     = "cats"
	racesCollection    = "races"
	signupsCollection  = "race_signups"
	countersCollection = "counters"
)

// Store implements ports.Store on MongoDB. Numeric ids come from a counters
// collection so they match the relational layout.
type Store struct {
	db      *mongo.Database
	players *mongo.Collection
	cats    *mongo.Collection
	races   *mongo.Collection
	signups *mongo.Collection
	timeout time.Duration
}

func NewStore(db *mongo.Database, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{
		db:      db,
		players: db.Collection(playersCollection),
		cats:    db.Collection(catsCollection),
		races:   db.Collection(racesCollection),
		signups: db.Collection(signupsCollection),
		timeout: timeout,
	}
}

type playerDoc struct {
	ID               int64  `bson:"_id"`
	Username         string `bson:"username"`
	CredentialScheme string `bson:"credential_scheme"`
	Credential       string `bson:"credential"`
	DisplayName      string `bson:"display_name"`
	CatID            *int64 `bson:"cat_id,omitempty"`
	CreatedAt        int64  `bson:"created_at"`
	UpdatedAt        int64  `bson:"updated_at"`
}

type catDoc struct {
	ID    int64  `bson:"_id"`
	Name  string `bson:"name"`
	Color string `bson:"color"`
	Age   int    `bson:"age"`
}

type raceDoc struct {
	ID             int64     `bson:"_id"`
	Name           string    `bson:"name"`
	DistanceMeters int       `bson:"distance_m"`
	StartsAt       time.Time `bson:"starts_at"`
	Status         string    `bson:"status"`
}

type signupDoc struct {
	RaceID    int64     `bson:"race_id"`
	PlayerID  int64     `bson:"player_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// EnsureIndexes creates the unique indexes the store's guarantees rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	unique := options.Index().SetUnique(true)
	specs := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.players, mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique}},
		{s.signups, mongo.IndexModel{Keys: bson.D{{Key: "race_id", Value: 1}, {Key: "player_id", Value: 1}}, Options: unique}},
		{s.races, mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}, {Key: "starts_at", Value: 1}}, Options: unique}},
		{s.races, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "starts_at", Value: 1}}}},
	}
	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateOne(ctx, spec.model); err != nil {
			return storageErr("ensure indexes", err)
		}
	}
	return nil
}

func (s *Store) FindPlayerByUsername(ctx context.Context, username string) (*domain.Player, error) {
	return s.findPlayer(ctx, bson.M{"username": username})
}

func (s *Store) FindPlayerByID(ctx context.Context, id int64) (*domain.Player, error) {
	return s.findPlayer(ctx, bson.M{"_id": id})
}

func (s *Store) findPlayer(ctx context.Context, filter bson.M) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc playerDoc
	if err := s.players.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, storageErr("find player", err)
	}

	cred, err := domain.ParseCredential(doc.CredentialScheme, doc.Credential)
	if err != nil {
		return nil, storageErr("find player", oops.Code("CREDENTIAL_CORRUPT").With("player_id", doc.ID).Wrap(err))
	}
	return &domain.Player{
		ID:          doc.ID,
		Username:    doc.Username,
		Credential:  cred,
		DisplayName: doc.DisplayName,
		CatID:       doc.CatID,
	}, nil
}

// MigrateCredential filters on the legacy scheme so it can never downgrade.
func (s *Store) MigrateCredential(ctx context.Context, playerID int64, hashed domain.Credential) error {
	if hashed.IsLegacy() {
		return domain.NewValidationError("credential", "migration target must be hashed")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.players.UpdateOne(ctx,
		bson.M{"_id": playerID, "credential_scheme": string(domain.SchemeLegacy)},
		bson.M{"$set": bson.M{
			"credential_scheme": string(hashed.Scheme()),
			"credential":        hashed.Secret(),
			"updated_at":        time.Now().UTC().Unix(),
		}},
	)
	if err != nil {
		return storageErr("migrate credential", err)
	}
	return nil
}

func (s *Store) FindCat(ctx context.Context, playerID int64) (*domain.Cat, error) {
	p, err := s.FindPlayerByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if p.CatID == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc catDoc
	if err := s.cats.FindOne(ctx, bson.M{"_id": *p.CatID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, storageErr("find cat", err)
	}
	return &domain.Cat{ID: doc.ID, Name: doc.Name, Color: doc.Color, Age: doc.Age}, nil
}

// UpsertCat links a new cat with a conditional update on a player that has
// none yet. A concurrent first write that loses the race discards its own cat
// and updates the winner's instead.
func (s *Store) UpsertCat(ctx context.Context, playerID int64, in domain.CatInput) (*domain.Cat, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		p, err := s.FindPlayerByID(ctx, playerID)
		if err != nil {
			return nil, false, err
		}

		if p.CatID != nil {
			cat, err := s.updateCat(ctx, *p.CatID, in)
			return cat, false, err
		}

		cat, linked, err := s.createAndLinkCat(ctx, playerID, in)
		if err != nil || linked {
			return cat, linked, err
		}
	}
	return nil, false, storageErr("upsert cat", errors.New("cat link contended"))
}

func (s *Store) updateCat(ctx context.Context, catID int64, in domain.CatInput) (*domain.Cat, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.cats.UpdateOne(ctx, bson.M{"_id": catID}, bson.M{"$set": bson.M{
		"name":  in.Name,
		"color": in.Color,
		"age":   in.Age,
	}})
	if err != nil {
		return nil, storageErr("update cat", err)
	}
	return &domain.Cat{ID: catID, Name: in.Name, Color: in.Color, Age: in.Age}, nil
}

func (s *Store) createAndLinkCat(ctx context.Context, playerID int64, in domain.CatInput) (*domain.Cat, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.nextID(ctx, catsCollection)
	if err != nil {
		return nil, false, err
	}
	doc := catDoc{ID: id, Name: in.Name, Color: in.Color, Age: in.Age}
	if _, err := s.cats.InsertOne(ctx, doc); err != nil {
		return nil, false, storageErr("insert cat", err)
	}

	res, err := s.players.UpdateOne(ctx,
		bson.M{"_id": playerID, "cat_id": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"cat_id": id, "updated_at": time.Now().UTC().Unix()}},
	)
	if err != nil {
		return nil, false, storageErr("link cat", err)
	}
	if res.MatchedCount == 0 {
		_, _ = s.cats.DeleteOne(ctx, bson.M{"_id": id})
		return nil, false, nil
	}
	return &domain.Cat{ID: id, Name: in.Name, Color: in.Color, Age: in.Age}, true, nil
}

func (s *Store) ListScheduledRaces(ctx context.Context) ([]domain.Race, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "starts_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.races.Find(ctx, bson.M{"status": string(domain.RaceScheduled)}, opts)
	if err != nil {
		return nil, storageErr("list races", err)
	}
	defer cur.Close(ctx)

	var docs []raceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr("list races", err)
	}

	races := make([]domain.Race, 0, len(docs))
	for _, d := range docs {
		races = append(races, d.toDomain())
	}
	return races, nil
}

func (s *Store) FindScheduledRace(ctx context.Context, raceID int64) (*domain.Race, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc raceDoc
	err := s.races.FindOne(ctx, bson.M{"_id": raceID, "status": string(domain.RaceScheduled)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, oops.Code("RACE_NOT_FOUND").With("race_id", raceID).Wrap(domain.ErrRaceNotFound)
	}
	if err != nil {
		return nil, storageErr("find scheduled race", err)
	}
	r := doc.toDomain()
	return &r, nil
}

func (d raceDoc) toDomain() domain.Race {
	return domain.Race{
		ID:             d.ID,
		Name:           d.Name,
		DistanceMeters: d.DistanceMeters,
		StartsAt:       d.StartsAt.UTC(),
		Status:         domain.RaceStatus(d.Status),
	}
}

// InsertSignupIfAbsent relies on the unique (race_id, player_id) index; a
// duplicate key means another request already registered the pair.
func (s *Store) InsertSignupIfAbsent(ctx context.Context, raceID, playerID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.signups.InsertOne(ctx, signupDoc{RaceID: raceID, PlayerID: playerID, CreatedAt: time.Now().UTC()})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("insert signup", err)
	}
	return true, nil
}

func (s *Store) SeedPlayer(ctx context.Context, sp ports.SeedPlayer) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.nextID(ctx, playersCollection)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC().Unix()
	_, err = s.players.InsertOne(ctx, playerDoc{
		ID:               id,
		Username:         sp.Username,
		CredentialScheme: string(sp.Credential.Scheme()),
		Credential:       sp.Credential.Secret(),
		DisplayName:      sp.DisplayName,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("seed player", err)
	}
	return true, nil
}

func (s *Store) SeedRace(ctx context.Context, r domain.Race) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if r.Status == "" {
		r.Status = domain.RaceScheduled
	}
	id, err := s.nextID(ctx, racesCollection)
	if err != nil {
		return false, err
	}
	_, err = s.races.InsertOne(ctx, raceDoc{
		ID:             id,
		Name:           r.Name,
		DistanceMeters: r.DistanceMeters,
		StartsAt:       r.StartsAt.UTC(),
		Status:         string(r.Status),
	})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("seed race", err)
	}
	return true, nil
}

// nextID atomically increments the named sequence.
func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	var out struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return 0, storageErr("next id", err)
	}
	return out.Seq, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.db.Client().Disconnect(ctx)
}

func storageErr(op string, err error) error {
	return oops.Code("STORAGE_UNAVAILABLE").With("operation", op).Wrap(fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err))
}

var _ ports.Store = (*Store)(nil)

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/catrace/backend/internal/core/domain"
	"github.com/catrace/backend/internal/core/ports"
	"github.com/catrace/backend/internal/core/service"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	file    string
	timeout time.Duration
	// hash stores plaintext passwords as bcrypt instead of legacy credentials.
	hash bool
}

// seedFile is the YAML document accepted by the seed command.
type seedFile struct {
	Players []seedPlayer `yaml:"players"`
	Races   []seedRace   `yaml:"races"`
}

// seedPlayer carries either a plaintext password (stored as a legacy
// credential, upgraded on first login) or a ready bcrypt hash.
type seedPlayer struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
	DisplayName  string `yaml:"display_name"`
}

type seedRace struct {
	Name           string    `yaml:"name"`
	DistanceMeters int       `yaml:"distance_m"`
	StartsAt       time.Time `yaml:"starts_at"`
	Status         string    `yaml:"status"`
}

// seedCounts reports how many records were created and skipped.
type seedCounts struct {
	PlayersCreated, PlayersSkipped int
	RacesCreated, RacesSkipped     int
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load players and races from a YAML file",
		Long: `Creates players and races listed in a YAML file.
This command is idempotent - existing usernames and races (same name and start
time) are left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.file, "file", "f", "config/seed.example.yaml", "seed file path")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().BoolVar(&cfg.hash, "hash-passwords", false, "store plaintext passwords as bcrypt instead of legacy credentials")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	f, err := os.Open(cfg.file)
	if err != nil {
		return oops.Code("SEED_FILE_INVALID").With("file", cfg.file).Wrap(err)
	}
	defer f.Close()

	doc, err := parseSeedFile(f)
	if err != nil {
		return oops.Code("SEED_FILE_INVALID").With("file", cfg.file).Wrap(err)
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	appCfg, log, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := appCfg.ValidateStorage(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	cmd.Println("Connecting to storage...")
	store, err := openStore(ctx, appCfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	var verifier *service.PasswordVerifier
	if cfg.hash {
		verifier = service.NewPasswordVerifier(appCfg.Session.BcryptCost)
	}

	counts, err := applySeed(ctx, store, doc, verifier)
	if err != nil {
		return oops.Code("SEED_FAILED").Wrap(err)
	}

	log.Info().
		Int("players_created", counts.PlayersCreated).
		Int("players_skipped", counts.PlayersSkipped).
		Int("races_created", counts.RacesCreated).
		Int("races_skipped", counts.RacesSkipped).
		Msg("seed applied")
	cmd.Printf("Players: %d created, %d already present\n", counts.PlayersCreated, counts.PlayersSkipped)
	cmd.Printf("Races: %d created, %d already present\n", counts.RacesCreated, counts.RacesSkipped)
	return nil
}

// parseSeedFile decodes and checks a seed document. Unknown keys are rejected.
func parseSeedFile(r io.Reader) (*seedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc seedFile
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	seen := make(map[string]bool, len(doc.Players))
	for i, p := range doc.Players {
		p.Username = strings.TrimSpace(p.Username)
		switch {
		case p.Username == "":
			return nil, fmt.Errorf("players[%d]: username is required", i)
		case seen[p.Username]:
			return nil, fmt.Errorf("players[%d]: duplicate username %q", i, p.Username)
		case (p.Password == "") == (p.PasswordHash == ""):
			return nil, fmt.Errorf("players[%d]: exactly one of password or password_hash is required", i)
		}
		seen[p.Username] = true
		doc.Players[i] = p
	}

	for i, r := range doc.Races {
		switch {
		case strings.TrimSpace(r.Name) == "":
			return nil, fmt.Errorf("races[%d]: name is required", i)
		case r.DistanceMeters <= 0:
			return nil, fmt.Errorf("races[%d]: distance_m must be positive", i)
		case r.StartsAt.IsZero():
			return nil, fmt.Errorf("races[%d]: starts_at is required", i)
		}
		if r.Status == "" {
			doc.Races[i].Status = string(domain.RaceScheduled)
		} else if !domain.RaceStatus(r.Status).Valid() {
			return nil, fmt.Errorf("races[%d]: unknown status %q", i, r.Status)
		}
	}

	return &doc, nil
}

// applySeed writes doc through the seeder. A nil verifier keeps plaintext
// passwords as legacy credentials.
func applySeed(ctx context.Context, seeder ports.Seeder, doc *seedFile, verifier *service.PasswordVerifier) (seedCounts, error) {
	var counts seedCounts

	for _, p := range doc.Players {
		cred, err := seedCredential(p, verifier)
		if err != nil {
			return counts, fmt.Errorf("player %q: %w", p.Username, err)
		}
		displayName := p.DisplayName
		if displayName == "" {
			displayName = p.Username
		}

		created, err := seeder.SeedPlayer(ctx, ports.SeedPlayer{
			Username:    p.Username,
			Credential:  cred,
			DisplayName: displayName,
		})
		if err != nil {
			return counts, fmt.Errorf("player %q: %w", p.Username, err)
		}
		if created {
			counts.PlayersCreated++
		} else {
			counts.PlayersSkipped++
		}
	}

	for _, r := range doc.Races {
		created, err := seeder.SeedRace(ctx, domain.Race{
			Name:           strings.TrimSpace(r.Name),
			DistanceMeters: r.DistanceMeters,
			StartsAt:       r.StartsAt.UTC(),
			Status:         domain.RaceStatus(r.Status),
		})
		if err != nil {
			return counts, fmt.Errorf("race %q: %w", r.Name, err)
		}
		if created {
			counts.RacesCreated++
		} else {
			counts.RacesSkipped++
		}
	}

	return counts, nil
}

func seedCredential(p seedPlayer, verifier *service.PasswordVerifier) (domain.Credential, error) {
	switch {
	case p.PasswordHash != "":
		if _, err := bcrypt.Cost([]byte(p.PasswordHash)); err != nil {
			return domain.Credential{}, fmt.Errorf("password_hash: %w", err)
		}
		return domain.HashedCredential(p.PasswordHash), nil
	case verifier != nil:
		return verifier.Hash(p.Password)
	default:
		return domain.LegacyCredential(p.Password), nil
	}
}

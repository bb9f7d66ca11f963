package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/catrace/backend/internal/core/domain"
)

// MinHashCost is the lowest bcrypt cost new hashes are produced with.
const MinHashCost = 12

// maxBcryptInput is the longest password bcrypt accepts.
const maxBcryptInput = 72

// VerifyResult is the outcome of comparing a presented password with a stored
// credential.
type VerifyResult struct {
	Matched bool
	// Migrated holds the hashed replacement for a legacy credential that just
	// matched. Nil for hashed credentials and for mismatches.
	Migrated *domain.Credential
	// MigrationErr is set when a legacy credential matched but could not be
	// hashed. The match still stands.
	MigrationErr error
}

// PasswordVerifier compares presented passwords against stored credentials and
// upgrades legacy plaintext credentials to bcrypt on a successful match.
type PasswordVerifier struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewPasswordVerifier returns a verifier hashing at cost, clamped to
// [MinHashCost, bcrypt.MaxCost].
func NewPasswordVerifier(cost int) *PasswordVerifier {
	if cost < MinHashCost {
		cost = MinHashCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &PasswordVerifier{cost: cost}
}

func (v *PasswordVerifier) Cost() int { return v.cost }

// Verify never returns the presented password or the stored secret, in the
// result or inside an error.
func (v *PasswordVerifier) Verify(presented string, stored domain.Credential) (VerifyResult, error) {
	if presented == "" {
		return VerifyResult{}, nil
	}

	if !stored.IsLegacy() {
		input, err := bcryptInput(presented, stored.Scheme())
		if err != nil {
			return VerifyResult{}, err
		}
		err = bcrypt.CompareHashAndPassword([]byte(stored.Secret()), input)
		switch {
		case err == nil:
			return VerifyResult{Matched: true}, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return VerifyResult{}, nil
		default:
			return VerifyResult{}, fmt.Errorf("verify %s credential: %w", stored.Scheme(), err)
		}
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(stored.Secret())) != 1 {
		return VerifyResult{}, nil
	}

	migrated, err := v.Hash(presented)
	if err != nil {
		return VerifyResult{Matched: true, MigrationErr: err}, nil
	}
	return VerifyResult{Matched: true, Migrated: &migrated}, nil
}

// Hash produces a bcrypt credential for password. Passwords longer than
// bcrypt's input limit are stored under the bcrypt-sha256 scheme.
func (v *PasswordVerifier) Hash(password string) (domain.Credential, error) {
	scheme := domain.SchemeBcrypt
	if len(password) > maxBcryptInput {
		scheme = domain.SchemeBcryptSHA256
	}
	input, err := bcryptInput(password, scheme)
	if err != nil {
		return domain.Credential{}, err
	}
	hash, err := bcrypt.GenerateFromPassword(input, v.cost)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("hash credential: %w", err)
	}
	if scheme == domain.SchemeBcryptSHA256 {
		return domain.PrehashedCredential(string(hash)), nil
	}
	return domain.HashedCredential(string(hash)), nil
}

func bcryptInput(password string, scheme domain.CredentialScheme) ([]byte, error) {
	switch scheme {
	case domain.SchemeBcrypt:
		return []byte(password), nil
	case domain.SchemeBcryptSHA256:
		sum := sha256.Sum256([]byte(password))
		return []byte(base64.StdEncoding.EncodeToString(sum[:])), nil
	default:
		return nil, fmt.Errorf("unsupported credential scheme %q", scheme)
	}
}

// CompareDummy spends the same work as a real bcrypt comparison. Login calls
// it for unknown usernames so response time does not reveal whether an
// account exists.
func (v *PasswordVerifier) CompareDummy(presented string) {
	v.dummyOnce.Do(func() {
		v.dummy, _ = bcrypt.GenerateFromPassword([]byte("catrace-dummy-password"), v.cost)
	})
	input := []byte(presented)
	if len(presented) > maxBcryptInput {
		input, _ = bcryptInput(presented, domain.SchemeBcryptSHA256)
	}
	_ = bcrypt.CompareHashAndPassword(v.dummy, input)
}

package service

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/catrace/backend/internal/core/domain"
)

func TestPasswordVerifier_CostFloor(t *testing.T) {
	if got := NewPasswordVerifier(4).Cost(); got != MinHashCost {
		t.Fatalf("expected cost %d, got %d", MinHashCost, got)
	}
	if got := NewPasswordVerifier(13).Cost(); got != 13 {
		t.Fatalf("expected cost 13, got %d", got)
	}
}

func TestPasswordVerifier_LegacyMatchMigratesOnce(t *testing.T) {
	v := NewPasswordVerifier(MinHashCost)

	res, err := v.Verify("hunter2", domain.LegacyCredential("hunter2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Matched {
		t.Fatalf("expected legacy match")
	}
	if res.Migrated == nil {
		t.Fatalf("expected migrated credential")
	}
	if res.Migrated.Scheme() != domain.SchemeBcrypt {
		t.Fatalf("expected bcrypt scheme, got %s", res.Migrated.Scheme())
	}
	cost, err := bcrypt.Cost([]byte(res.Migrated.Secret()))
	if err != nil {
		t.Fatalf("migrated hash unreadable: %v", err)
	}
	if cost < MinHashCost {
		t.Fatalf("expected cost >= %d, got %d", MinHashCost, cost)
	}

	again, err := v.Verify("hunter2", *res.Migrated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.Matched {
		t.Fatalf("expected hashed match")
	}
	if again.Migrated != nil {
		t.Fatalf("hashed credential must not migrate again")
	}
}

func TestPasswordVerifier_LegacyIsExactAndCaseSensitive(t *testing.T) {
	v := NewPasswordVerifier(MinHashCost)
	stored := domain.LegacyCredential("hunter2")

	for _, presented := range []string{"Hunter2", "hunter2 ", "hunter", "hunter22"} {
		res, err := v.Verify(presented, stored)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", presented, err)
		}
		if res.Matched || res.Migrated != nil {
			t.Fatalf("%q: expected no match", presented)
		}
	}
}

func TestPasswordVerifier_EmptyNeverMatches(t *testing.T) {
	v := NewPasswordVerifier(MinHashCost)
	res, err := v.Verify("", domain.LegacyCredential(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Matched {
		t.Fatalf("empty password must not match")
	}
}

func TestPasswordVerifier_HashedMismatch(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	v := NewPasswordVerifier(MinHashCost)

	res, err := v.Verify("wrong horse", domain.HashedCredential(string(hash)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Matched {
		t.Fatalf("expected mismatch")
	}
}

func TestPasswordVerifier_MalformedHashDoesNotLeakSecret(t *testing.T) {
	v := NewPasswordVerifier(MinHashCost)

	_, err := v.Verify("anything", domain.HashedCredential("garbage-secretvalue"))
	if err == nil {
		t.Fatalf("expected error for malformed hash")
	}
	if strings.Contains(err.Error(), "secretvalue") || strings.Contains(err.Error(), "anything") {
		t.Fatalf("error leaks secret material: %v", err)
	}
}

func TestPasswordVerifier_LongLegacyPasswordMigrates(t *testing.T) {
	long := strings.Repeat("x", 80)
	v := NewPasswordVerifier(MinHashCost)

	res, err := v.Verify(long, domain.LegacyCredential(long))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Matched || res.MigrationErr != nil || res.Migrated == nil {
		t.Fatalf("expected a migrated match, got %+v", res)
	}
	if res.Migrated.Scheme() != domain.SchemeBcryptSHA256 {
		t.Fatalf("expected bcrypt-sha256 scheme, got %s", res.Migrated.Scheme())
	}

	again, err := v.Verify(long, *res.Migrated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.Matched || again.Migrated != nil {
		t.Fatalf("expected a plain hashed match, got %+v", again)
	}

	// bcrypt alone would ignore everything past byte 72.
	other := strings.Repeat("x", 72) + "yyyyyyyy"
	miss, err := v.Verify(other, *res.Migrated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if miss.Matched {
		t.Fatalf("passwords sharing a 72-byte prefix must not match")
	}
}

func TestPasswordVerifier_HashSchemeByLength(t *testing.T) {
	v := NewPasswordVerifier(MinHashCost)

	tests := []struct {
		name     string
		password string
		want     domain.CredentialScheme
	}{
		{"short", "hunter2", domain.SchemeBcrypt},
		{"at limit", strings.Repeat("a", 72), domain.SchemeBcrypt},
		{"over limit", strings.Repeat("a", 73), domain.SchemeBcryptSHA256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := v.Hash(tt.password)
			if err != nil {
				t.Fatalf("hash: %v", err)
			}
			if c.Scheme() != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, c.Scheme())
			}
		})
	}
}

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCredential_NeverRendersSecret(t *testing.T) {
	c := LegacyCredential("hunter2")
	p := Player{ID: 1, Username: "alex", Credential: c}

	rendered := []string{
		c.String(),
		fmt.Sprintf("%v", c),
		fmt.Sprintf("%+v", p),
		fmt.Sprintf("%#v", c),
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rendered = append(rendered, string(b))

	for _, r := range rendered {
		if strings.Contains(r, "hunter2") {
			t.Fatalf("secret leaked in %q", r)
		}
	}
}

func TestParseCredential(t *testing.T) {
	c, err := ParseCredential("bcrypt", "$2a$12$abc")
	if err != nil || c.Scheme() != SchemeBcrypt || c.IsLegacy() {
		t.Fatalf("unexpected bcrypt parse: %v %v", c, err)
	}

	c, err = ParseCredential("bcrypt-sha256", "$2a$12$abc")
	if err != nil || c.Scheme() != SchemeBcryptSHA256 || c.IsLegacy() {
		t.Fatalf("unexpected bcrypt-sha256 parse: %v %v", c, err)
	}

	c, err = ParseCredential("legacy", "pw")
	if err != nil || !c.IsLegacy() || c.Secret() != "pw" {
		t.Fatalf("unexpected legacy parse: %v %v", c, err)
	}

	if _, err := ParseCredential("md5", "x"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestErrorFamilies(t *testing.T) {
	if !errors.Is(ErrInvalidCredentials, ErrUnauthorized) || !errors.Is(ErrInvalidSession, ErrUnauthorized) {
		t.Fatalf("auth errors must belong to the unauthorized family")
	}
	if !errors.Is(ErrRaceNotFound, ErrNotFound) || !errors.Is(ErrPlayerNotFound, ErrNotFound) {
		t.Fatalf("lookup errors must belong to the not found family")
	}

	var err error = fmt.Errorf("login: %w", &RateLimitedError{RetryAfter: 30e9})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("rate limited error not matched")
	}
	if got := err.Error(); !strings.Contains(got, "30s") {
		t.Fatalf("unexpected message %q", got)
	}
}

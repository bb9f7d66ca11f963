package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/catrace/backend/internal/core/domain"
	"github.com/catrace/backend/internal/core/ports"
	"github.com/catrace/backend/internal/pkg/clock"
)

// DefaultSessionTTL is the lifetime of an issued session token.
const DefaultSessionTTL = 15 * time.Minute

// MinSecretLength is the shortest accepted HMAC signing secret, in bytes.
const MinSecretLength = 32

var errWeakSecret = errors.New("session secret must be at least 32 bytes")

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies stateless HS256 session tokens. A token
// is valid until iat+ttl; there is no server-side revocation.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
	parser *jwt.Parser
}

func NewSessionManager(secret []byte, ttl time.Duration, clk clock.Clock) (*SessionManager, error) {
	if len(secret) < MinSecretLength {
		return nil, errWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &SessionManager{
		secret: secret,
		ttl:    ttl,
		clock:  clk,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(clk.Now),
		),
	}, nil
}

func (m *SessionManager) TTL() time.Duration { return m.ttl }

// Issue signs a token for id. NumericDate has second precision, so iat is
// truncated first and exp is exactly iat+ttl.
func (m *SessionManager) Issue(id domain.PlayerIdentity) (ports.Session, error) {
	issuedAt := m.clock.Now().Truncate(time.Second)
	expiresAt := issuedAt.Add(m.ttl)

	claims := sessionClaims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        ulid.Make().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return ports.Session{}, fmt.Errorf("sign session: %w", err)
	}
	return ports.Session{Token: signed, ExpiresAt: expiresAt}, nil
}

// Authenticate returns domain.ErrInvalidSession for anything other than an
// untampered, unexpired token signed with this manager's secret.
func (m *SessionManager) Authenticate(token string) (domain.PlayerIdentity, error) {
	if token == "" {
		return domain.PlayerIdentity{}, domain.ErrInvalidSession
	}

	var claims sessionClaims
	_, err := m.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return domain.PlayerIdentity{}, fmt.Errorf("%w: %v", domain.ErrInvalidSession, err)
	}

	// The parser already rejects now >= exp; checked again so the boundary does
	// not depend on library leeway defaults.
	if claims.ExpiresAt == nil || !m.clock.Now().Before(claims.ExpiresAt.Time) {
		return domain.PlayerIdentity{}, domain.ErrInvalidSession
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 || claims.Username == "" {
		return domain.PlayerIdentity{}, domain.ErrInvalidSession
	}
	return domain.PlayerIdentity{ID: id, Username: claims.Username}, nil
}

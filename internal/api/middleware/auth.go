package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/catrace/backend/internal/api/metrics"
	"github.com/catrace/backend/internal/core/domain"
)

// identityKey is the echo.Context key the authenticated player is stored under.
const identityKey = "player"

// Authenticator verifies a session token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.PlayerIdentity, error)
}

// Session authenticates the request from the session cookie, falling back to
// an "Authorization: Bearer" header, and stores the player identity in the
// context. Requests without a valid session fail with domain.ErrInvalidSession.
func Session(auth Authenticator, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := sessionToken(c, cookieName)
			if token == "" {
				metrics.SessionRejectionsTotal.Inc()
				return domain.ErrInvalidSession
			}

			id, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				metrics.SessionRejectionsTotal.Inc()
				return domain.ErrInvalidSession
			}

			SetIdentity(c, id)
			return next(c)
		}
	}
}

func sessionToken(c echo.Context, cookieName string) string {
	if ck, err := c.Cookie(cookieName); err == nil && ck.Value != "" {
		return ck.Value
	}

	parts := strings.SplitN(c.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// SetIdentity stores an authenticated player on the context.
func SetIdentity(c echo.Context, id domain.PlayerIdentity) {
	c.Set(identityKey, id)
}

// Identity returns the player stored by Session.
func Identity(c echo.Context) (domain.PlayerIdentity, bool) {
	id, ok := c.Get(identityKey).(domain.PlayerIdentity)
	return id, ok && id.ID > 0
}

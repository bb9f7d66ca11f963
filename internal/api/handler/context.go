package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/catrace/backend/internal/api/middleware"
	"github.com/catrace/backend/internal/core/domain"
)

// currentPlayer returns the identity injected by the Session middleware. A
// route mounted without the middleware fails closed with ErrInvalidSession.
func currentPlayer(c echo.Context) (domain.PlayerIdentity, error) {
	id, ok := middleware.Identity(c)
	if !ok {
		return domain.PlayerIdentity{}, domain.ErrInvalidSession
	}
	return id, nil
}

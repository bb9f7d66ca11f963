package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/catrace/backend/internal/api/metrics"
	"github.com/catrace/backend/internal/core/domain"
	"github.com/catrace/backend/internal/core/ports"
)

type ProfileHandler struct {
	profiles ports.ProfileService
}

func NewProfileHandler(profiles ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get returns the caller's player record and cat.
//
// @Summary      Current player profile
// @Tags         profile
// @Produce      json
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  errorResponse
// @Router       /me [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	id, err := currentPlayer(c)
	if err != nil {
		return err
	}

	profile, err := h.profiles.GetProfile(c.Request().Context(), id.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profileResponse{Player: profile.Player, Cat: profile.Cat})
}

// SaveCat creates the caller's cat, or updates it if one exists.
//
// @Summary      Create or update the caller's cat
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        body  body      catRequest  true  "Cat attributes"
// @Success      200   {object}  catResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /me/cat [put]
func (h *ProfileHandler) SaveCat(c echo.Context) error {
	id, err := currentPlayer(c)
	if err != nil {
		return err
	}

	var req catRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload").SetInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	cat, created, err := h.profiles.SaveCat(c.Request().Context(), id.ID, domain.CatInput{
		Name:  req.Name,
		Color: req.Color,
		Age:   *req.Age,
	})
	if err != nil {
		return err
	}

	op := "updated"
	if created {
		op = "created"
	}
	metrics.CatSavesTotal.WithLabelValues(op).Inc()

	return c.JSON(http.StatusOK, catResponse{Cat: cat, Created: created})
}

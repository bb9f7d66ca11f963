package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/catrace/backend/internal/api/metrics"
	"github.com/catrace/backend/internal/core/domain"
	"github.com/catrace/backend/internal/core/ports"
)

type RaceHandler struct {
	races ports.RaceService
}

func NewRaceHandler(races ports.RaceService) *RaceHandler {
	return &RaceHandler{races: races}
}

// List returns scheduled races ordered by start time.
//
// @Summary      List upcoming races
// @Tags         races
// @Produce      json
// @Success      200  {object}  raceListResponse
// @Failure      503  {object}  errorResponse
// @Router       /races [get]
func (h *RaceHandler) List(c echo.Context) error {
	races, err := h.races.ListRaces(c.Request().Context())
	if err != nil {
		return err
	}
	if races == nil {
		races = []domain.Race{}
	}
	return c.JSON(http.StatusOK, raceListResponse{Races: races})
}

// Signup registers the caller for a race. Repeating the call is safe and
// reports already=true.
//
// @Summary      Sign up for a race
// @Tags         races
// @Produce      json
// @Param        id   path      int  true  "Race ID"
// @Success      200  {object}  signupResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /races/{id}/signup [post]
func (h *RaceHandler) Signup(c echo.Context) error {
	id, err := currentPlayer(c)
	if err != nil {
		return err
	}

	raceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || raceID <= 0 {
		return domain.NewValidationError("id", "must be a positive integer")
	}

	res, err := h.races.Signup(c.Request().Context(), raceID, id.ID)
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			metrics.RaceSignupsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	result := "registered"
	if res.AlreadyRegistered {
		result = "already_registered"
	}
	metrics.RaceSignupsTotal.WithLabelValues(result).Inc()

	return c.JSON(http.StatusOK, signupResponse{
		Status:     "ok",
		Registered: res.Registered,
		Already:    res.AlreadyRegistered,
	})
}

package handler

import (
	"time"

	"github.com/catrace/backend/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Player    *domain.Player `json:"player"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type catRequest struct {
	Name  string `json:"name"  validate:"required,max=100"`
	Color string `json:"color" validate:"required,max=50"`
	Age   *int   `json:"age"   validate:"required,gte=0,lte=50"`
}

type profileResponse struct {
	Player *domain.Player `json:"player"`
	Cat    *domain.Cat    `json:"cat"`
}

type catResponse struct {
	Cat     *domain.Cat `json:"cat"`
	Created bool        `json:"created"`
}

type raceListResponse struct {
	Races []domain.Race `json:"races"`
}

type signupResponse struct {
	Status     string `json:"status"`
	Registered bool   `json:"registered"`
	Already    bool   `json:"already"`
}

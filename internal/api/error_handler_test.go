package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/catrace/backend/internal/core/domain"
)

func TestHTTPErrorHandler_Mapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"validation", domain.NewValidationError("name", "is required"), http.StatusBadRequest, "name: is required"},
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"invalid session", domain.ErrInvalidSession, http.StatusUnauthorized, "unauthorized"},
		{"rate limited", &domain.RateLimitedError{RetryAfter: 42 * time.Second}, http.StatusTooManyRequests, "too many login attempts"},
		{"race not found", fmt.Errorf("signup: %w", domain.ErrRaceNotFound), http.StatusNotFound, "race not found"},
		{"player not found", domain.ErrPlayerNotFound, http.StatusNotFound, "not found"},
		{"conflict", domain.ErrConflict, http.StatusConflict, "conflict"},
		{"storage", fmt.Errorf("%w: dial tcp: refused", domain.ErrStorageUnavailable), http.StatusServiceUnavailable, "service temporarily unavailable"},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			NewHTTPErrorHandler(zerolog.Nop())(tt.err, c)

			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Error != tt.message {
				t.Fatalf("expected message %q, got %q", tt.message, resp.Error)
			}
		})
	}
}

func TestHTTPErrorHandler_RetryAfter(t *testing.T) {
	tests := map[time.Duration]string{
		42 * time.Second:        "42",
		1500 * time.Millisecond: "2",
		0:                       "1",
	}

	for wait, want := range tests {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/login", nil), rec)

		NewHTTPErrorHandler(zerolog.Nop())(&domain.RateLimitedError{RetryAfter: wait}, c)

		if got := rec.Header().Get("Retry-After"); got != want {
			t.Fatalf("wait %s: expected Retry-After %q, got %q", wait, want, got)
		}
	}
}

func TestHTTPErrorHandler_DoesNotLeakCause(t *testing.T) {
	var logs bytes.Buffer
	log := zerolog.New(&logs)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/me", nil), rec)

	NewHTTPErrorHandler(log)(fmt.Errorf("%w: password authentication failed for user app", domain.ErrStorageUnavailable), c)

	if bytes.Contains(rec.Body.Bytes(), []byte("password authentication")) {
		t.Fatalf("cause leaked to client: %s", rec.Body.String())
	}
	if !bytes.Contains(logs.Bytes(), []byte("storage unavailable")) {
		t.Fatalf("expected the cause to be logged, got %s", logs.String())
	}
}

func TestHTTPErrorHandler_Committed(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = c.NoContent(http.StatusNoContent)

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("late"), c)

	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("committed response must not be rewritten")
	}
}

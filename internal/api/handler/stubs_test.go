package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/catrace/backend/internal/api/middleware"
	"github.com/catrace/backend/internal/core/domain"
	"github.com/catrace/backend/internal/core/ports"
)

type stubAuthService struct {
	loginFn        func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error)
	authenticateFn func(ctx context.Context, token string) (domain.PlayerIdentity, error)
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) Authenticate(ctx context.Context, token string) (domain.PlayerIdentity, error) {
	return s.authenticateFn(ctx, token)
}

type stubProfileService struct {
	getFn  func(ctx context.Context, playerID int64) (*ports.Profile, error)
	saveFn func(ctx context.Context, playerID int64, in domain.CatInput) (*domain.Cat, bool, error)
}

func (s *stubProfileService) GetProfile(ctx context.Context, playerID int64) (*ports.Profile, error) {
	return s.getFn(ctx, playerID)
}

func (s *stubProfileService) SaveCat(ctx context.Context, playerID int64, in domain.CatInput) (*domain.Cat, bool, error) {
	return s.saveFn(ctx, playerID, in)
}

type stubRaceService struct {
	listFn   func(ctx context.Context) ([]domain.Race, error)
	signupFn func(ctx context.Context, raceID, playerID int64) (domain.SignupResult, error)
}

func (s *stubRaceService) ListRaces(ctx context.Context) ([]domain.Race, error) {
	return s.listFn(ctx)
}

func (s *stubRaceService) Signup(ctx context.Context, raceID, playerID int64) (domain.SignupResult, error) {
	return s.signupFn(ctx, raceID, playerID)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// asPlayer returns a context that passed the session middleware as alex.
func asPlayer(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder) echo.Context {
	c := e.NewContext(req, rec)
	middleware.SetIdentity(c, domain.PlayerIdentity{ID: 7, Username: "alex"})
	return c
}

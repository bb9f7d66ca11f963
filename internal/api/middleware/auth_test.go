package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/catrace/backend/internal/core/domain"
)

type stubAuthenticator struct {
	tokens map[string]domain.PlayerIdentity
	seen   []string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (domain.PlayerIdentity, error) {
	s.seen = append(s.seen, token)
	id, ok := s.tokens[token]
	if !ok {
		return domain.PlayerIdentity{}, domain.ErrInvalidSession
	}
	return id, nil
}

func newStub() *stubAuthenticator {
	return &stubAuthenticator{tokens: map[string]domain.PlayerIdentity{
		"good":  {ID: 7, Username: "alex"},
		"other": {ID: 9, Username: "sam"},
	}}
}

func run(t *testing.T, auth Authenticator, req *http.Request) (domain.PlayerIdentity, bool, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var (
		got    domain.PlayerIdentity
		called bool
	)
	h := Session(auth, "session")(func(c echo.Context) error {
		called = true
		id, ok := Identity(c)
		if !ok {
			t.Fatalf("identity not set")
		}
		got = id
		return c.NoContent(http.StatusOK)
	})
	err := h(c)
	return got, called, err
}

func TestSession_Cookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "good"})

	id, called, err := run(t, newStub(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if id.ID != 7 || id.Username != "alex" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestSession_BearerFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer good")

	id, called, err := run(t, newStub(), req)
	if err != nil || !called {
		t.Fatalf("expected success, got called=%v err=%v", called, err)
	}
	if id.ID != 7 {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestSession_CookieWinsOverHeader(t *testing.T) {
	stub := newStub()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "other"})
	req.Header.Set("Authorization", "Bearer good")

	id, _, err := run(t, stub, req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if id.ID != 9 {
		t.Fatalf("cookie should take precedence, got %+v", id)
	}
	if len(stub.seen) != 1 {
		t.Fatalf("expected a single verification, got %v", stub.seen)
	}
}

func TestSession_Rejected(t *testing.T) {
	tests := map[string]func(*http.Request){
		"no credentials": func(*http.Request) {},
		"unknown token": func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "session", Value: "forged"})
		},
		"wrong scheme": func(r *http.Request) {
			r.Header.Set("Authorization", "Basic good")
		},
		"empty bearer": func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer ")
		},
		"other cookie name": func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "sid", Value: "good"})
		},
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			mutate(req)

			_, called, err := run(t, newStub(), req)
			if called {
				t.Fatalf("next must not run")
			}
			if !errors.Is(err, domain.ErrInvalidSession) {
				t.Fatalf("expected ErrInvalidSession, got %v", err)
			}
		})
	}
}

func TestIdentity_Missing(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if _, ok := Identity(c); ok {
		t.Fatalf("identity must be absent")
	}
}

package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/catrace/backend/docs"
	"github.com/catrace/backend/internal/api/handler"
	"github.com/catrace/backend/internal/api/metrics"
	"github.com/catrace/backend/internal/api/middleware"
	"github.com/catrace/backend/internal/core/ports"
	"github.com/catrace/backend/internal/infrastructure/http/handlers"
)

// Deps are the services and settings the router wires into handlers.
type Deps struct {
	Auth     ports.AuthService
	Profiles ports.ProfileService
	Races    ports.RaceService

	Cookie handler.CookieConfig
	// TrustProxy takes the client address (the login rate-limit key) from
	// X-Forwarded-For instead of the TCP peer.
	TrustProxy bool
	// Health maps dependency names to readiness checks.
	Health map[string]handlers.Pinger
	// Registry receives the HTTP request metrics and the catrace counters and
	// backs /metrics. Nil means the default registry.
	Registry *prometheus.Registry

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	if d.Cookie.Name == "" {
		d.Cookie.Name = "session"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)
	if d.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	// --- Global middleware ---
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
		d.Registry.MustRegister(metrics.Collectors()...)
	}

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	// Outside the request logger: its HandleError commits the real status
	// before the request is counted.
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "catrace",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(requestLogger(d.Log))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Cookie)
	profileHandler := handler.NewProfileHandler(d.Profiles)
	raceHandler := handler.NewRaceHandler(d.Races)
	session := middleware.Session(d.Auth, d.Cookie.Name)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout)
	e.GET("/auth/session", authHandler.Session, session)

	// --- Profile routes ---
	me := e.Group("/me", session)
	me.GET("", profileHandler.Get)
	me.PUT("/cat", profileHandler.SaveCat)

	// --- Race routes ---
	e.GET("/races", raceHandler.List)
	e.POST("/races/:id/signup", raceHandler.Signup, session)

	// --- Health probes (no auth required) ---
	health := handlers.NewHealthHandler(d.Health)
	e.GET("/health", health.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", health.Readiness) // readiness – are dependencies up?

	// --- Operational ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one structured line per request. Bodies are never
// logged, so credentials cannot reach the log.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency.Round(time.Microsecond)).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

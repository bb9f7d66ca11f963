package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	minSessionSecret = 32
)

type Config struct {
	Port     string `env:"PORT,      default=4000"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	// TrustProxy reads the client address from X-Forwarded-For instead of the
	// socket peer. Enable only behind a proxy that overwrites the header.
	TrustProxy bool `env:"TRUST_PROXY, default=false"`

	Storage   StorageConfig
	Postgres  PostgresConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
}

type StorageConfig struct {
	Driver       string        `env:"STORAGE_DRIVER,        default=postgres"`
	QueryTimeout time.Duration `env:"STORAGE_QUERY_TIMEOUT, default=5s"`
	AutoMigrate  bool          `env:"DB_AUTO_MIGRATE,       default=false"`
}

type PostgresConfig struct {
	// URL takes precedence over the discrete PG* settings when set.
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"PGHOST,     default=postgres"`
	Port     string `env:"PGPORT,     default=5432"`
	User     string `env:"PGUSER,     default=app"`
	Password string `env:"PGPASSWORD, default=app"`
	Database string `env:"PGDATABASE, default=app"`
	SSLMode  string `env:"PGSSLMODE,  default=disable"`
	MaxConns int32  `env:"PG_MAX_CONNS, default=10"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=catrace"`
}

// RedisConfig is optional: with an empty Addr the login limiter stays
// in-process.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type SessionConfig struct {
	Secret     string        `env:"SESSION_SECRET"`
	TTL        time.Duration `env:"SESSION_TTL,         default=15m"`
	CookieName string        `env:"SESSION_COOKIE_NAME, default=session"`
	// CookieSecure overrides the Secure flag; empty means "secure in production".
	CookieSecure string `env:"SESSION_COOKIE_SECURE"`
	BcryptCost   int    `env:"BCRYPT_COST, default=12"`
}

type RateLimitConfig struct {
	MaxAttempts int           `env:"LOGIN_RATE_LIMIT,  default=5"`
	Window      time.Duration `env:"LOGIN_RATE_WINDOW, default=1m"`
}

// Load reads configuration from environment variables using go-envconfig.
// Callers validate what they need: Validate for the server, ValidateStorage
// for the migrate and seed commands.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with safely.
func (c *Config) Validate() error {
	errs := []error{c.ValidateStorage()}

	if len(c.Session.Secret) < minSessionSecret {
		errs = append(errs, fmt.Errorf("config: SESSION_SECRET must be at least %d bytes", minSessionSecret))
	}
	if c.RateLimit.MaxAttempts <= 0 {
		errs = append(errs, errors.New("config: LOGIN_RATE_LIMIT must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("config: LOGIN_RATE_WINDOW must be positive"))
	}
	if c.Session.CookieSecure != "" {
		if _, err := strconv.ParseBool(c.Session.CookieSecure); err != nil {
			errs = append(errs, fmt.Errorf("config: SESSION_COOKIE_SECURE: %w", err))
		}
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("config: SESSION_TTL must be positive"))
	}

	return errors.Join(errs...)
}

// ValidateStorage checks only the storage driver selection.
func (c *Config) ValidateStorage() error {
	switch c.Storage.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
		return nil
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
}

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// CookieSecure reports whether the session cookie carries the Secure flag.
func (c *Config) CookieSecure() bool {
	if v, err := strconv.ParseBool(c.Session.CookieSecure); err == nil {
		return v
	}
	return c.IsProduction()
}

func (c *Config) Addr() string { return ":" + c.Port }

// DSN returns DATABASE_URL or a postgres:// URL assembled from the PG* settings.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

// Package metrics defines and registers all custom Prometheus metrics for the
// catrace backend. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation. Collectors exposes them for a router built on its own
// registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "catrace"

// Login attempt results.
const (
	LoginSuccess     = "success"
	LoginInvalid     = "invalid_credentials"
	LoginRateLimited = "rate_limited"
	LoginRejected    = "rejected"
	LoginError       = "error"
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts by outcome.
// Label:
//   - result: "success", "invalid_credentials", "rate_limited", "rejected" (bad input) or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// CredentialMigrationsTotal counts legacy credentials upgraded at login.
// Label:
//   - result: "persisted" or "failed"
var CredentialMigrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_migrations_total",
		Help:      "Total number of legacy credential migrations attempted during login.",
	},
	[]string{"result"},
)

// SessionRejectionsTotal counts requests refused by the session middleware.
var SessionRejectionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_rejections_total",
		Help:      "Total number of requests with a missing or invalid session.",
	},
)

// ── Race metrics ──────────────────────────────────────────────────────────────

// RaceSignupsTotal counts signup requests that reached storage.
// Label:
//   - result: "registered", "already_registered" or "error"
var RaceSignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "race_signups_total",
		Help:      "Total number of race signup requests, by result.",
	},
	[]string{"result"},
)

// CatSavesTotal counts profile cat writes.
// Label:
//   - op: "created" or "updated"
var CatSavesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cat_saves_total",
		Help:      "Total number of cats created or updated through the profile API.",
	},
	[]string{"op"},
)

// Collectors lists every metric defined here.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		LoginAttemptsTotal,
		CredentialMigrationsTotal,
		SessionRejectionsTotal,
		RaceSignupsTotal,
		CatSavesTotal,
	}
}

// Package metrics defines and registers all custom Prometheus metrics for
// the workshop API. It is the single source of truth for metric names,
// labels, and help strings. Metrics register with the default registry at
// package load; the router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "workshop"

// LoginsTotal counts authentication attempts.
// Label:
//   - result: "success", "bad_credentials", "disabled", "not_found", "throttled"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of authentication attempts, by result.",
	},
	[]string{"result"},
)

// GateRejectionsTotal counts bearer tokens rejected by the authentication gate.
// Label:
//   - reason: "expired", "malformed", "unknown" (no ledger row), "revoked"
var GateRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_rejections_total",
		Help:      "Total number of requests rejected by the authentication gate.",
	},
	[]string{"reason"},
)

// RegistrationsTotal counts completed registrations.
var RegistrationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of accounts registered.",
	},
)

// EmailsSentTotal counts outbound transactional mail.
// Labels:
//   - kind: "verification" or "password_reset"
//   - result: "ok" or "error"
var EmailsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_sent_total",
		Help:      "Total number of transactional emails attempted, by kind and result.",
	},
	[]string{"kind", "result"},
)

// PurgedRecordsTotal counts rows physically removed by the purge sweeper.
// Label:
//   - collection: "users" or "tokens"
var PurgedRecordsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "purged_records_total",
		Help:      "Total number of soft-deleted records permanently removed.",
	},
	[]string{"collection"},
)

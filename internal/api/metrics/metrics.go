// Package metrics defines and registers all custom Prometheus metrics for the
// CRM API. It is the single source of truth for metric names, labels, and help
// strings.
//
// Metrics are registered with the default Prometheus registry at package init
// through promauto; HTTP request metrics come from echoprometheus in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crm"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts created accounts.
// Label:
//   - role: the role of the new user
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registered users, by role.",
	},
	[]string{"role"},
)

// AuthorizationDenialsTotal counts requests stopped by the authorization gate.
// Label:
//   - reason: "missing_token", "invalid_token" or "forbidden_role"
var AuthorizationDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_denials_total",
		Help:      "Total number of requests rejected before reaching a handler.",
	},
	[]string{"reason"},
)

// ── Conversion metrics ───────────────────────────────────────────────────────

// ConversionsTotal counts lead conversion outcomes.
// Label:
//   - outcome: "converted", "converted_with_warnings", "not_found", "in_progress", "error", "resumed"
var ConversionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversions_total",
		Help:      "Total number of lead conversions, by outcome.",
	},
	[]string{"outcome"},
)

// ConversionWarningsTotal counts non-fatal conversion step failures.
// Label:
//   - step: "user_missing", "user_update" or "lead_delete"
var ConversionWarningsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversion_warnings_total",
		Help:      "Total number of non-fatal conversion step failures, by step.",
	},
	[]string{"step"},
)

// ConversionPendingIntents tracks pending intents seen by the last recovery sweep.
var ConversionPendingIntents = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "conversion_pending_intents",
		Help:      "Pending conversion intents found by the most recent recovery sweep.",
	},
)

// ── Project metrics ──────────────────────────────────────────────────────────

// ProjectUpdatesTotal counts project mutations.
// Labels:
//   - role: caller role
//   - result: "applied", "dropped_fields" or "forbidden"
var ProjectUpdatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "project_updates_total",
		Help:      "Total number of project update attempts, by role and result.",
	},
	[]string{"role", "result"},
)

// ── Event metrics ────────────────────────────────────────────────────────────

// EventsPublishedTotal counts domain event deliveries.
// Labels:
//   - type: event type (e.g. "lead.converted")
//   - result: "ok", "error" or "dropped"
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of domain events handed to the broker, by type and result.",
	},
	[]string{"type", "result"},
)

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

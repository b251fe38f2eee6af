// Package metrics defines and registers the business Prometheus metrics of
// the back-office API. HTTP request metrics come from echoprometheus.
//
// All metrics are registered with the default registry through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "backoffice"

// ── Identity metrics ──────────────────────────────────────────────────────────

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "created", "conflict", "invalid" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// VerificationsTotal counts email verification attempts.
// Label:
//   - result: "verified", "pending_approval", "already_used", "expired", "not_found" or "error"
var VerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "email_verifications_total",
		Help:      "Total number of email verification attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts sign-in attempts.
// Label:
//   - result: "success", "unauthorized", "forbidden", "throttled" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── Lifecycle metrics ─────────────────────────────────────────────────────────

// LifecycleOperationsTotal counts soft-delete and restore requests.
// Labels:
//   - aggregate: "account", "employee", "position", "project" or "client"
//   - operation: "delete" or "restore"
//   - result: "ok" or the error kind (e.g. "conflict")
var LifecycleOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lifecycle_operations_total",
		Help:      "Total number of soft-delete and restore operations.",
	},
	[]string{"aggregate", "operation", "result"},
)

// ── Mail metrics ──────────────────────────────────────────────────────────────

// MailQueueDepth tracks messages waiting in each mail dispatcher worker.
// Label:
//   - worker_id: numeric worker index
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of emails pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// MailDeliveriesTotal counts handoffs to the mail transport.
// Label:
//   - result: "sent" or "failed"
var MailDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_deliveries_total",
		Help:      "Total number of emails handed to the transport, by result.",
	},
	[]string{"result"},
)

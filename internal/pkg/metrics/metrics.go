// Package metrics defines and registers all custom Prometheus metrics for
// the parcel lifecycle engine. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics are registered with the default registry at import time via
// promauto; expose them with the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "parcel"

// ── Transition metrics ────────────────────────────────────────────────────────

// TransitionsTotal counts committed status transitions.
// Labels:
//   - from: the status the parcel left (e.g. "staged")
//   - to:   the status the parcel entered (e.g. "loaded")
var TransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of committed parcel status transitions.",
	},
	[]string{"from", "to"},
)

// GateViolationsTotal counts transitions refused by a gate.
// Label:
//   - kind: "not_invoiced", "collection_blocked", or "confirmation_required"
var GateViolationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_violations_total",
		Help:      "Total number of transitions refused by a precondition gate.",
	},
	[]string{"kind"},
)

// ── Scan metrics ──────────────────────────────────────────────────────────────

// ScansTotal counts barcode scans by mode and outcome.
// Labels:
//   - mode:   "loading", "unloading", or "lookup"
//   - result: "applied", "lookup", "not_found", "wrong_trip", "rejected"
var ScansTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_total",
		Help:      "Total number of barcode scans, by mode and outcome.",
	},
	[]string{"mode", "result"},
)

// ── Bulk metrics ──────────────────────────────────────────────────────────────

// BulkItemsTotal counts per-id outcomes across bulk operations.
// Labels:
//   - operation: "change_status", "assign_trip", "mark_collected", "delete"
//   - outcome:   "succeeded" or "failed"
var BulkItemsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bulk_items_total",
		Help:      "Total number of parcels processed by bulk operations, by outcome.",
	},
	[]string{"operation", "outcome"},
)

// BulkDuration measures how long one bulk call takes end-to-end.
var BulkDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "bulk_duration_seconds",
		Help:      "Duration of bulk operations from selection expansion to the last id.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsTotal counts admin-notification deliveries.
// Label:
//   - outcome: "delivered", "failed", or "deduplicated"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of admin collection notifications, by outcome.",
	},
	[]string{"outcome"},
)

// ── Inventory metrics ─────────────────────────────────────────────────────────

// ParcelsByStatus tracks the current parcel count per custody status,
// refreshed by the read-only background collector.
var ParcelsByStatus = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "parcels_by_status",
		Help:      "Current number of parcels in each custody status.",
	},
	[]string{"status"},
)

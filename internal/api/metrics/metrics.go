// Package metrics defines and registers all custom Prometheus metrics for the
// hall pass API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry through promauto
// when the package is first imported.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hallpass"

// ── Pass metrics ──────────────────────────────────────────────────────────────

// PassSubmissionsTotal counts pass submissions by outcome.
// Label:
//   - result: "created", "invalid", "busy", "unauthenticated" or "error"
var PassSubmissionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pass_submissions_total",
		Help:      "Total number of pass submissions, labelled by outcome.",
	},
	[]string{"result"},
)

// PassesEndedTotal counts end-pass requests by outcome.
// Label:
//   - result: "ended", "not_found" or "error"
var PassesEndedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "passes_ended_total",
		Help:      "Total number of end-pass requests, labelled by outcome.",
	},
	[]string{"result"},
)

// LiveSubscriptions tracks the number of open pass streams.
var LiveSubscriptions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_subscriptions",
		Help:      "Current number of open live pass streams.",
	},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsPublishedTotal counts broker publishes.
// Labels:
//   - kind: "pass.requested" or "pass.ended"
//   - result: "ok" or "error"
var NotificationsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_published_total",
		Help:      "Total number of pass notifications handed to the broker.",
	},
	[]string{"kind", "result"},
)

// NotificationsDroppedTotal counts notifications discarded because the
// target worker channel was full.
var NotificationsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dropped_total",
		Help:      "Total number of pass notifications dropped on a full worker queue.",
	},
)

// NotifyQueueDepth tracks the number of notifications waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotifyQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notify_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// NotificationPublishDuration measures broker publish latency.
// Label:
//   - kind: the notification kind
var NotificationPublishDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_publish_duration_seconds",
		Help:      "Duration of a single notification publish.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"kind"},
)

// ── Room cache metrics ────────────────────────────────────────────────────────

// RoomCacheLookupsTotal counts room list cache lookups.
// Label:
//   - result: "hit" or "miss"
var RoomCacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "room_cache_lookups_total",
		Help:      "Total number of room list cache lookups, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// Package metrics provides Prometheus metrics for the scoreboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rallyboard"

var registry = prometheus.NewRegistry()

// GetRegistry returns the registry all service metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return registry
}

var (
	// Store metrics
	storeReplaces = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "replaces_total",
		Help:      "Canonical value replaces, by kind.",
	}, []string{"kind"})
	storeRevision = promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "revision",
		Help:      "Current revision of each canonical value.",
	}, []string{"kind"})

	// Change bus metrics
	busPublishes = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bus",
		Name:      "publishes_total",
		Help:      "Events fanned out, by kind.",
	}, []string{"kind"})
	busListeners = promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "bus",
		Name:      "listeners",
		Help:      "Currently registered listeners, by kind.",
	}, []string{"kind"})
	busListenerPanics = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bus",
		Name:      "listener_panics_total",
		Help:      "Listener panics isolated during fan-out, by kind.",
	}, []string{"kind"})

	// Edit session metrics
	sessionConflicts = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "conflicts_total",
		Help:      "Background-change warnings raised while drafts were dirty, by kind.",
	}, []string{"kind"})
	sessionSubmitErrors = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "submit_errors_total",
		Help:      "Failed draft submissions, by kind.",
	}, []string{"kind"})

	// Sync metrics
	syncConnected = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "connected",
		Help:      "1 when the remote channel is healthy, 0 otherwise.",
	})
	syncReconnects = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "reconnects_total",
		Help:      "Remote channel reconnects.",
	})
	syncSnapshots = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "snapshots_total",
		Help:      "Full snapshots applied to the store.",
	})
	syncPushes = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "pushes_total",
		Help:      "Per-value pushes applied to the store, by kind.",
	}, []string{"kind"})
	syncSchemaDrops = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "schema_drops_total",
		Help:      "Malformed remote payloads dropped without touching the store.",
	})

	// Mutation gateway metrics
	mutationsAccepted = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "mutations_accepted_total",
		Help:      "Mutations validated and acknowledged by the remote, by kind.",
	}, []string{"kind"})
	mutationsRejected = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "mutations_rejected_total",
		Help:      "Mutations rejected by local validation, by kind.",
	}, []string{"kind"})
	mutationTransportErrors = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "mutation_transport_errors_total",
		Help:      "Mutations that failed or timed out at the remote, by kind.",
	}, []string{"kind"})

	// Websocket fan-out metrics
	wsClients = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "clients",
		Help:      "Currently attached websocket viewers.",
	})
	wsDroppedFrames = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "dropped_frames_total",
		Help:      "Frames dropped because a viewer's send buffer was full.",
	})

	// System metrics
	systemMemoryBytes = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "system",
		Name:      "memory_bytes",
		Help:      "Allocated heap memory in bytes.",
	})
	systemGoroutines = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Current number of goroutines.",
	})

	// HTTP metrics
	httpRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests, by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	httpRequestDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"endpoint", "method"})
)

// Store helpers.
func RecordStoreReplace(kind string) { storeReplaces.WithLabelValues(kind).Inc() }
func UpdateStoreRevision(kind string, rev int64) { storeRevision.WithLabelValues(kind).Set(float64(rev)) }

// Bus helpers.
func RecordBusPublish(kind string) { busPublishes.WithLabelValues(kind).Inc() }
func UpdateBusListeners(kind string, n int) { busListeners.WithLabelValues(kind).Set(float64(n)) }
func RecordBusListenerPanic(kind string) { busListenerPanics.WithLabelValues(kind).Inc() }

// Session helpers.
func RecordSessionConflict(kind string) { sessionConflicts.WithLabelValues(kind).Inc() }
func RecordSessionSubmitError(kind string) { sessionSubmitErrors.WithLabelValues(kind).Inc() }

// Sync helpers.
func UpdateSyncConnected(up bool) {
	if up {
		syncConnected.Set(1)
		return
	}
	syncConnected.Set(0)
}
func RecordSyncReconnect() { syncReconnects.Inc() }
func RecordSyncSnapshot() { syncSnapshots.Inc() }
func RecordSyncPush(kind string) { syncPushes.WithLabelValues(kind).Inc() }
func RecordSyncSchemaDrop() { syncSchemaDrops.Inc() }

// Gateway helpers.
func RecordMutationAccepted(kind string) { mutationsAccepted.WithLabelValues(kind).Inc() }
func RecordMutationRejected(kind string) { mutationsRejected.WithLabelValues(kind).Inc() }
func RecordMutationTransportError(kind string) { mutationTransportErrors.WithLabelValues(kind).Inc() }

// Websocket helpers.
func UpdateWSClients(n int) { wsClients.Set(float64(n)) }
func RecordWSDroppedFrame() { wsDroppedFrames.Inc() }

// System helpers.
func UpdateSystemMemoryUsage(bytes uint64) { systemMemoryBytes.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(count int) { systemGoroutines.Set(float64(count)) }

// HTTP helpers.
func RecordHTTPRequest(endpoint, method, status string) {
	httpRequests.WithLabelValues(endpoint, method, status).Inc()
}
func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}

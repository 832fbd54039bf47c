package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements MetricsCollector for Prometheus.
type PrometheusCollector struct {
	namespace string

	ledgerOps     *prometheus.CounterVec
	ledgerLatency *prometheus.HistogramVec
	stalePending  prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	chatCalls    *prometheus.CounterVec
	chatLatency  prometheus.Histogram
	toolCalls    *prometheus.CounterVec
	circuitState *prometheus.GaugeVec
	circuitOpens *prometheus.CounterVec
}

// NewPrometheusCollector creates a collector whose metrics are prefixed with namespace.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		namespace: namespace,
		ledgerOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_operations_total",
				Help:      "Total number of ledger operations by kind and outcome",
			},
			[]string{"operation", "outcome"},
		),
		ledgerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_operation_duration_seconds",
				Help:      "Ledger operation latency",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"operation"},
		),
		stalePending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stale_pending_transfers",
				Help:      "Interbank transfers left pending past the staleness threshold",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of read cache hits",
			},
			[]string{"cache"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of read cache misses",
			},
			[]string{"cache"},
		),
		chatCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_completions_total",
				Help:      "Total number of chat completion calls",
			},
			[]string{"status"},
		),
		chatLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chat_completion_duration_seconds",
				Help:      "Chat completion latency",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_tool_calls_total",
				Help:      "Total number of agent tool invocations",
			},
			[]string{"tool", "status"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens",
			},
			[]string{"name"},
		),
	}
}

// Register registers all metrics with the given Prometheus registry.
func (pc *PrometheusCollector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pc.ledgerOps,
		pc.ledgerLatency,
		pc.stalePending,
		pc.httpRequests,
		pc.httpLatency,
		pc.cacheHits,
		pc.cacheMisses,
		pc.chatCalls,
		pc.chatLatency,
		pc.toolCalls,
		pc.circuitState,
		pc.circuitOpens,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (pc *PrometheusCollector) RecordLedgerOp(op string, outcome string, duration time.Duration) {
	pc.ledgerOps.WithLabelValues(op, outcome).Inc()
	pc.ledgerLatency.WithLabelValues(op).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordStalePending(count int) {
	pc.stalePending.Set(float64(count))
}

// RecordHTTPRequest takes the route template, not the raw path, to keep label cardinality bounded.
func (pc *PrometheusCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	pc.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	pc.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordCacheGet(cache string, hit bool) {
	if hit {
		pc.cacheHits.WithLabelValues(cache).Inc()
	} else {
		pc.cacheMisses.WithLabelValues(cache).Inc()
	}
}

func (pc *PrometheusCollector) RecordChatCall(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	pc.chatCalls.WithLabelValues(status).Inc()
	pc.chatLatency.Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordToolCall(tool string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	pc.toolCalls.WithLabelValues(tool, status).Inc()
}

func (pc *PrometheusCollector) RecordCircuitState(name string, state CircuitState) {
	pc.circuitState.WithLabelValues(name).Set(float64(state))
	if state == CircuitOpen {
		pc.circuitOpens.WithLabelValues(name).Inc()
	}
}

// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	exchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchanges_total",
			Help: "Completed webhook exchanges by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 15000},
		},
		[]string{"provider", "model", "success"},
	)

	contextTrims = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "context_overflow_trims_total",
			Help: "Count of aggressive history trims triggered by context overflow.",
		},
	)

	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_deliveries_total",
			Help: "Out-of-band reply deliveries by status (sent/failed/dropped).",
		},
		[]string{"status"},
	)

	rateLimitBlocks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_blocks_total",
			Help: "Webhook requests rejected by the per-sender rate limiter.",
		},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			exchangesTotal, aiCallsLatencyMs, contextTrims,
			deliveriesTotal, rateLimitBlocks,
		)
	})
}

// RegisterConversationGauges exposes live store totals. Call once at startup.
func RegisterConversationGauges(stats func() (conversations, turns int)) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "conversations_active",
			Help: "Conversations currently held in memory.",
		}, func() float64 {
			c, _ := stats()
			return float64(c)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "conversation_turns",
			Help: "Total turns across all in-memory conversations.",
		}, func() float64 {
			_, n := stats()
			return float64(n)
		}),
	)
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Exchange helpers --------

func IncExchange(kind, outcome string) {
	exchangesTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}

func IncContextTrim() { contextTrims.Inc() }

func ObserveAICall(provider, model string, latencyMs int, success bool) {
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

// -------- Delivery helpers --------

func IncDelivery(status string) {
	deliveriesTotal.WithLabelValues(norm(status)).Inc()
}

func IncRateLimitBlock() { rateLimitBlocks.Inc() }

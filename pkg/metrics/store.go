package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeNoop     = "noop"
	OutcomeError    = "error"
)

// StoreMetrics records client store activity. A nil or zero value is a no-op.
type StoreMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	cartItems  prometheus.Gauge
	cartUnits  prometheus.Gauge
}

// NewStoreMetrics registers the store metrics on the provided registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_operations_total",
		Help: "Client store operations by outcome.",
	}, []string{"store", "operation", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_backend_call_duration_seconds",
		Help:    "Duration of backend calls issued by client stores.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	cartItems := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_items",
		Help: "Distinct products currently in the cart.",
	})
	cartUnits := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_units",
		Help: "Total quantity currently in the cart.",
	})
	reg.MustRegister(operations, latency, cartItems, cartUnits)
	return &StoreMetrics{
		operations: operations,
		latency:    latency,
		cartItems:  cartItems,
		cartUnits:  cartUnits,
	}
}

// IncOperation counts one store operation.
func (m *StoreMetrics) IncOperation(store, operation, outcome string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(store), normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// ObserveBackendCall records how long a backend call took.
func (m *StoreMetrics) ObserveBackendCall(operation string, duration time.Duration) {
	if m == nil || m.latency == nil {
		return
	}
	m.latency.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// SetCartSize publishes the current cart size.
func (m *StoreMetrics) SetCartSize(items, units int) {
	if m == nil || m.cartItems == nil {
		return
	}
	m.cartItems.Set(float64(items))
	m.cartUnits.Set(float64(units))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

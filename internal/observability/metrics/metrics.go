package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "agenda"

// BookingMetrics exposes counters/histograms for the booking engine and the
// shared slot cache.
type BookingMetrics struct {
	operationsTotal  *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	slotsGenerated   prometheus.Counter
	notifications    *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "operations_total",
			Help:      "Booking engine operations by outcome",
		}, []string{"operation", "outcome"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "operation_latency_seconds",
			Help:      "Latency of booking engine operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "slots",
			Name:      "cache_lookups_total",
			Help:      "Per-professional slot cache lookups",
		}, []string{"result"}),
		slotsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "slots",
			Name:      "generated_total",
			Help:      "Slots created from schedule blocks",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Reservation emails by event and status",
		}, []string{"event_type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.operationLatency, m.cacheLookups, m.slotsGenerated, m.notifications)
	return m
}

// ObserveOperation records one engine call. outcome is "success" or an error kind.
func (m *BookingMetrics) ObserveOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationLatency.WithLabelValues(operation).Observe(seconds)
}

// ObserveCacheLookup records a hit, miss or coalesced slot lookup.
func (m *BookingMetrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) AddGeneratedSlots(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.slotsGenerated.Add(float64(n))
}

func (m *BookingMetrics) ObserveNotification(eventType, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(eventType, status).Inc()
}

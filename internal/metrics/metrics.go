package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters/histograms for the booking engine.
type BookingMetrics struct {
	bookingsTotal       *prometheus.CounterVec
	allocationConflicts prometheus.Counter
	reapedTotal         prometheus.Counter
	requestDuration     *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "engine",
			Name:      "bookings_total",
			Help:      "Booking attempts by result",
		}, []string{"result"}),
		allocationConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "engine",
			Name:      "allocation_conflicts_total",
			Help:      "Serial allocations that exhausted the retry budget",
		}),
		reapedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "engine",
			Name:      "reaped_appointments_total",
			Help:      "Missed appointments removed by the reaper",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.allocationConflicts, m.reapedTotal, m.requestDuration)
	return m
}

func (m *BookingMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveAllocationConflict() {
	if m == nil {
		return
	}
	m.allocationConflicts.Inc()
}

func (m *BookingMetrics) ObserveReaped(count int) {
	if m == nil {
		return
	}
	m.reapedTotal.Add(float64(count))
}

func (m *BookingMetrics) ObserveRequest(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, status).Observe(seconds)
}

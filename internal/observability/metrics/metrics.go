package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking and payment flows.
type BookingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	paymentsTotal    *prometheus.CounterVec
	emailsTotal      *prometheus.CounterVec
	calendarTotal    *prometheus.CounterVec
	remindersTotal   prometheus.Counter
	stripeLatency    *prometheus.HistogramVec
	reminderDuration prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sofia",
			Subsystem: "appointments",
			Name:      "bookings_total",
			Help:      "Total appointment booking attempts",
		}, []string{"type", "status"}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sofia",
			Subsystem: "payments",
			Name:      "confirmations_total",
			Help:      "Total payment confirmation attempts",
		}, []string{"status"}),
		emailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sofia",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Total notification emails by kind and status",
		}, []string{"kind", "status"}),
		calendarTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sofia",
			Subsystem: "calendar",
			Name:      "sync_total",
			Help:      "Total Google Calendar sync attempts",
		}, []string{"status"}),
		remindersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sofia",
			Subsystem: "notify",
			Name:      "reminders_sent_total",
			Help:      "Total reminder emails sent by the background worker",
		}),
		stripeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sofia",
			Subsystem: "payments",
			Name:      "stripe_latency_seconds",
			Help:      "Latency of Stripe API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		reminderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sofia",
			Subsystem: "notify",
			Name:      "reminder_sweep_seconds",
			Help:      "Duration of reminder worker sweeps",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.bookingsTotal, m.paymentsTotal, m.emailsTotal, m.calendarTotal,
		m.remindersTotal, m.stripeLatency, m.reminderDuration,
	)
	return m
}

func (m *BookingMetrics) ObserveBooking(appointmentType, status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(appointmentType, status).Inc()
}

func (m *BookingMetrics) ObservePaymentConfirmation(status string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveEmail(kind, status string) {
	if m == nil {
		return
	}
	m.emailsTotal.WithLabelValues(kind, status).Inc()
}

func (m *BookingMetrics) ObserveCalendarSync(status string) {
	if m == nil {
		return
	}
	m.calendarTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveReminderSent() {
	if m == nil {
		return
	}
	m.remindersTotal.Inc()
}

func (m *BookingMetrics) ObserveStripeLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.stripeLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *BookingMetrics) ObserveReminderSweep(seconds float64) {
	if m == nil {
		return
	}
	m.reminderDuration.Observe(seconds)
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveBooking("consultation", "created")
	m.ObservePaymentConfirmation("succeeded")
	m.ObserveEmail("confirmation", "sent")
	m.ObserveCalendarSync("synced")
	m.ObserveReminderSent()
	m.ObserveStripeLatency("retrieve_intent", 0.2)
	m.ObserveReminderSweep(0.05)
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveBooking("consultation", "created")
	m.ObservePaymentConfirmation("failed")
	m.ObserveEmail("reminder", "failed")
	m.ObserveCalendarSync("error")
	m.ObserveReminderSent()
	m.ObserveStripeLatency("create_intent", 0.1)
	m.ObserveReminderSweep(0.1)
}

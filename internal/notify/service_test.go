package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sofiahealth/appointments-api/internal/appointments"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func testAppointment() *appointments.Appointment {
	return &appointments.Appointment{
		ID:              uuid.New(),
		ProviderName:    "Dr. Ada",
		AppointmentTime: time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC),
		ClientEmail:     "patient@example.com",
		AppointmentType: appointments.TypeConsultation,
		AmountCents:     5000,
		IsPaid:          true,
	}
}

func TestSendConfirmation(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, Config{SupportEmail: "support@sofiahealth.com"}, nil)

	if err := svc.SendConfirmation(context.Background(), testAppointment()); err != nil {
		t.Fatalf("SendConfirmation: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "patient@example.com" {
		t.Errorf("to = %s", msg.To)
	}
	if !strings.Contains(msg.Body, "Dr. Ada") {
		t.Error("body should name the provider")
	}
	if !strings.Contains(msg.Body, "$50.00") {
		t.Error("body should show the amount paid")
	}
	if msg.HTML == "" {
		t.Error("confirmation should carry an HTML part")
	}
}

func TestSendReminder(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, Config{SupportEmail: "support@sofiahealth.com"}, nil)

	if err := svc.SendReminder(context.Background(), testAppointment()); err != nil {
		t.Fatalf("SendReminder: %v", err)
	}
	msg := sender.sent[0]
	if !strings.Contains(msg.Subject, "Reminder") {
		t.Errorf("subject = %s", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Monday, September 1, 2026") {
		t.Errorf("body should carry the appointment date, got %q", msg.Body)
	}
	if msg.HTML == "" {
		t.Error("reminder should carry an HTML part")
	}
}

func TestSendCancellation_WithReason(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, Config{SupportEmail: "support@sofiahealth.com"}, nil)

	if err := svc.SendCancellation(context.Background(), testAppointment(), "provider unavailable"); err != nil {
		t.Fatalf("SendCancellation: %v", err)
	}
	msg := sender.sent[0]
	if !strings.Contains(msg.Body, "provider unavailable") {
		t.Error("body should include the cancellation reason")
	}
	if !strings.Contains(msg.HTML, "provider unavailable") {
		t.Error("HTML part should include the cancellation reason")
	}
}

func TestNotifyProvider(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, Config{ProviderEmail: "provider@sofiahealth.com"}, nil)

	if err := svc.NotifyProvider(context.Background(), testAppointment()); err != nil {
		t.Fatalf("NotifyProvider: %v", err)
	}
	msg := sender.sent[0]
	if msg.To != "provider@sofiahealth.com" {
		t.Errorf("to = %s", msg.To)
	}
	if !strings.Contains(msg.Body, "patient@example.com") {
		t.Error("provider notice should include the client email")
	}
	if msg.HTML == "" {
		t.Error("provider notice should carry an HTML part")
	}
}

func TestNotifyProvider_NoAddressConfigured(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, Config{}, nil)

	if err := svc.NotifyProvider(context.Background(), testAppointment()); err != nil {
		t.Fatalf("NotifyProvider: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Error("no provider address configured means no send")
	}
}

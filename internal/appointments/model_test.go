package appointments

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestProviderRef_Variants(t *testing.T) {
	id := uuid.New()

	known := KnownProvider(id)
	gotID, ok := known.Known()
	if !ok || gotID != id {
		t.Errorf("known ref should expose its id, got %v %v", gotID, ok)
	}
	if known.LegacyName() != "" {
		t.Error("known ref should carry no legacy name")
	}

	legacy := LegacyProvider("Dr. Legacy")
	if _, ok := legacy.Known(); ok {
		t.Error("legacy ref should not report a known provider")
	}
	if legacy.LegacyName() != "Dr. Legacy" {
		t.Errorf("unexpected legacy name: %s", legacy.LegacyName())
	}

	if !(ProviderRef{}).IsZero() {
		t.Error("zero ref should report IsZero")
	}
	if known.IsZero() || legacy.IsZero() {
		t.Error("non-empty refs should not report IsZero")
	}
}

func TestAppointmentStatus(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	unpaid := &Appointment{AppointmentTime: now.Add(time.Hour)}
	if got := unpaid.Status(now); got != "Pending Payment" {
		t.Errorf("unpaid status = %s", got)
	}

	upcoming := &Appointment{IsPaid: true, AppointmentTime: now.Add(time.Hour)}
	if got := upcoming.Status(now); got != "Confirmed" {
		t.Errorf("paid upcoming status = %s", got)
	}

	past := &Appointment{IsPaid: true, AppointmentTime: now.Add(-time.Hour)}
	if got := past.Status(now); got != "Completed" {
		t.Errorf("paid past status = %s", got)
	}
}

func TestAppointmentTypeValid(t *testing.T) {
	if !TypeConsultation.Valid() || !TypeFollowUp.Valid() {
		t.Error("expected builtin types to be valid")
	}
	if AppointmentType("telehealth").Valid() {
		t.Error("unexpected type should be invalid")
	}
	if TypeFollowUp.Display() != "Follow-up" {
		t.Errorf("unexpected display: %s", TypeFollowUp.Display())
	}
}

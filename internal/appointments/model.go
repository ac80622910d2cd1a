package appointments

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for booking lifecycle failures. Handlers map these to
// HTTP statuses; everything else is treated as an internal error.
var (
	ErrNotFound         = errors.New("appointments: appointment not found")
	ErrValidation       = errors.New("appointments: invalid booking request")
	ErrInvalidSchedule  = errors.New("appointments: appointment time must be in the future")
	ErrProviderInactive = errors.New("appointments: provider is not accepting appointments")
	ErrPaymentRequired  = errors.New("appointments: payment required before this action")
)

// AppointmentType distinguishes pricing tiers.
type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow_up"
)

// Valid reports whether the type is a supported booking type.
func (t AppointmentType) Valid() bool {
	return t == TypeConsultation || t == TypeFollowUp
}

// Display returns the human-readable type name.
func (t AppointmentType) Display() string {
	switch t {
	case TypeConsultation:
		return "Consultation"
	case TypeFollowUp:
		return "Follow-up"
	default:
		return string(t)
	}
}

// ProviderRef identifies the provider for a booking: either a catalog
// provider by ID, or a legacy free-text name carried over from old records.
// The two representations are mutually exclusive by construction.
type ProviderRef struct {
	providerID uuid.UUID
	legacyName string
}

// KnownProvider references a catalog provider.
func KnownProvider(id uuid.UUID) ProviderRef {
	return ProviderRef{providerID: id}
}

// LegacyProvider references a provider by free-text name only.
func LegacyProvider(name string) ProviderRef {
	return ProviderRef{legacyName: name}
}

// Known returns the catalog provider ID, if this ref has one.
func (r ProviderRef) Known() (uuid.UUID, bool) {
	return r.providerID, r.providerID != uuid.Nil
}

// LegacyName returns the free-text name for legacy refs.
func (r ProviderRef) LegacyName() string {
	return r.legacyName
}

// IsZero reports whether no provider was referenced at all.
func (r ProviderRef) IsZero() bool {
	return r.providerID == uuid.Nil && r.legacyName == ""
}

// Appointment is a scheduled booking between a patient (by email) and a
// provider, with payment, notification, and calendar state attached.
//
// AmountCents is resolved once at creation and never recomputed, even if the
// provider's prices change later. PaymentIntentID and CalendarEventID are
// write-once. IsPaid transitions false -> true exactly once; CalendarSynced
// can only become true after IsPaid.
type Appointment struct {
	ID              uuid.UUID       `json:"id"`
	ProviderID      *uuid.UUID      `json:"provider_id,omitempty"`
	ProviderName    string          `json:"provider_name"`
	AppointmentTime time.Time       `json:"appointment_time"`
	ClientEmail     string          `json:"client_email"`
	AppointmentType AppointmentType `json:"appointment_type"`
	Notes           string          `json:"notes,omitempty"`

	AmountCents     int64  `json:"amount_cents"`
	IsPaid          bool   `json:"is_paid"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`

	ConfirmationSent bool `json:"confirmation_sent"`
	ReminderSent     bool `json:"reminder_sent"`

	CalendarSynced  bool   `json:"calendar_synced"`
	CalendarEventID string `json:"calendar_event_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsUpcoming reports whether the appointment is in the future.
func (a *Appointment) IsUpcoming(now time.Time) bool {
	return a.AppointmentTime.After(now)
}

// Status returns the human-readable booking status.
func (a *Appointment) Status(now time.Time) string {
	if !a.IsPaid {
		return "Pending Payment"
	}
	if a.IsUpcoming(now) {
		return "Confirmed"
	}
	return "Completed"
}

package providers

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a provider does not exist.
var ErrNotFound = errors.New("providers: provider not found")

// Specialty identifies a provider's medical specialty.
type Specialty string

const (
	SpecialtyGeneral     Specialty = "general"
	SpecialtyCardiology  Specialty = "cardiology"
	SpecialtyDermatology Specialty = "dermatology"
	SpecialtyPediatrics  Specialty = "pediatrics"
	SpecialtyPsychiatry  Specialty = "psychiatry"
	SpecialtyOrthopedics Specialty = "orthopedics"
	SpecialtyNeurology   Specialty = "neurology"
	SpecialtyOther       Specialty = "other"
)

var specialtyDisplay = map[Specialty]string{
	SpecialtyGeneral:     "General Practitioner",
	SpecialtyCardiology:  "Cardiology",
	SpecialtyDermatology: "Dermatology",
	SpecialtyPediatrics:  "Pediatrics",
	SpecialtyPsychiatry:  "Psychiatry",
	SpecialtyOrthopedics: "Orthopedics",
	SpecialtyNeurology:   "Neurology",
	SpecialtyOther:       "Other",
}

// Valid reports whether the specialty is one of the supported values.
func (s Specialty) Valid() bool {
	_, ok := specialtyDisplay[s]
	return ok
}

// Display returns the human-readable specialty name.
func (s Specialty) Display() string {
	if name, ok := specialtyDisplay[s]; ok {
		return name
	}
	return string(s)
}

// Provider is a healthcare professional offering appointments at configured
// per-type prices. Prices are stored in minor currency units (cents).
type Provider struct {
	ID                     uuid.UUID `json:"id"`
	Name                   string    `json:"name"`
	Specialty              Specialty `json:"specialty"`
	Email                  string    `json:"email,omitempty"`
	Phone                  string    `json:"phone,omitempty"`
	ConsultationPriceCents int64     `json:"consultation_price_cents"`
	FollowUpPriceCents     int64     `json:"follow_up_price_cents"`
	IsActive               bool      `json:"is_active"`
	Bio                    string    `json:"bio,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// PriceCentsFor resolves the charge for an appointment type name
// ("consultation" or "follow_up"). Unknown types price as a consultation;
// that fallback mirrors how bookings have always been charged and is relied
// on by callers that pass through unvalidated legacy records.
func (p *Provider) PriceCentsFor(appointmentType string) int64 {
	switch appointmentType {
	case "consultation":
		return p.ConsultationPriceCents
	case "follow_up":
		return p.FollowUpPriceCents
	default:
		return p.ConsultationPriceCents
	}
}

// Validate checks invariants before persisting a provider.
func (p *Provider) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("providers: name is required")
	}
	if !p.Specialty.Valid() {
		return fmt.Errorf("providers: unknown specialty %q", p.Specialty)
	}
	if p.ConsultationPriceCents < 0 || p.FollowUpPriceCents < 0 {
		return fmt.Errorf("providers: prices must be non-negative")
	}
	return nil
}

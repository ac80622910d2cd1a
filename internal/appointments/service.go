package appointments

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sofiahealth/appointments-api/internal/observability/metrics"
	"github.com/sofiahealth/appointments-api/internal/providers"
	"github.com/sofiahealth/appointments-api/pkg/logging"
)

// ProviderCatalog resolves providers for price lookup and active checks.
type ProviderCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*providers.Provider, error)
}

// FallbackPricing applies when a booking carries no catalog provider.
type FallbackPricing struct {
	ConsultationCents int64
	FollowUpCents     int64
}

// PriceCentsFor resolves the fallback charge per appointment type. Unknown
// types charge the consultation rate, matching provider pricing behavior.
func (f FallbackPricing) PriceCentsFor(t AppointmentType) int64 {
	if t == TypeFollowUp {
		return f.FollowUpCents
	}
	return f.ConsultationCents
}

// Service owns appointment creation and validation.
type Service struct {
	repo     *Repository
	catalog  ProviderCatalog
	fallback FallbackPricing
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewService creates the appointment service.
func NewService(repo *Repository, catalog ProviderCatalog, fallback FallbackPricing, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		catalog:  catalog,
		fallback: fallback,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source (for tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateParams carries a booking request.
type CreateParams struct {
	Provider        ProviderRef
	AppointmentTime time.Time
	ClientEmail     string
	AppointmentType AppointmentType
	Notes           string
}

// Create validates the booking, resolves the price at creation time, and
// persists a pending appointment. The resolved amount is frozen on the row;
// later provider price changes never touch existing bookings.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Appointment, error) {
	email := strings.TrimSpace(params.ClientEmail)
	if _, err := mail.ParseAddress(email); err != nil {
		s.metrics.ObserveBooking(string(params.AppointmentType), "rejected")
		return nil, fmt.Errorf("%w: invalid client email %q", ErrValidation, email)
	}
	if !params.AppointmentType.Valid() {
		s.metrics.ObserveBooking(string(params.AppointmentType), "rejected")
		return nil, fmt.Errorf("%w: unknown appointment type %q", ErrValidation, params.AppointmentType)
	}
	if !params.AppointmentTime.After(s.now()) {
		s.metrics.ObserveBooking(string(params.AppointmentType), "rejected")
		return nil, ErrInvalidSchedule
	}

	a := &Appointment{
		AppointmentTime: params.AppointmentTime.UTC(),
		ClientEmail:     email,
		AppointmentType: params.AppointmentType,
		Notes:           strings.TrimSpace(params.Notes),
	}

	if id, ok := params.Provider.Known(); ok {
		provider, err := s.catalog.GetByID(ctx, id)
		if err != nil {
			s.metrics.ObserveBooking(string(params.AppointmentType), "rejected")
			return nil, fmt.Errorf("appointments: resolve provider: %w", err)
		}
		if !provider.IsActive {
			s.metrics.ObserveBooking(string(params.AppointmentType), "rejected")
			return nil, ErrProviderInactive
		}
		a.ProviderID = &provider.ID
		a.ProviderName = provider.Name
		a.AmountCents = provider.PriceCentsFor(string(params.AppointmentType))
	} else {
		a.ProviderName = strings.TrimSpace(params.Provider.LegacyName())
		a.AmountCents = s.fallback.PriceCentsFor(params.AppointmentType)
	}

	created, err := s.repo.Create(ctx, a)
	if err != nil {
		s.metrics.ObserveBooking(string(params.AppointmentType), "failed")
		return nil, err
	}

	s.metrics.ObserveBooking(string(created.AppointmentType), "created")
	s.logger.Info("appointment created",
		"id", created.ID,
		"provider", created.ProviderName,
		"type", created.AppointmentType,
		"amount_cents", created.AmountCents,
		"time", created.AppointmentTime,
	)
	return created, nil
}

// Get loads an appointment by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

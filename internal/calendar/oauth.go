package calendar

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/sofiahealth/appointments-api/internal/appointments"
	"github.com/sofiahealth/appointments-api/internal/observability/metrics"
	"github.com/sofiahealth/appointments-api/pkg/logging"
)

// ErrAlreadySynced means the appointment already carries a calendar event;
// connecting again would duplicate it.
var ErrAlreadySynced = errors.New("calendar: appointment already synced")

// Config holds the Google OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Service runs the Google Calendar connect flow: issue the consent
// redirect, redeem the callback, store the tokens, and attach the created
// event to the appointment. Only paid appointments may connect.
type Service struct {
	oauthCfg *oauth2.Config
	repo     *appointments.Repository
	states   *StateStore
	creds    *CredentialStore
	events   EventWriter
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

// NewService creates the calendar connect service.
func NewService(cfg Config, repo *appointments.Repository, states *StateStore, creds *CredentialStore, events EventWriter, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{gcal.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}
	return &Service{
		oauthCfg: oauthCfg,
		repo:     repo,
		states:   states,
		creds:    creds,
		events:   events,
		metrics:  m,
		logger:   logger,
	}
}

// WithEvents sets the event writer. Wiring needs the service's oauth
// config to build the writer, so this runs after construction.
func (s *Service) WithEvents(events EventWriter) *Service {
	s.events = events
	return s
}

// WithEndpoint overrides the OAuth endpoint (for testing).
func (s *Service) WithEndpoint(endpoint oauth2.Endpoint) *Service {
	s.oauthCfg.Endpoint = endpoint
	return s
}

// OAuthConfig exposes the oauth2 config for the event writer.
func (s *Service) OAuthConfig() *oauth2.Config {
	return s.oauthCfg
}

// BeginAuth validates the appointment and returns the Google consent URL.
func (s *Service) BeginAuth(ctx context.Context, appointmentID uuid.UUID) (string, error) {
	a, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return "", err
	}
	if !a.IsPaid {
		return "", appointments.ErrPaymentRequired
	}
	if a.CalendarEventID != "" {
		return "", ErrAlreadySynced
	}

	state, err := s.states.Create(ctx, a.ID)
	if err != nil {
		return "", err
	}

	url := s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	s.logger.Info("calendar connect started", "appointment_id", a.ID)
	return url, nil
}

// CompleteAuth redeems the callback: exchanges the code, stores the
// tokens, creates the event, and attaches it to the appointment. The
// attach is conditional on the appointment still being paid and unsynced;
// losing that race leaves the stored event orphaned on the client's
// calendar, which is harmless.
func (s *Service) CompleteAuth(ctx context.Context, state, code string) (*appointments.Appointment, error) {
	appointmentID, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}

	token, err := s.oauthCfg.Exchange(ctx, code)
	if err != nil {
		s.metrics.ObserveCalendarSync("exchange_failed")
		return nil, fmt.Errorf("calendar: exchange code: %w", err)
	}
	if err := s.creds.Save(ctx, appointmentID, token); err != nil {
		return nil, err
	}

	a, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.CalendarEventID != "" {
		s.metrics.ObserveCalendarSync("already_synced")
		return a, nil
	}

	eventID, err := s.events.Insert(ctx, token, a)
	if err != nil {
		s.metrics.ObserveCalendarSync("insert_failed")
		return nil, err
	}

	attached, err := s.repo.SetCalendarEvent(ctx, a.ID, eventID)
	if err != nil {
		return nil, err
	}
	if !attached {
		s.logger.Warn("calendar event not attached; appointment no longer eligible",
			"appointment_id", a.ID, "event_id", eventID)
		s.metrics.ObserveCalendarSync("attach_lost")
		return s.repo.GetByID(ctx, a.ID)
	}

	a.CalendarEventID = eventID
	a.CalendarSynced = true
	s.metrics.ObserveCalendarSync("synced")
	s.logger.Info("calendar synced", "appointment_id", a.ID, "event_id", eventID)
	return a, nil
}

package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/sofiahealth/appointments-api/internal/appointments"
	"github.com/sofiahealth/appointments-api/pkg/logging"
)

const eventDuration = 60 * time.Minute

// EventWriter manages the appointment's event on the client's calendar.
type EventWriter interface {
	Insert(ctx context.Context, token *oauth2.Token, a *appointments.Appointment) (string, error)
	Update(ctx context.Context, token *oauth2.Token, a *appointments.Appointment, eventID string) error
	Delete(ctx context.Context, token *oauth2.Token, eventID string) error
}

// GoogleEvents creates events through the Google Calendar API using the
// client's own OAuth token.
type GoogleEvents struct {
	oauthCfg *oauth2.Config
	logger   *logging.Logger
}

// NewGoogleEvents creates the Google Calendar event writer.
func NewGoogleEvents(oauthCfg *oauth2.Config, logger *logging.Logger) *GoogleEvents {
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleEvents{oauthCfg: oauthCfg, logger: logger}
}

func (g *GoogleEvents) service(ctx context.Context, token *oauth2.Token) (*gcal.Service, error) {
	httpClient := g.oauthCfg.Client(ctx, token)
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("calendar: build service: %w", err)
	}
	return svc, nil
}

func eventBody(a *appointments.Appointment) *gcal.Event {
	start := a.AppointmentTime.UTC()
	return &gcal.Event{
		Summary:     fmt.Sprintf("%s with %s - Sofia Health", a.AppointmentType.Display(), a.ProviderName),
		Description: a.Notes,
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &gcal.EventDateTime{
			DateTime: start.Add(eventDuration).Format(time.RFC3339),
			TimeZone: "UTC",
		},
		Attendees: []*gcal.EventAttendee{
			{Email: a.ClientEmail},
		},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 30},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

// Insert writes a 60-minute event to the client's primary calendar with a
// 24-hour email reminder and a 30-minute popup.
func (g *GoogleEvents) Insert(ctx context.Context, token *oauth2.Token, a *appointments.Appointment) (string, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return "", err
	}

	created, err := svc.Events.Insert("primary", eventBody(a)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}

	g.logger.Info("calendar event created", "appointment_id", a.ID, "event_id", created.Id)
	return created.Id, nil
}

// Update rewrites the event with the appointment's current details.
func (g *GoogleEvents) Update(ctx context.Context, token *oauth2.Token, a *appointments.Appointment, eventID string) error {
	svc, err := g.service(ctx, token)
	if err != nil {
		return err
	}

	if _, err := svc.Events.Update("primary", eventID, eventBody(a)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: update event: %w", err)
	}

	g.logger.Info("calendar event updated", "appointment_id", a.ID, "event_id", eventID)
	return nil
}

// Delete removes the event from the client's calendar.
func (g *GoogleEvents) Delete(ctx context.Context, token *oauth2.Token, eventID string) error {
	svc, err := g.service(ctx, token)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete("primary", eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: delete event: %w", err)
	}

	g.logger.Info("calendar event deleted", "event_id", eventID)
	return nil
}

var _ EventWriter = (*GoogleEvents)(nil)

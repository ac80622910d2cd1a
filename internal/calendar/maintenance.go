package calendar

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotSynced means the appointment has no calendar event to maintain.
var ErrNotSynced = errors.New("calendar: appointment not synced")

// RefreshEvent pushes the appointment's current details to its existing
// calendar event, using the credentials stored when the client connected.
func (s *Service) RefreshEvent(ctx context.Context, appointmentID uuid.UUID) error {
	a, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if a.CalendarEventID == "" {
		return ErrNotSynced
	}

	creds, err := s.creds.Get(ctx, appointmentID)
	if err != nil {
		return err
	}

	if err := s.events.Update(ctx, creds.Token(), a, a.CalendarEventID); err != nil {
		s.metrics.ObserveCalendarSync("update_failed")
		return err
	}
	s.metrics.ObserveCalendarSync("updated")
	s.logger.Info("calendar event refreshed", "appointment_id", a.ID, "event_id", a.CalendarEventID)
	return nil
}

// RemoveEvent deletes the appointment's event from the client's calendar.
// The appointment record keeps its event id; sync state never moves
// backwards.
func (s *Service) RemoveEvent(ctx context.Context, appointmentID uuid.UUID) error {
	a, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if a.CalendarEventID == "" {
		return ErrNotSynced
	}

	creds, err := s.creds.Get(ctx, appointmentID)
	if err != nil {
		return err
	}

	if err := s.events.Delete(ctx, creds.Token(), a.CalendarEventID); err != nil {
		s.metrics.ObserveCalendarSync("delete_failed")
		return err
	}
	s.metrics.ObserveCalendarSync("deleted")
	s.logger.Info("calendar event removed", "appointment_id", a.ID, "event_id", a.CalendarEventID)
	return nil
}

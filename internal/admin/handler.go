package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sofiahealth/appointments-api/internal/appointments"
	"github.com/sofiahealth/appointments-api/internal/calendar"
	"github.com/sofiahealth/appointments-api/pkg/logging"
)

// Notifier sends the cancellation notice to the client.
type Notifier interface {
	SendCancellation(ctx context.Context, a *appointments.Appointment, reason string) error
}

// CalendarManager maintains the remote calendar event for an appointment.
type CalendarManager interface {
	RefreshEvent(ctx context.Context, appointmentID uuid.UUID) error
	RemoveEvent(ctx context.Context, appointmentID uuid.UUID) error
}

// Handler serves the admin analytics and listing endpoints. Routing puts
// it behind the admin JWT middleware.
type Handler struct {
	dashboard    *DashboardRepository
	appointments *appointments.Repository
	notifier     Notifier
	calendar     CalendarManager
	logger       *logging.Logger
}

// NewHandler creates an admin handler.
func NewHandler(dashboard *DashboardRepository, appts *appointments.Repository, notifier Notifier, cal CalendarManager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		dashboard:    dashboard,
		appointments: appts,
		notifier:     notifier,
		calendar:     cal,
		logger:       logger,
	}
}

// GetDashboard handles GET /admin/dashboard.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Get(r.Context())
	if err != nil {
		h.logger.Error("dashboard build failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(d); err != nil {
		h.logger.Error("dashboard encode failed", "error", err)
	}
}

// ListAppointments handles GET /admin/appointments.
// Query params: paid, provider_id, type, confirmation_sent, calendar_synced,
// from, to (RFC3339), q, limit, offset.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := appointments.ListFilter{
		AppointmentType: appointments.AppointmentType(q.Get("type")),
		Search:          q.Get("q"),
	}

	var parseErr string
	boolParam := func(name string) *bool {
		v := q.Get(name)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			parseErr = name
			return nil
		}
		return &b
	}
	timeParam := func(name string) *time.Time {
		v := q.Get(name)
		if v == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			parseErr = name
			return nil
		}
		return &t
	}

	filter.Paid = boolParam("paid")
	filter.ConfirmationSent = boolParam("confirmation_sent")
	filter.CalendarSynced = boolParam("calendar_synced")
	filter.From = timeParam("from")
	filter.To = timeParam("to")

	if v := q.Get("provider_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			parseErr = "provider_id"
		} else {
			filter.ProviderID = &id
		}
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	if parseErr != "" {
		http.Error(w, `{"error":"invalid `+parseErr+` parameter"}`, http.StatusBadRequest)
		return
	}

	list, err := h.appointments.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("admin appointment list failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*appointments.Appointment{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"appointments": list,
		"count":        len(list),
	})
}

// CancelAppointment handles POST /admin/appointments/{appointmentID}/cancel.
// Cancellation is a courtesy flow: it notifies the client and removes the
// remote calendar event, but never unwinds payment state.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, `{"error":"invalid appointment id"}`, http.StatusBadRequest)
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	a, err := h.appointments.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			http.Error(w, `{"error":"appointment not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("cancel lookup failed", "error", err, "appointment_id", id)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	notified := false
	if h.notifier != nil {
		if err := h.notifier.SendCancellation(r.Context(), a, body.Reason); err != nil {
			h.logger.Error("cancellation email failed", "error", err, "appointment_id", id)
		} else {
			notified = true
		}
	}

	eventRemoved := false
	if h.calendar != nil && a.CalendarEventID != "" {
		if err := h.calendar.RemoveEvent(r.Context(), id); err != nil {
			h.logger.Warn("calendar event removal failed", "error", err, "appointment_id", id)
		} else {
			eventRemoved = true
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":                     a.ID,
		"cancellation_sent":      notified,
		"calendar_event_removed": eventRemoved,
	})
}

// RefreshCalendar handles POST /admin/appointments/{appointmentID}/calendar/refresh.
// Pushes the stored appointment details back to the synced calendar event.
func (h *Handler) RefreshCalendar(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, `{"error":"invalid appointment id"}`, http.StatusBadRequest)
		return
	}
	if h.calendar == nil {
		http.Error(w, `{"error":"calendar sync not configured"}`, http.StatusServiceUnavailable)
		return
	}

	if err := h.calendar.RefreshEvent(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, appointments.ErrNotFound):
			http.Error(w, `{"error":"appointment not found"}`, http.StatusNotFound)
		case errors.Is(err, calendar.ErrNotSynced), errors.Is(err, calendar.ErrCredentialsNotFound):
			http.Error(w, `{"error":"appointment has no synced calendar event"}`, http.StatusConflict)
		default:
			h.logger.Error("calendar refresh failed", "error", err, "appointment_id", id)
			http.Error(w, `{"error":"calendar service unavailable"}`, http.StatusBadGateway)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"refreshed": true})
}

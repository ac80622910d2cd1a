package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sofiahealth/appointments-api/internal/appointments"
	"github.com/sofiahealth/appointments-api/pkg/logging"
)

// Handler serves the calendar connect flow and the ICS download.
type Handler struct {
	service *Service
	repo    *appointments.Repository
	logger  *logging.Logger
}

// NewHandler creates a calendar handler.
func NewHandler(service *Service, repo *appointments.Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, repo: repo, logger: logger}
}

// Connect handles GET /appointments/{appointmentID}/calendar/connect and
// redirects the client to Google's consent page.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, `{"error":"invalid appointment id"}`, http.StatusBadRequest)
		return
	}

	authURL, err := h.service.BeginAuth(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles GET /calendar/callback, the OAuth return leg.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("calendar consent denied", "error", errParam)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "calendar access was denied"})
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		http.Error(w, `{"error":"missing state or code"}`, http.StatusBadRequest)
		return
	}

	a, err := h.service.CompleteAuth(r.Context(), state, code)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"appointment_id":    a.ID.String(),
		"calendar_synced":   a.CalendarSynced,
		"calendar_event_id": a.CalendarEventID,
	})
}

// DownloadICS handles GET /appointments/{appointmentID}/calendar.ics.
// Only paid appointments export.
func (h *Handler) DownloadICS(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, `{"error":"invalid appointment id"}`, http.StatusBadRequest)
		return
	}

	a, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !a.IsPaid {
		h.writeError(w, appointments.ErrPaymentRequired)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="appointment-%s.ics"`, a.ID))
	_, _ = w.Write(ICS(a, time.Now().UTC()))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case errors.Is(err, appointments.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "appointment not found"})
	case errors.Is(err, appointments.ErrPaymentRequired):
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "complete payment before adding to your calendar"})
	case errors.Is(err, ErrAlreadySynced):
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "this appointment is already on your calendar"})
	case errors.Is(err, ErrStateNotFound):
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "this calendar link has expired; start again from your appointment"})
	default:
		h.logger.Error("calendar request failed", "error", err)
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "calendar service unavailable"})
	}
}

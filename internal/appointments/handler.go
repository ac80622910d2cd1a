package appointments

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sofiahealth/appointments-api/internal/providers"
	"github.com/sofiahealth/appointments-api/pkg/logging"
)

// Handler serves the public booking endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates an appointments handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// createRequest is the booking form payload.
type createRequest struct {
	ProviderID      string `json:"provider_id"`
	ProviderName    string `json:"provider_name"` // legacy free-text fallback
	AppointmentTime string `json:"appointment_time"`
	ClientEmail     string `json:"client_email"`
	AppointmentType string `json:"appointment_type"`
	Notes           string `json:"notes"`
}

// bookingResponse is the public read model of an appointment.
type bookingResponse struct {
	*Appointment
	Status       string `json:"status"`
	AmountDollar string `json:"amount"`
}

func newBookingResponse(a *Appointment) bookingResponse {
	return bookingResponse{
		Appointment:  a,
		Status:       a.Status(time.Now().UTC()),
		AmountDollar: fmt.Sprintf("$%.2f", float64(a.AmountCents)/100),
	}
}

// Create handles POST /appointments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	when, err := time.Parse(time.RFC3339, req.AppointmentTime)
	if err != nil {
		http.Error(w, `{"error":"appointment_time must be RFC3339"}`, http.StatusUnprocessableEntity)
		return
	}

	ref := ProviderRef{}
	if req.ProviderID != "" {
		id, err := uuid.Parse(req.ProviderID)
		if err != nil {
			http.Error(w, `{"error":"invalid provider_id"}`, http.StatusUnprocessableEntity)
			return
		}
		ref = KnownProvider(id)
	} else if req.ProviderName != "" {
		ref = LegacyProvider(req.ProviderName)
	}

	created, err := h.service.Create(r.Context(), CreateParams{
		Provider:        ref,
		AppointmentTime: when,
		ClientEmail:     req.ClientEmail,
		AppointmentType: AppointmentType(req.AppointmentType),
		Notes:           req.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(newBookingResponse(created))
}

// Get handles GET /appointments/{appointmentID}: the booking summary shown
// on the success page.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, `{"error":"invalid appointment id"}`, http.StatusBadRequest)
		return
	}

	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(newBookingResponse(a))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case errors.Is(err, ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "appointment not found"})
	case errors.Is(err, ErrInvalidSchedule):
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "appointment time must be in the future",
			"field": "appointment_time",
		})
	case errors.Is(err, ErrProviderInactive):
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "this provider is not currently accepting appointments",
			"field": "provider_id",
		})
	case errors.Is(err, ErrValidation):
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	case errors.Is(err, providers.ErrNotFound):
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "unknown provider",
			"field": "provider_id",
		})
	default:
		h.logger.Error("appointment request failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
	}
}

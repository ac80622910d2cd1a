package payments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sofiahealth/appointments-api/internal/appointments"
	"github.com/sofiahealth/appointments-api/pkg/logging"
)

// Handler serves the checkout and confirmation endpoints.
type Handler struct {
	service        *Service
	publishableKey string
	secretKey      string
	logger         *logging.Logger
}

// NewHandler creates a payments handler. The secret key is only inspected
// by the diagnostic endpoint, never returned.
func NewHandler(service *Service, publishableKey, secretKey string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, publishableKey: publishableKey, secretKey: secretKey, logger: logger}
}

type intentView struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	AmountCents  int64  `json:"amount_cents"`
}

type paymentPageResponse struct {
	AppointmentID  string      `json:"appointment_id"`
	ProviderName   string      `json:"provider_name"`
	AmountCents    int64       `json:"amount_cents"`
	IsPaid         bool        `json:"is_paid"`
	PublishableKey string      `json:"publishable_key,omitempty"`
	Intent         *intentView `json:"intent,omitempty"`
}

// GetPayment handles GET /appointments/{appointmentID}/payment. It creates
// the payment intent on first visit and reuses it afterwards. Paid
// appointments come back with is_paid set and no intent.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, `{"error":"invalid appointment id"}`, http.StatusBadRequest)
		return
	}

	state, err := h.service.EnsureIntent(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := paymentPageResponse{
		AppointmentID: state.Appointment.ID.String(),
		ProviderName:  state.Appointment.ProviderName,
		AmountCents:   state.Appointment.AmountCents,
		IsPaid:        state.Appointment.IsPaid,
	}
	if state.Intent != nil {
		resp.PublishableKey = h.publishableKey
		resp.Intent = &intentView{
			ID:           state.Intent.ID,
			ClientSecret: state.Intent.ClientSecret,
			Status:       state.Intent.Status,
			AmountCents:  state.Intent.AmountCents,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type confirmResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	IsPaid        bool   `json:"is_paid"`
}

// Confirm handles POST /appointments/{appointmentID}/confirm, the return
// leg of the checkout redirect. The gateway decides; the redirect does not.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, `{"error":"invalid appointment id"}`, http.StatusBadRequest)
		return
	}

	a, err := h.service.Confirm(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(confirmResponse{
		AppointmentID: a.ID.String(),
		Status:        a.Status(time.Now().UTC()),
		IsPaid:        a.IsPaid,
	})
}

// StripeStatus handles GET /payments/stripe-status, a deploy-time check
// that the configured keys are present and of the expected mode.
func (h *Handler) StripeStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"secret_key_configured":      h.secretKey != "",
		"publishable_key_configured": h.publishableKey != "",
	}
	switch {
	case strings.HasPrefix(h.secretKey, "sk_test_"):
		status["mode"] = "test"
	case strings.HasPrefix(h.secretKey, "sk_live_"):
		status["mode"] = "live"
	case h.secretKey != "":
		status["mode"] = "unknown"
	}
	if h.secretKey != "" {
		status["secret_key_prefix"] = maskKey(h.secretKey)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// maskKey keeps enough of the key to recognize which one is deployed.
func maskKey(key string) string {
	if len(key) <= 12 {
		return "****"
	}
	return key[:12] + "..."
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case errors.Is(err, appointments.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "appointment not found"})
	case errors.Is(err, ErrNoPaymentIntent):
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no payment has been started for this appointment"})
	case errors.Is(err, ErrPaymentNotSucceeded):
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "payment has not completed; please finish checkout"})
	default:
		h.logger.Error("payment request failed", "error", err)
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "payment service unavailable"})
	}
}

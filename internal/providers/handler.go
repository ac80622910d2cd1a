package providers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sofiahealth/appointments-api/pkg/logging"
)

// Handler serves public provider listings and the admin provider CRUD.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a providers handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// providerPricing is the public view of a bookable provider.
type providerPricing struct {
	ID                     uuid.UUID `json:"id"`
	Name                   string    `json:"name"`
	Specialty              string    `json:"specialty"`
	ConsultationPriceCents int64     `json:"consultation_price_cents"`
	FollowUpPriceCents     int64     `json:"follow_up_price_cents"`
}

// ListActive handles GET /providers: active providers with per-type pricing,
// the data the booking form needs to show dynamic prices.
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	active, err := h.repo.ListActive(r.Context())
	if err != nil {
		h.logger.Error("failed to list active providers", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	out := make([]providerPricing, 0, len(active))
	for _, p := range active {
		out = append(out, providerPricing{
			ID:                     p.ID,
			Name:                   p.Name,
			Specialty:              p.Specialty.Display(),
			ConsultationPriceCents: p.ConsultationPriceCents,
			FollowUpPriceCents:     p.FollowUpPriceCents,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"providers": out, "count": len(out)})
}

// upsertProviderRequest is the admin create/update payload.
type upsertProviderRequest struct {
	Name                   string `json:"name"`
	Specialty              string `json:"specialty"`
	Email                  string `json:"email"`
	Phone                  string `json:"phone"`
	ConsultationPriceCents int64  `json:"consultation_price_cents"`
	FollowUpPriceCents     int64  `json:"follow_up_price_cents"`
	IsActive               *bool  `json:"is_active"`
	Bio                    string `json:"bio"`
}

func (req *upsertProviderRequest) toProvider() *Provider {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	spec := req.Specialty
	if spec == "" {
		spec = string(SpecialtyGeneral)
	}
	return &Provider{
		Name:                   req.Name,
		Specialty:              Specialty(spec),
		Email:                  req.Email,
		Phone:                  req.Phone,
		ConsultationPriceCents: req.ConsultationPriceCents,
		FollowUpPriceCents:     req.FollowUpPriceCents,
		IsActive:               active,
		Bio:                    req.Bio,
	}
}

// Create handles POST /admin/providers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req upsertProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	created, err := h.repo.Create(r.Context(), req.toProvider())
	if err != nil {
		h.logger.Error("failed to create provider", "error", err)
		writeProviderError(w, err)
		return
	}

	h.logger.Info("provider created", "id", created.ID, "name", created.Name)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(created)
}

// Get handles GET /admin/providers/{providerID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		http.Error(w, `{"error":"invalid provider id"}`, http.StatusBadRequest)
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeProviderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p)
}

// Update handles PUT /admin/providers/{providerID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		http.Error(w, `{"error":"invalid provider id"}`, http.StatusBadRequest)
		return
	}

	var req upsertProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	p := req.toProvider()
	p.ID = id
	updated, err := h.repo.Update(r.Context(), p)
	if err != nil {
		h.logger.Error("failed to update provider", "error", err, "id", id)
		writeProviderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(updated)
}

// Deactivate handles DELETE /admin/providers/{providerID}. Providers are
// never hard-deleted; this retires them from the public listing.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		http.Error(w, `{"error":"invalid provider id"}`, http.StatusBadRequest)
		return
	}

	if err := h.repo.Deactivate(r.Context(), id); err != nil {
		h.logger.Error("failed to deactivate provider", "error", err, "id", id)
		writeProviderError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /admin/providers with filter and search query params.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Search: q.Get("search"),
		Limit:  50,
	}
	if q.Get("active") == "true" {
		filter.ActiveOnly = true
	}
	if spec := q.Get("specialty"); spec != "" {
		filter.Specialty = Specialty(spec)
	}
	if raw := q.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list providers", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"providers": list,
		"count":     len(list),
		"offset":    filter.Offset,
		"limit":     filter.Limit,
	})
}

func writeProviderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, `{"error":"provider not found"}`, http.StatusNotFound)
	default:
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusUnprocessableEntity)
	}
}

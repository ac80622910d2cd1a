package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sofiahealth/appointments-api/internal/admin"
	"github.com/sofiahealth/appointments-api/internal/appointments"
	"github.com/sofiahealth/appointments-api/internal/calendar"
	httpmiddleware "github.com/sofiahealth/appointments-api/internal/http/middleware"
	"github.com/sofiahealth/appointments-api/internal/payments"
	"github.com/sofiahealth/appointments-api/internal/providers"
	"github.com/sofiahealth/appointments-api/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	ProvidersHandler    *providers.Handler
	AppointmentsHandler *appointments.Handler
	PaymentsHandler     *payments.Handler
	CalendarHandler     *calendar.Handler
	AdminHandler        *admin.Handler
	MetricsHandler      http.Handler
	AdminAuthSecret     string
	CORSAllowedOrigins  []string

	// BookingRateLimit throttles the public booking endpoint per IP,
	// requests per second. Zero disables the limiter.
	BookingRateLimit float64
	BookingRateBurst int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		public.Get("/providers", cfg.ProvidersHandler.ListActive)

		public.Route("/appointments", func(r chi.Router) {
			if cfg.BookingRateLimit > 0 {
				r.With(httpmiddleware.RateLimit(cfg.BookingRateLimit, cfg.BookingRateBurst)).
					Post("/", cfg.AppointmentsHandler.Create)
			} else {
				r.Post("/", cfg.AppointmentsHandler.Create)
			}
			r.Get("/{appointmentID}", cfg.AppointmentsHandler.Get)
			r.Get("/{appointmentID}/payment", cfg.PaymentsHandler.GetPayment)
			r.Post("/{appointmentID}/confirm", cfg.PaymentsHandler.Confirm)
			r.Get("/{appointmentID}/calendar/connect", cfg.CalendarHandler.Connect)
			r.Get("/{appointmentID}/calendar.ics", cfg.CalendarHandler.DownloadICS)
		})

		public.Get("/calendar/callback", cfg.CalendarHandler.Callback)
		public.Get("/payments/stripe-status", cfg.PaymentsHandler.StripeStatus)
	})

	// Admin endpoints behind JWT auth.
	r.Route("/admin", func(r chi.Router) {
		r.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))

		r.Get("/dashboard", cfg.AdminHandler.GetDashboard)

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", cfg.AdminHandler.ListAppointments)
			r.Post("/{appointmentID}/cancel", cfg.AdminHandler.CancelAppointment)
			r.Post("/{appointmentID}/calendar/refresh", cfg.AdminHandler.RefreshCalendar)
		})

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", cfg.ProvidersHandler.List)
			r.Post("/", cfg.ProvidersHandler.Create)
			r.Get("/{providerID}", cfg.ProvidersHandler.Get)
			r.Put("/{providerID}", cfg.ProvidersHandler.Update)
			r.Delete("/{providerID}", cfg.ProvidersHandler.Deactivate)
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

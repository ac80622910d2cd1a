package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"

	"github.com/sofiahealth/appointments-api/internal/admin"
	"github.com/sofiahealth/appointments-api/internal/appointments"
	"github.com/sofiahealth/appointments-api/internal/calendar"
	"github.com/sofiahealth/appointments-api/internal/notify"
	"github.com/sofiahealth/appointments-api/internal/payments"
	"github.com/sofiahealth/appointments-api/internal/providers"
)

func newTestRouter(t *testing.T) (http.Handler, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	providerRepo := providers.NewRepositoryWithDB(mock)
	apptRepo := appointments.NewRepositoryWithDB(mock)
	apptService := appointments.NewService(apptRepo, providerRepo, appointments.FallbackPricing{ConsultationCents: 5000, FollowUpCents: 3000}, nil, nil)

	notifier := notify.NewService(notify.NewStubEmailSender(nil), notify.Config{}, nil)
	stripe := payments.NewStripeClient("sk_test_x", nil)
	paymentService := payments.NewService(apptRepo, stripe, notifier, nil, nil)

	calendarService := calendar.NewService(
		calendar.Config{ClientID: "id", ClientSecret: "secret", RedirectURI: "https://example.com/cb"},
		apptRepo,
		calendar.NewStateStore(redisClient),
		calendar.NewCredentialStoreWithDB(mock),
		calendar.NewGoogleEvents(nil, nil),
		nil, nil,
	)

	dashboard := admin.NewDashboardRepositoryWithDB(mock, apptRepo)

	handler := New(&Config{
		ProvidersHandler:    providers.NewHandler(providerRepo, nil),
		AppointmentsHandler: appointments.NewHandler(apptService, nil),
		PaymentsHandler:     payments.NewHandler(paymentService, "pk_test_x", "sk_test_x", nil),
		CalendarHandler:     calendar.NewHandler(calendarService, apptRepo, nil),
		AdminHandler:        admin.NewHandler(dashboard, apptRepo, notifier, calendarService, nil),
		AdminAuthSecret:     "admin-secret",
	})
	return handler, mock
}

func TestRouter_Health(t *testing.T) {
	handler, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
}

func TestRouter_AdminRequiresAuth(t *testing.T) {
	handler, _ := newTestRouter(t)

	for _, path := range []string{"/admin/dashboard", "/admin/appointments", "/admin/providers"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token = %d, want 401", path, rec.Code)
		}
	}
}

func TestRouter_PublicProviders(t *testing.T) {
	handler, mock := newTestRouter(t)

	mock.ExpectQuery("SELECT .+ FROM providers").
		WithArgs(100).
		WillReturnRows(mock.NewRows([]string{
			"id", "name", "specialty", "email", "phone",
			"consultation_price_cents", "follow_up_price_cents",
			"is_active", "bio", "created_at", "updated_at",
		}))

	req := httptest.NewRequest(http.MethodGet, "/providers", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("providers = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_StripeStatus(t *testing.T) {
	handler, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/payments/stripe-status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("stripe-status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"mode":"test"`) {
		t.Errorf("expected test mode in %s", body)
	}
}

package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofiahealth/appointments-api/internal/appointments"
	"github.com/sofiahealth/appointments-api/internal/calendar"
)

type stubNotifier struct {
	cancellations int
	lastReason    string
	err           error
}

func (s *stubNotifier) SendCancellation(ctx context.Context, a *appointments.Appointment, reason string) error {
	s.cancellations++
	s.lastReason = reason
	return s.err
}

type stubCalendarManager struct {
	refreshes  int
	removes    int
	refreshErr error
	removeErr  error
}

func (s *stubCalendarManager) RefreshEvent(ctx context.Context, appointmentID uuid.UUID) error {
	s.refreshes++
	return s.refreshErr
}

func (s *stubCalendarManager) RemoveEvent(ctx context.Context, appointmentID uuid.UUID) error {
	s.removes++
	return s.removeErr
}

func withAppointmentParam(req *http.Request, id uuid.UUID) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("appointmentID", id.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func newAdminHandler(t *testing.T) (*Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	apptRepo := appointments.NewRepositoryWithDB(mock)
	return NewHandler(NewDashboardRepositoryWithDB(mock, apptRepo), apptRepo, nil, nil, nil), mock
}

func TestListAppointments_Filters(t *testing.T) {
	handler, mock := newAdminHandler(t)

	mock.ExpectQuery("SELECT .+ FROM appointments").
		WithArgs(true, "consultation", 50).
		WillReturnRows(appointmentRow(mock, time.Now().UTC().Add(time.Hour)))

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments?paid=true&type=consultation", nil)
	rec := httptest.NewRecorder()
	handler.ListAppointments(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"count":1`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppointments_InvalidBoolParam(t *testing.T) {
	handler, _ := newAdminHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments?paid=maybe", nil)
	rec := httptest.NewRecorder()
	handler.ListAppointments(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAppointments_InvalidTimeParam(t *testing.T) {
	handler, _ := newAdminHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments?from=tomorrow", nil)
	rec := httptest.NewRecorder()
	handler.ListAppointments(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelAppointment_NotifiesAndRemovesEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	apptRepo := appointments.NewRepositoryWithDB(mock)
	notifier := &stubNotifier{}
	cal := &stubCalendarManager{}
	handler := NewHandler(NewDashboardRepositoryWithDB(mock, apptRepo), apptRepo, notifier, cal, nil)

	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM appointments").
		WithArgs(id).
		WillReturnRows(mock.NewRows(appointmentCols).AddRow(
			id, (*uuid.UUID)(nil), "Dr. Ada",
			now.Add(48*time.Hour), "patient@example.com", "consultation", "",
			int64(5000), true, "pi_1",
			true, false,
			true, "evt_1",
			now, now,
		))

	req := httptest.NewRequest(http.MethodPost, "/admin/appointments/"+id.String()+"/cancel",
		strings.NewReader(`{"reason":"provider unavailable"}`))
	rec := httptest.NewRecorder()
	handler.CancelAppointment(rec, withAppointmentParam(req, id))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, notifier.cancellations)
	assert.Equal(t, "provider unavailable", notifier.lastReason)
	assert.Equal(t, 1, cal.removes)
	assert.Contains(t, rec.Body.String(), `"cancellation_sent":true`)
	assert.Contains(t, rec.Body.String(), `"calendar_event_removed":true`)
}

func TestCancelAppointment_UnsyncedSkipsCalendar(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	apptRepo := appointments.NewRepositoryWithDB(mock)
	notifier := &stubNotifier{}
	cal := &stubCalendarManager{}
	handler := NewHandler(NewDashboardRepositoryWithDB(mock, apptRepo), apptRepo, notifier, cal, nil)

	id := uuid.New()
	mock.ExpectQuery("SELECT .+ FROM appointments").
		WithArgs(id).
		WillReturnRows(appointmentRow(mock, time.Now().UTC().Add(time.Hour)))

	req := httptest.NewRequest(http.MethodPost, "/admin/appointments/"+id.String()+"/cancel", nil)
	rec := httptest.NewRecorder()
	handler.CancelAppointment(rec, withAppointmentParam(req, id))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, notifier.cancellations)
	assert.Equal(t, 0, cal.removes)
}

func TestRefreshCalendar_NotSynced(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	apptRepo := appointments.NewRepositoryWithDB(mock)
	cal := &stubCalendarManager{refreshErr: calendar.ErrNotSynced}
	handler := NewHandler(NewDashboardRepositoryWithDB(mock, apptRepo), apptRepo, nil, cal, nil)

	id := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/admin/appointments/"+id.String()+"/calendar/refresh", nil)
	rec := httptest.NewRecorder()
	handler.RefreshCalendar(rec, withAppointmentParam(req, id))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, cal.refreshes)
}

func TestListAppointments_EmptyResultIsAnArray(t *testing.T) {
	handler, mock := newAdminHandler(t)

	mock.ExpectQuery("SELECT .+ FROM appointments").
		WithArgs(50).
		WillReturnRows(mock.NewRows(appointmentCols))

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	rec := httptest.NewRecorder()
	handler.ListAppointments(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"appointments":[]`)
}

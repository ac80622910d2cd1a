package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/sofiahealth/appointments-api/internal/appointments"
)

type stubGateway struct {
	createCalls   int
	retrieveCalls int
	created       *Intent
	retrieved     map[string]*Intent
	err           error
	lastParams    CreateIntentParams
}

func (g *stubGateway) CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error) {
	g.createCalls++
	g.lastParams = params
	if g.err != nil {
		return nil, g.err
	}
	return g.created, nil
}

func (g *stubGateway) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	g.retrieveCalls++
	if g.err != nil {
		return nil, g.err
	}
	intent, ok := g.retrieved[intentID]
	if !ok {
		return nil, errors.New("no such intent")
	}
	return intent, nil
}

type stubNotifier struct {
	confirmations   int
	providerNotices int
	confirmErr      error
}

func (n *stubNotifier) SendConfirmation(ctx context.Context, a *appointments.Appointment) error {
	n.confirmations++
	return n.confirmErr
}

func (n *stubNotifier) NotifyProvider(ctx context.Context, a *appointments.Appointment) error {
	n.providerNotices++
	return nil
}

var appointmentCols = []string{
	"id", "provider_id", "provider_name",
	"appointment_time", "client_email", "appointment_type", "notes",
	"amount_cents", "is_paid", "payment_intent_id",
	"confirmation_sent", "reminder_sent",
	"calendar_synced", "calendar_event_id",
	"created_at", "updated_at",
}

func expectLoad(mock pgxmock.PgxPoolIface, id uuid.UUID, paid bool, intentID string) {
	now := time.Now().UTC()
	rows := mock.NewRows(appointmentCols).AddRow(
		id, (*uuid.UUID)(nil), "Dr. A",
		now.Add(24*time.Hour), "patient@example.com", "consultation", "",
		int64(5000), paid, intentID,
		false, false,
		false, "",
		now, now,
	)
	mock.ExpectQuery("SELECT .+ FROM appointments").
		WithArgs(id).
		WillReturnRows(rows)
}

func newPaymentService(t *testing.T, gateway Gateway, notifier Notifier) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewService(appointments.NewRepositoryWithDB(mock), gateway, notifier, nil, nil), mock
}

func TestEnsureIntent_ReusesStoredIntent(t *testing.T) {
	id := uuid.New()
	gateway := &stubGateway{retrieved: map[string]*Intent{
		"pi_1": {ID: "pi_1", ClientSecret: "cs_1", Status: "requires_payment_method", AmountCents: 5000},
	}}
	svc, mock := newPaymentService(t, gateway, nil)
	expectLoad(mock, id, false, "pi_1")

	state, err := svc.EnsureIntent(context.Background(), id)
	if err != nil {
		t.Fatalf("EnsureIntent: %v", err)
	}
	if gateway.createCalls != 0 {
		t.Error("stored intent must be reused, not recreated")
	}
	if state.Intent == nil || state.Intent.ID != "pi_1" {
		t.Errorf("unexpected intent: %+v", state.Intent)
	}
}

func TestEnsureIntent_CreatesAndStores(t *testing.T) {
	id := uuid.New()
	gateway := &stubGateway{created: &Intent{ID: "pi_new", ClientSecret: "cs_new", Status: "requires_payment_method"}}
	svc, mock := newPaymentService(t, gateway, nil)
	expectLoad(mock, id, false, "")
	mock.ExpectExec("UPDATE appointments").
		WithArgs(id, "pi_new").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	state, err := svc.EnsureIntent(context.Background(), id)
	if err != nil {
		t.Fatalf("EnsureIntent: %v", err)
	}
	if gateway.createCalls != 1 {
		t.Errorf("createCalls = %d", gateway.createCalls)
	}
	if state.Intent.ID != "pi_new" {
		t.Errorf("intent = %+v", state.Intent)
	}
	if state.Appointment.PaymentIntentID != "pi_new" {
		t.Error("appointment should carry the new intent reference")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEnsureIntent_TagsIntentMetadata(t *testing.T) {
	id := uuid.New()
	gateway := &stubGateway{created: &Intent{ID: "pi_new", Status: "requires_payment_method"}}
	svc, mock := newPaymentService(t, gateway, nil)
	expectLoad(mock, id, false, "")
	mock.ExpectExec("UPDATE appointments").
		WithArgs(id, "pi_new").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if _, err := svc.EnsureIntent(context.Background(), id); err != nil {
		t.Fatalf("EnsureIntent: %v", err)
	}

	want := map[string]string{
		"appointment_id":   id.String(),
		"client_email":     "patient@example.com",
		"provider":         "Dr. A",
		"appointment_type": "consultation",
	}
	for key, value := range want {
		if got := gateway.lastParams.Metadata[key]; got != value {
			t.Errorf("metadata[%s] = %q, want %q", key, got, value)
		}
	}
}

func TestEnsureIntent_AlreadyPaid(t *testing.T) {
	id := uuid.New()
	gateway := &stubGateway{}
	svc, mock := newPaymentService(t, gateway, nil)
	expectLoad(mock, id, true, "pi_1")

	state, err := svc.EnsureIntent(context.Background(), id)
	if err != nil {
		t.Fatalf("EnsureIntent: %v", err)
	}
	if state.Intent != nil {
		t.Error("paid appointment should not expose an intent")
	}
	if gateway.createCalls != 0 || gateway.retrieveCalls != 0 {
		t.Error("paid appointment must not touch the gateway")
	}
}

func TestEnsureIntent_ConcurrentCreateLosesGracefully(t *testing.T) {
	id := uuid.New()
	gateway := &stubGateway{
		created: &Intent{ID: "pi_loser", Status: "requires_payment_method"},
		retrieved: map[string]*Intent{
			"pi_winner": {ID: "pi_winner", ClientSecret: "cs_w", Status: "requires_payment_method"},
		},
	}
	svc, mock := newPaymentService(t, gateway, nil)
	expectLoad(mock, id, false, "")
	mock.ExpectExec("UPDATE appointments").
		WithArgs(id, "pi_loser").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	expectLoad(mock, id, false, "pi_winner")

	state, err := svc.EnsureIntent(context.Background(), id)
	if err != nil {
		t.Fatalf("EnsureIntent: %v", err)
	}
	if state.Intent.ID != "pi_winner" {
		t.Errorf("should serve the stored intent, got %s", state.Intent.ID)
	}
}

func TestConfirm_RejectsUnsettledIntent(t *testing.T) {
	id := uuid.New()
	gateway := &stubGateway{retrieved: map[string]*Intent{
		"pi_1": {ID: "pi_1", Status: "requires_payment_method"},
	}}
	notifier := &stubNotifier{}
	svc, mock := newPaymentService(t, gateway, notifier)
	expectLoad(mock, id, false, "pi_1")

	_, err := svc.Confirm(context.Background(), id)
	if !errors.Is(err, ErrPaymentNotSucceeded) {
		t.Fatalf("expected ErrPaymentNotSucceeded, got %v", err)
	}
	if notifier.confirmations != 0 {
		t.Error("no emails on a rejected confirm")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("appointment must stay unpaid: %v", err)
	}
}

func TestConfirm_SucceededIntentMarksPaidAndNotifies(t *testing.T) {
	id := uuid.New()
	gateway := &stubGateway{retrieved: map[string]*Intent{
		"pi_1": {ID: "pi_1", Status: "succeeded"},
	}}
	notifier := &stubNotifier{}
	svc, mock := newPaymentService(t, gateway, notifier)
	expectLoad(mock, id, false, "pi_1")
	mock.ExpectExec("UPDATE appointments").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	// MarkConfirmationSent after the email goes out.
	mock.ExpectExec("UPDATE appointments").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	a, err := svc.Confirm(context.Background(), id)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !a.IsPaid {
		t.Error("appointment should be paid")
	}
	if !a.ConfirmationSent {
		t.Error("confirmation flag should be set after the email sends")
	}
	if notifier.confirmations != 1 || notifier.providerNotices != 1 {
		t.Errorf("emails = %d/%d, want 1/1", notifier.confirmations, notifier.providerNotices)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConfirm_EmailFailureDoesNotFailConfirm(t *testing.T) {
	id := uuid.New()
	gateway := &stubGateway{retrieved: map[string]*Intent{
		"pi_1": {ID: "pi_1", Status: "succeeded"},
	}}
	notifier := &stubNotifier{confirmErr: errors.New("smtp down")}
	svc, mock := newPaymentService(t, gateway, notifier)
	expectLoad(mock, id, false, "pi_1")
	mock.ExpectExec("UPDATE appointments").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	a, err := svc.Confirm(context.Background(), id)
	if err != nil {
		t.Fatalf("Confirm should succeed despite email failure: %v", err)
	}
	if !a.IsPaid {
		t.Error("appointment should be paid")
	}
	if a.ConfirmationSent {
		t.Error("confirmation flag must stay false when the send failed")
	}
}

func TestConfirm_IdempotentWhenAlreadyPaid(t *testing.T) {
	id := uuid.New()
	gateway := &stubGateway{}
	notifier := &stubNotifier{}
	svc, mock := newPaymentService(t, gateway, notifier)
	expectLoad(mock, id, true, "pi_1")

	a, err := svc.Confirm(context.Background(), id)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !a.IsPaid {
		t.Error("appointment should stay paid")
	}
	if gateway.retrieveCalls != 0 || notifier.confirmations != 0 {
		t.Error("re-confirm must not hit the gateway or resend emails")
	}
}

func TestConfirm_NoIntent(t *testing.T) {
	id := uuid.New()
	svc, mock := newPaymentService(t, &stubGateway{}, &stubNotifier{})
	expectLoad(mock, id, false, "")

	_, err := svc.Confirm(context.Background(), id)
	if !errors.Is(err, ErrNoPaymentIntent) {
		t.Fatalf("expected ErrNoPaymentIntent, got %v", err)
	}
}

func TestConfirm_LostRaceSendsNothing(t *testing.T) {
	id := uuid.New()
	gateway := &stubGateway{retrieved: map[string]*Intent{
		"pi_1": {ID: "pi_1", Status: "succeeded"},
	}}
	notifier := &stubNotifier{}
	svc, mock := newPaymentService(t, gateway, notifier)
	expectLoad(mock, id, false, "pi_1")
	mock.ExpectExec("UPDATE appointments").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	a, err := svc.Confirm(context.Background(), id)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !a.IsPaid {
		t.Error("losing confirm still reports the paid state")
	}
	if notifier.confirmations != 0 || notifier.providerNotices != 0 {
		t.Error("only the winning confirm owns the notifications")
	}
}

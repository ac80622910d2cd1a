package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sofiahealth/appointments-api/internal/appointments"
	"github.com/sofiahealth/appointments-api/internal/observability/metrics"
	"github.com/sofiahealth/appointments-api/pkg/logging"
)

var (
	// ErrNoPaymentIntent means confirmation was requested before any
	// payment intent was created for the appointment.
	ErrNoPaymentIntent = errors.New("payments: appointment has no payment intent")

	// ErrPaymentNotSucceeded means the gateway reports the intent in a
	// non-terminal state; the appointment stays unpaid.
	ErrPaymentNotSucceeded = errors.New("payments: payment has not succeeded")
)

// Gateway is the payment provider surface the service needs.
type Gateway interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
}

// Notifier sends the post-payment emails. Failures are logged, never
// surfaced to the client; the payment itself already went through.
type Notifier interface {
	SendConfirmation(ctx context.Context, a *appointments.Appointment) error
	NotifyProvider(ctx context.Context, a *appointments.Appointment) error
}

// Service owns the payment lifecycle of an appointment: one intent per
// booking, and the unpaid-to-paid transition gated on the gateway.
type Service struct {
	repo     *appointments.Repository
	gateway  Gateway
	notifier Notifier
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

// NewService creates the payment service.
func NewService(repo *appointments.Repository, gateway Gateway, notifier Notifier, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, gateway: gateway, notifier: notifier, metrics: m, logger: logger}
}

// PaymentState is what the payment page needs to render or skip checkout.
type PaymentState struct {
	Appointment *appointments.Appointment
	Intent      *Intent
}

// EnsureIntent returns the appointment's payment intent, creating it on
// first use. An appointment keeps a single intent for its whole life; a
// stored reference is reused even when an abandoned checkout left the
// intent incomplete. Already-paid appointments return with a nil Intent.
func (s *Service) EnsureIntent(ctx context.Context, appointmentID uuid.UUID) (*PaymentState, error) {
	a, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.IsPaid {
		return &PaymentState{Appointment: a}, nil
	}

	if a.PaymentIntentID != "" {
		intent, err := s.retrieveIntent(ctx, a.PaymentIntentID)
		if err != nil {
			return nil, err
		}
		return &PaymentState{Appointment: a, Intent: intent}, nil
	}

	intent, err := s.createIntent(ctx, a)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.SetPaymentIntent(ctx, a.ID, intent.ID)
	if err != nil {
		return nil, err
	}
	if !stored {
		// A concurrent request won the write-once slot. Serve its intent;
		// ours stays unreferenced on the gateway and is never charged.
		s.logger.Warn("discarding losing payment intent", "appointment_id", a.ID, "intent_id", intent.ID)
		a, err = s.repo.GetByID(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		intent, err = s.retrieveIntent(ctx, a.PaymentIntentID)
		if err != nil {
			return nil, err
		}
		return &PaymentState{Appointment: a, Intent: intent}, nil
	}

	a.PaymentIntentID = intent.ID
	return &PaymentState{Appointment: a, Intent: intent}, nil
}

// Confirm verifies the payment with the gateway and flips the appointment
// to paid. Only a gateway-reported "succeeded" intent confirms; client
// redirects alone never do. Re-confirming a paid appointment is a no-op
// success and sends nothing.
func (s *Service) Confirm(ctx context.Context, appointmentID uuid.UUID) (*appointments.Appointment, error) {
	a, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.IsPaid {
		return a, nil
	}
	if a.PaymentIntentID == "" {
		s.metrics.ObservePaymentConfirmation("no_intent")
		return nil, ErrNoPaymentIntent
	}

	intent, err := s.retrieveIntent(ctx, a.PaymentIntentID)
	if err != nil {
		s.metrics.ObservePaymentConfirmation("gateway_error")
		return nil, err
	}
	if intent.Status != "succeeded" {
		s.metrics.ObservePaymentConfirmation("not_succeeded")
		s.logger.Info("confirm rejected: intent not succeeded",
			"appointment_id", a.ID, "intent_id", intent.ID, "status", intent.Status)
		return nil, fmt.Errorf("%w: status %q", ErrPaymentNotSucceeded, intent.Status)
	}

	transitioned, err := s.repo.MarkPaid(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.IsPaid = true
	s.metrics.ObservePaymentConfirmation("succeeded")

	// Exactly one confirm wins the transition and owns the notifications.
	if transitioned {
		s.sendPaymentEmails(ctx, a)
	}
	return a, nil
}

func (s *Service) sendPaymentEmails(ctx context.Context, a *appointments.Appointment) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendConfirmation(ctx, a); err != nil {
		s.metrics.ObserveEmail("confirmation", "failed")
		s.logger.Error("confirmation email failed", "appointment_id", a.ID, "error", err)
	} else {
		s.metrics.ObserveEmail("confirmation", "sent")
		if err := s.repo.MarkConfirmationSent(ctx, a.ID); err != nil {
			s.logger.Error("mark confirmation sent failed", "appointment_id", a.ID, "error", err)
		} else {
			a.ConfirmationSent = true
		}
	}
	if err := s.notifier.NotifyProvider(ctx, a); err != nil {
		s.metrics.ObserveEmail("provider_notice", "failed")
		s.logger.Error("provider notice failed", "appointment_id", a.ID, "error", err)
	} else {
		s.metrics.ObserveEmail("provider_notice", "sent")
	}
}

func (s *Service) createIntent(ctx context.Context, a *appointments.Appointment) (*Intent, error) {
	started := time.Now()
	intent, err := s.gateway.CreateIntent(ctx, CreateIntentParams{
		AmountCents: a.AmountCents,
		Description: fmt.Sprintf("%s with %s", a.AppointmentType.Display(), a.ProviderName),
		Metadata: map[string]string{
			"appointment_id":   a.ID.String(),
			"client_email":     a.ClientEmail,
			"provider":         a.ProviderName,
			"appointment_type": string(a.AppointmentType),
		},
	})
	s.metrics.ObserveStripeLatency("create_intent", time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment intent created",
		"appointment_id", a.ID, "intent_id", intent.ID, "amount_cents", a.AmountCents)
	return intent, nil
}

func (s *Service) retrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	started := time.Now()
	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	s.metrics.ObserveStripeLatency("retrieve_intent", time.Since(started).Seconds())
	return intent, err
}

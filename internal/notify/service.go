package notify

import (
	"context"
	"fmt"

	"github.com/sofiahealth/appointments-api/internal/appointments"
	"github.com/sofiahealth/appointments-api/pkg/logging"
)

// Service composes and sends the appointment lifecycle emails.
type Service struct {
	email         EmailSender
	supportEmail  string
	providerEmail string
	logger        *logging.Logger
}

// Config holds the addresses the service writes to and from.
type Config struct {
	// SupportEmail is shown to clients as the reply address.
	SupportEmail string
	// ProviderEmail receives the new-booking notices.
	ProviderEmail string
}

// NewService creates a notification service.
func NewService(email EmailSender, cfg Config, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:         email,
		supportEmail:  cfg.SupportEmail,
		providerEmail: cfg.ProviderEmail,
		logger:        logger,
	}
}

const (
	longTimeFormat = "Monday, January 2, 2006 at 3:04 PM MST"
)

func dollars(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}

// SendConfirmation emails the client after their payment settles.
func (s *Service) SendConfirmation(ctx context.Context, a *appointments.Appointment) error {
	if s.email == nil {
		return fmt.Errorf("notify: email sender not configured")
	}

	when := a.AppointmentTime.Format(longTimeFormat)
	subject := "Your Sofia Health appointment is confirmed"
	body := fmt.Sprintf(`Your appointment is confirmed!

Provider: %s
Type: %s
Date and time: %s
Amount paid: %s

We look forward to seeing you. If you need to reschedule, reply to this
email or contact us at %s.

- The Sofia Health Team`,
		a.ProviderName, a.AppointmentType.Display(), when, dollars(a.AmountCents), s.supportEmail)

	html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #2563eb;">Appointment Confirmed</h2>
<p>Thank you for booking with Sofia Health. Your payment has been received.</p>
<table style="border-collapse: collapse; margin: 20px 0;">
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Provider:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Type:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>When:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Amount paid:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
</table>
<p style="color: #6b7280; font-size: 12px;">Questions? Contact us at %s.</p>
</div>`,
		a.ProviderName, a.AppointmentType.Display(), when, dollars(a.AmountCents), s.supportEmail)

	err := s.email.Send(ctx, EmailMessage{
		To:      a.ClientEmail,
		Subject: subject,
		Body:    body,
		HTML:    html,
	})
	if err != nil {
		return err
	}
	s.logger.Info("confirmation email sent", "appointment_id", a.ID, "to", a.ClientEmail)
	return nil
}

// SendReminder emails the client ahead of an upcoming paid appointment.
func (s *Service) SendReminder(ctx context.Context, a *appointments.Appointment) error {
	if s.email == nil {
		return fmt.Errorf("notify: email sender not configured")
	}

	when := a.AppointmentTime.Format(longTimeFormat)
	subject := "Reminder: your Sofia Health appointment is coming up"
	body := fmt.Sprintf(`This is a reminder of your upcoming appointment.

Provider: %s
Type: %s
Date and time: %s

If you need to reschedule, contact us at %s as soon as possible.

- The Sofia Health Team`,
		a.ProviderName, a.AppointmentType.Display(), when, s.supportEmail)

	html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #2563eb;">Appointment Reminder</h2>
<p>Your appointment is coming up:</p>
<p><strong>%s</strong> (%s)<br>%s</p>
<p style="color: #6b7280; font-size: 12px;">Need to reschedule? Contact us at %s as soon as possible.</p>
</div>`,
		a.ProviderName, a.AppointmentType.Display(), when, s.supportEmail)

	err := s.email.Send(ctx, EmailMessage{
		To:      a.ClientEmail,
		Subject: subject,
		Body:    body,
		HTML:    html,
	})
	if err != nil {
		return err
	}
	s.logger.Info("reminder email sent", "appointment_id", a.ID, "to", a.ClientEmail)
	return nil
}

// SendCancellation emails the client when an appointment is cancelled.
func (s *Service) SendCancellation(ctx context.Context, a *appointments.Appointment, reason string) error {
	if s.email == nil {
		return fmt.Errorf("notify: email sender not configured")
	}

	when := a.AppointmentTime.Format(longTimeFormat)
	reasonLine := ""
	if reason != "" {
		reasonLine = fmt.Sprintf("\nReason: %s\n", reason)
	}
	body := fmt.Sprintf(`Your appointment has been cancelled.

Provider: %s
Date and time: %s
%s
If you paid for this appointment, a refund will be processed to your
original payment method. Contact us at %s with any questions.

- The Sofia Health Team`,
		a.ProviderName, when, reasonLine, s.supportEmail)

	reasonHTML := ""
	if reason != "" {
		reasonHTML = fmt.Sprintf("<p><strong>Reason:</strong> %s</p>", reason)
	}
	html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #dc2626;">Appointment Cancelled</h2>
<p>Your appointment with <strong>%s</strong> on %s has been cancelled.</p>
%s
<p>If you paid for this appointment, a refund will be processed to your original payment method.</p>
<p style="color: #6b7280; font-size: 12px;">Questions? Contact us at %s.</p>
</div>`,
		a.ProviderName, when, reasonHTML, s.supportEmail)

	err := s.email.Send(ctx, EmailMessage{
		To:      a.ClientEmail,
		Subject: "Your Sofia Health appointment has been cancelled",
		Body:    body,
		HTML:    html,
	})
	if err != nil {
		return err
	}
	s.logger.Info("cancellation email sent", "appointment_id", a.ID, "to", a.ClientEmail)
	return nil
}

// NotifyProvider emails the practice inbox about a newly paid booking.
func (s *Service) NotifyProvider(ctx context.Context, a *appointments.Appointment) error {
	if s.email == nil {
		return fmt.Errorf("notify: email sender not configured")
	}
	if s.providerEmail == "" {
		s.logger.Debug("provider notifications disabled: no address configured")
		return nil
	}

	when := a.AppointmentTime.Format(longTimeFormat)
	body := fmt.Sprintf(`A new appointment has been booked and paid.

Provider: %s
Client: %s
Type: %s
Date and time: %s
Amount: %s
Notes: %s`,
		a.ProviderName, a.ClientEmail, a.AppointmentType.Display(), when, dollars(a.AmountCents), a.Notes)

	html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #16a34a;">New Paid Booking</h2>
<table style="border-collapse: collapse; margin: 20px 0;">
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Provider:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Client:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Type:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>When:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Amount:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
</table>
<p>Notes: %s</p>
</div>`,
		a.ProviderName, a.ClientEmail, a.AppointmentType.Display(), when, dollars(a.AmountCents), a.Notes)

	err := s.email.Send(ctx, EmailMessage{
		To:      s.providerEmail,
		Subject: fmt.Sprintf("New appointment booked: %s", when),
		Body:    body,
		HTML:    html,
	})
	if err != nil {
		return err
	}
	s.logger.Info("provider notice sent", "appointment_id", a.ID, "to", s.providerEmail)
	return nil
}

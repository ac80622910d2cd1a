package notify

import (
	"context"
	"time"

	"github.com/sofiahealth/appointments-api/internal/appointments"
	"github.com/sofiahealth/appointments-api/internal/observability/metrics"
	"github.com/sofiahealth/appointments-api/pkg/logging"
)

// ReminderWorker periodically emails clients whose paid appointments fall
// within the reminder window. The reminder_sent flag is claimed with a
// compare-and-set before sending, so overlapping sweeps and multiple
// instances never double-send.
type ReminderWorker struct {
	repo     *appointments.Repository
	notifier *Service
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	interval time.Duration
	window   time.Duration
}

// NewReminderWorker creates a reminder worker.
func NewReminderWorker(repo *appointments.Repository, notifier *Service, m *metrics.BookingMetrics, logger *logging.Logger) *ReminderWorker {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReminderWorker{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		interval: 15 * time.Minute,
		window:   24 * time.Hour,
	}
}

// WithInterval sets the sweep interval.
func (w *ReminderWorker) WithInterval(interval time.Duration) *ReminderWorker {
	w.interval = interval
	return w
}

// WithWindow sets how far ahead of the appointment reminders go out.
func (w *ReminderWorker) WithWindow(window time.Duration) *ReminderWorker {
	w.window = window
	return w
}

// Start runs the reminder worker. Blocks until context is cancelled.
func (w *ReminderWorker) Start(ctx context.Context) {
	w.logger.Info("starting reminder worker",
		"interval", w.interval.String(),
		"window", w.window.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker shutting down")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep finds due appointments and sends their reminders.
func (w *ReminderWorker) sweep(ctx context.Context) {
	started := time.Now()
	defer func() {
		w.metrics.ObserveReminderSweep(time.Since(started).Seconds())
	}()

	due, err := w.repo.ListDueReminders(ctx, time.Now().UTC(), w.window)
	if err != nil {
		w.logger.Error("reminder sweep failed", "error", err)
		return
	}
	if len(due) == 0 {
		w.logger.Debug("no reminders due")
		return
	}

	w.logger.Info("sending due reminders", "count", len(due))

	for _, a := range due {
		if err := w.remind(ctx, a); err != nil {
			w.logger.Error("reminder failed",
				"appointment_id", a.ID,
				"error", err,
			)
			continue
		}
	}
}

// remind claims the flag and sends a single reminder. A claim that loses
// to a concurrent sweep is a silent no-op.
func (w *ReminderWorker) remind(ctx context.Context, a *appointments.Appointment) error {
	claimed, err := w.repo.MarkReminderSent(ctx, a.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	if err := w.notifier.SendReminder(ctx, a); err != nil {
		w.metrics.ObserveEmail("reminder", "failed")
		return err
	}
	w.metrics.ObserveEmail("reminder", "sent")
	w.metrics.ObserveReminderSent()
	w.logger.Info("reminder sent", "appointment_id", a.ID, "appointment_time", a.AppointmentTime)
	return nil
}

// RunOnce performs a single sweep. Useful for testing or manual triggers.
func (w *ReminderWorker) RunOnce(ctx context.Context) error {
	w.sweep(ctx)
	return nil
}

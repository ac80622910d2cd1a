package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists appointments. All state transitions are expressed as
// conditional UPDATEs so the write-once and monotonic-flag rules hold even
// under concurrent requests.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for tests.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

// appointmentColumns selects the appointment row joined with the provider
// name; legacy rows fall back to their stored free-text provider name.
const appointmentColumns = `a.id, a.provider_id, COALESCE(p.name, a.provider_name, '') AS provider_name,
       a.appointment_time, a.client_email, a.appointment_type, COALESCE(a.notes, ''),
       a.amount_cents, a.is_paid, COALESCE(a.payment_intent_id, ''),
       a.confirmation_sent, a.reminder_sent,
       a.calendar_synced, COALESCE(a.calendar_event_id, ''),
       a.created_at, a.updated_at`

const appointmentFrom = ` FROM appointments a LEFT JOIN providers p ON p.id = a.provider_id`

// Create inserts a pending appointment and returns the stored row.
func (r *Repository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := `
		INSERT INTO appointments (id, provider_id, provider_name, appointment_time,
		                          client_email, appointment_type, notes, amount_cents)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), $8)`

	legacyName := ""
	if a.ProviderID == nil {
		legacyName = a.ProviderName
	}

	if _, err := r.db.Exec(ctx, query,
		a.ID, a.ProviderID, legacyName, a.AppointmentTime.UTC(),
		a.ClientEmail, string(a.AppointmentType), a.Notes, a.AmountCents,
	); err != nil {
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}

	return r.GetByID(ctx, a.ID)
}

// GetByID loads an appointment by UUID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + appointmentFrom + ` WHERE a.id = $1`
	a, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: load by id: %w", err)
	}
	return a, nil
}

// SetPaymentIntent records the gateway reference, write-once. Returns false
// when a reference was already present (the caller should re-read the row).
func (r *Repository) SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET payment_intent_id = $2, updated_at = NOW()
		WHERE id = $1 AND payment_intent_id IS NULL`, id, intentID)
	if err != nil {
		return false, fmt.Errorf("appointments: set payment intent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkPaid flips is_paid exactly once. The compare-and-set means only one of
// several concurrent confirm calls observes the transition and runs the
// notification side effects.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET is_paid = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT is_paid`, id)
	if err != nil {
		return false, fmt.Errorf("appointments: mark paid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkConfirmationSent records a successful confirmation email. Monotonic.
func (r *Repository) MarkConfirmationSent(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET confirmation_sent = TRUE, updated_at = NOW()
		WHERE id = $1`, id); err != nil {
		return fmt.Errorf("appointments: mark confirmation sent: %w", err)
	}
	return nil
}

// MarkReminderSent records a successful reminder email, once. Returns false
// when another worker pass already claimed the reminder.
func (r *Repository) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT reminder_sent`, id)
	if err != nil {
		return false, fmt.Errorf("appointments: mark reminder sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetCalendarEvent stores the external calendar event id and flips
// calendar_synced in the same statement. The is_paid condition keeps the
// "synced implies paid" invariant at the persistence layer; the NULL check
// keeps the event id write-once.
func (r *Repository) SetCalendarEvent(ctx context.Context, id uuid.UUID, eventID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET calendar_event_id = $2, calendar_synced = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_paid AND calendar_event_id IS NULL`, id, eventID)
	if err != nil {
		return false, fmt.Errorf("appointments: set calendar event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListDueReminders returns paid appointments whose start time falls within
// the reminder window and whose reminder has not been sent yet.
func (r *Repository) ListDueReminders(ctx context.Context, now time.Time, window time.Duration) ([]*Appointment, error) {
	query := `SELECT ` + appointmentColumns + appointmentFrom + `
		WHERE a.is_paid
		  AND NOT a.reminder_sent
		  AND a.appointment_time > $1
		  AND a.appointment_time <= $2
		ORDER BY a.appointment_time`

	rows, err := r.db.Query(ctx, query, now.UTC(), now.UTC().Add(window))
	if err != nil {
		return nil, fmt.Errorf("appointments: list due reminders: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListFilter narrows admin listings.
type ListFilter struct {
	Paid             *bool
	ProviderID       *uuid.UUID
	AppointmentType  AppointmentType
	ConfirmationSent *bool
	CalendarSynced   *bool
	From             *time.Time
	To               *time.Time
	Search           string // client email, provider name, or payment intent ref
	OldestFirst      bool   // ascending by appointment time; used for upcoming views
	Limit            int
	Offset           int
}

// List returns appointments for the admin surface, newest appointment first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Paid != nil {
		conditions = append(conditions, "a.is_paid = "+arg(*filter.Paid))
	}
	if filter.ProviderID != nil {
		conditions = append(conditions, "a.provider_id = "+arg(*filter.ProviderID))
	}
	if filter.AppointmentType != "" {
		conditions = append(conditions, "a.appointment_type = "+arg(string(filter.AppointmentType)))
	}
	if filter.ConfirmationSent != nil {
		conditions = append(conditions, "a.confirmation_sent = "+arg(*filter.ConfirmationSent))
	}
	if filter.CalendarSynced != nil {
		conditions = append(conditions, "a.calendar_synced = "+arg(*filter.CalendarSynced))
	}
	if filter.From != nil {
		conditions = append(conditions, "a.appointment_time >= "+arg(filter.From.UTC()))
	}
	if filter.To != nil {
		conditions = append(conditions, "a.appointment_time < "+arg(filter.To.UTC()))
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, "(LOWER(a.client_email) LIKE "+arg(pattern)+
			" OR LOWER(COALESCE(p.name, a.provider_name, '')) LIKE "+arg(pattern)+
			" OR LOWER(COALESCE(a.payment_intent_id, '')) LIKE "+arg(pattern)+")")
	}

	query := `SELECT ` + appointmentColumns + appointmentFrom
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if filter.OldestFirst {
		query += " ORDER BY a.appointment_time ASC"
	} else {
		query += " ORDER BY a.appointment_time DESC"
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query += " LIMIT " + arg(limit)
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*Appointment, error) {
	var a Appointment
	var appointmentType string
	if err := row.Scan(
		&a.ID, &a.ProviderID, &a.ProviderName,
		&a.AppointmentTime, &a.ClientEmail, &appointmentType, &a.Notes,
		&a.AmountCents, &a.IsPaid, &a.PaymentIntentID,
		&a.ConfirmationSent, &a.ReminderSent,
		&a.CalendarSynced, &a.CalendarEventID,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.AppointmentType = AppointmentType(appointmentType)
	a.AppointmentTime = a.AppointmentTime.UTC()
	return &a, nil
}

package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sofiahealth/appointments-api/internal/appointments"
)

// Dashboard aggregates the booking analytics shown on the admin overview.
type Dashboard struct {
	GeneratedAt time.Time `json:"generated_at"`

	TotalAppointments int64 `json:"total_appointments"`
	PaidAppointments  int64 `json:"paid_appointments"`
	TotalRevenueCents int64 `json:"total_revenue_cents"`

	TodayAppointments int64 `json:"today_appointments"`
	WeekAppointments  int64 `json:"week_appointments"`
	MonthAppointments int64 `json:"month_appointments"`
	WeekRevenueCents  int64 `json:"week_revenue_cents"`
	MonthRevenueCents int64 `json:"month_revenue_cents"`

	ConfirmationsSent int64 `json:"confirmations_sent"`
	RemindersSent     int64 `json:"reminders_sent"`
	CalendarSynced    int64 `json:"calendar_synced"`

	// PaymentRate is paid bookings over all bookings, in percent.
	PaymentRate float64 `json:"payment_rate"`
	// AvgRevenueCents is revenue per paid booking.
	AvgRevenueCents int64 `json:"avg_revenue_cents"`

	ByType       []TypeBreakdown `json:"by_type"`
	TopProviders []ProviderRank  `json:"top_providers"`

	Upcoming []*appointments.Appointment `json:"upcoming"`
	Recent   []*appointments.Appointment `json:"recent"`
}

// TypeBreakdown is the per-appointment-type slice of the dashboard.
type TypeBreakdown struct {
	AppointmentType string `json:"appointment_type"`
	Count           int64  `json:"count"`
	PaidCount       int64  `json:"paid_count"`
	RevenueCents    int64  `json:"revenue_cents"`
}

// ProviderRank is one row of the top-providers table, ordered by revenue.
type ProviderRank struct {
	ProviderName string `json:"provider_name"`
	Appointments int64  `json:"appointments"`
	RevenueCents int64  `json:"revenue_cents"`
}

// dashboardDB defines the database interface needed by DashboardRepository.
type dashboardDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DashboardRepository queries booking analytics from the database.
type DashboardRepository struct {
	db           dashboardDB
	appointments *appointments.Repository
	now          func() time.Time
}

// NewDashboardRepository creates a dashboard repository.
func NewDashboardRepository(pool *pgxpool.Pool, appts *appointments.Repository) *DashboardRepository {
	if pool == nil {
		panic("admin: pgx pool required for dashboard")
	}
	return &DashboardRepository{db: pool, appointments: appts, now: func() time.Time { return time.Now().UTC() }}
}

// NewDashboardRepositoryWithDB allows injecting a mock database for testing.
func NewDashboardRepositoryWithDB(db dashboardDB, appts *appointments.Repository) *DashboardRepository {
	return &DashboardRepository{db: db, appointments: appts, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the time source (for tests).
func (r *DashboardRepository) WithClock(now func() time.Time) *DashboardRepository {
	r.now = now
	return r
}

const sampleSize = 5

// Get builds the full dashboard in one pass.
func (r *DashboardRepository) Get(ctx context.Context) (*Dashboard, error) {
	now := r.now()
	d := &Dashboard{GeneratedAt: now}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.Add(-7 * 24 * time.Hour)
	monthStart := now.Add(-30 * 24 * time.Hour)

	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_paid),
		       COALESCE(SUM(amount_cents) FILTER (WHERE is_paid), 0),
		       COUNT(*) FILTER (WHERE created_at >= $1),
		       COUNT(*) FILTER (WHERE created_at >= $2),
		       COUNT(*) FILTER (WHERE created_at >= $3),
		       COALESCE(SUM(amount_cents) FILTER (WHERE is_paid AND created_at >= $2), 0),
		       COALESCE(SUM(amount_cents) FILTER (WHERE is_paid AND created_at >= $3), 0),
		       COUNT(*) FILTER (WHERE confirmation_sent),
		       COUNT(*) FILTER (WHERE reminder_sent),
		       COUNT(*) FILTER (WHERE calendar_synced)
		FROM appointments`,
		dayStart, weekStart, monthStart,
	).Scan(
		&d.TotalAppointments, &d.PaidAppointments, &d.TotalRevenueCents,
		&d.TodayAppointments, &d.WeekAppointments, &d.MonthAppointments,
		&d.WeekRevenueCents, &d.MonthRevenueCents,
		&d.ConfirmationsSent, &d.RemindersSent, &d.CalendarSynced,
	)
	if err != nil {
		return nil, fmt.Errorf("admin dashboard: totals: %w", err)
	}

	if d.TotalAppointments > 0 {
		d.PaymentRate = 100 * float64(d.PaidAppointments) / float64(d.TotalAppointments)
	}
	if d.PaidAppointments > 0 {
		d.AvgRevenueCents = d.TotalRevenueCents / d.PaidAppointments
	}

	if d.ByType, err = r.byType(ctx); err != nil {
		return nil, err
	}
	if d.TopProviders, err = r.topProviders(ctx); err != nil {
		return nil, err
	}

	paid := true
	if d.Upcoming, err = r.appointments.List(ctx, appointments.ListFilter{
		Paid:        &paid,
		From:        &now,
		OldestFirst: true,
		Limit:       sampleSize,
	}); err != nil {
		return nil, fmt.Errorf("admin dashboard: upcoming: %w", err)
	}
	if d.Recent, err = r.appointments.List(ctx, appointments.ListFilter{
		Limit: sampleSize,
	}); err != nil {
		return nil, fmt.Errorf("admin dashboard: recent: %w", err)
	}

	return d, nil
}

func (r *DashboardRepository) byType(ctx context.Context) ([]TypeBreakdown, error) {
	rows, err := r.db.Query(ctx, `
		SELECT appointment_type,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE is_paid),
		       COALESCE(SUM(amount_cents) FILTER (WHERE is_paid), 0)
		FROM appointments
		GROUP BY appointment_type
		ORDER BY appointment_type`)
	if err != nil {
		return nil, fmt.Errorf("admin dashboard: by type: %w", err)
	}
	defer rows.Close()

	var out []TypeBreakdown
	for rows.Next() {
		var t TypeBreakdown
		if err := rows.Scan(&t.AppointmentType, &t.Count, &t.PaidCount, &t.RevenueCents); err != nil {
			return nil, fmt.Errorf("admin dashboard: scan type row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *DashboardRepository) topProviders(ctx context.Context) ([]ProviderRank, error) {
	rows, err := r.db.Query(ctx, `
		SELECT COALESCE(p.name, a.provider_name, 'Unassigned'),
		       COUNT(*),
		       COALESCE(SUM(a.amount_cents) FILTER (WHERE a.is_paid), 0) AS revenue
		FROM appointments a
		LEFT JOIN providers p ON p.id = a.provider_id
		GROUP BY 1
		ORDER BY revenue DESC
		LIMIT $1`, sampleSize)
	if err != nil {
		return nil, fmt.Errorf("admin dashboard: top providers: %w", err)
	}
	defer rows.Close()

	var out []ProviderRank
	for rows.Next() {
		var p ProviderRank
		if err := rows.Scan(&p.ProviderName, &p.Appointments, &p.RevenueCents); err != nil {
			return nil, fmt.Errorf("admin dashboard: scan provider row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

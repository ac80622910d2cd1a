package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

// Repository persists providers in Postgres.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("providers: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for tests.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

const providerColumns = `id, name, specialty, COALESCE(email, ''), COALESCE(phone, ''),
       consultation_price_cents, follow_up_price_cents, is_active, COALESCE(bio, ''),
       created_at, updated_at`

// Create inserts a new provider and returns the stored row.
func (r *Repository) Create(ctx context.Context, p *Provider) (*Provider, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO providers (id, name, specialty, email, phone,
		                       consultation_price_cents, follow_up_price_cents, is_active, bio)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, NULLIF($9, ''))
		RETURNING ` + providerColumns

	row := r.db.QueryRow(ctx, query,
		p.ID, p.Name, string(p.Specialty), p.Email, p.Phone,
		p.ConsultationPriceCents, p.FollowUpPriceCents, p.IsActive, p.Bio,
	)
	created, err := scanProvider(row)
	if err != nil {
		return nil, fmt.Errorf("providers: insert: %w", err)
	}
	return created, nil
}

// GetByID loads a provider by its UUID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`
	p, err := scanProvider(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("providers: load by id: %w", err)
	}
	return p, nil
}

// Update replaces the mutable fields of a provider.
func (r *Repository) Update(ctx context.Context, p *Provider) (*Provider, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	query := `
		UPDATE providers
		SET name = $2, specialty = $3, email = NULLIF($4, ''), phone = NULLIF($5, ''),
		    consultation_price_cents = $6, follow_up_price_cents = $7,
		    is_active = $8, bio = NULLIF($9, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + providerColumns

	row := r.db.QueryRow(ctx, query,
		p.ID, p.Name, string(p.Specialty), p.Email, p.Phone,
		p.ConsultationPriceCents, p.FollowUpPriceCents, p.IsActive, p.Bio,
	)
	updated, err := scanProvider(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("providers: update: %w", err)
	}
	return updated, nil
}

// Deactivate retires a provider from the public listing. Existing
// appointments keep their snapshot price and stay payable.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE providers
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("providers: deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	ActiveOnly bool
	Specialty  Specialty
	Search     string // matches name or email, case-insensitive
	Limit      int
	Offset     int
}

// List returns providers ordered by name.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*Provider, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.Specialty != "" {
		conditions = append(conditions, "specialty = "+arg(string(filter.Specialty)))
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions,
			"(LOWER(name) LIKE "+arg(pattern)+" OR LOWER(COALESCE(email, '')) LIKE "+arg(pattern)+")")
	}

	query := `SELECT ` + providerColumns + ` FROM providers`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name"

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
		return nil, fmt.Errorf("providers: list: %w", err)
	}
	defer rows.Close()

	var out []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("providers: scan list row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("providers: iterate list: %w", err)
	}
	return out, nil
}

// ListActive returns all active providers, most commonly for the booking form.
func (r *Repository) ListActive(ctx context.Context) ([]*Provider, error) {
	return r.List(ctx, ListFilter{ActiveOnly: true, Limit: 100})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (*Provider, error) {
	var p Provider
	var specialty string
	if err := row.Scan(
		&p.ID, &p.Name, &specialty, &p.Email, &p.Phone,
		&p.ConsultationPriceCents, &p.FollowUpPriceCents, &p.IsActive, &p.Bio,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Specialty = Specialty(specialty)
	return &p, nil
}

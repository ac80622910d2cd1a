package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"
)

// ErrCredentialsNotFound means no Google credentials are stored for the
// appointment.
var ErrCredentialsNotFound = errors.New("calendar: credentials not found")

// Credentials are the stored Google OAuth tokens for one appointment's
// calendar connection.
type Credentials struct {
	AppointmentID uuid.UUID
	AccessToken   string
	RefreshToken  string
	TokenType     string
	Expiry        time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Token converts the stored credentials to an oauth2 token.
func (c *Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// DB is the minimal query surface the store needs; satisfied by
// pgxpool.Pool and by pgxmock in tests.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CredentialStore persists Google OAuth tokens per appointment.
type CredentialStore struct {
	db DB
}

// NewCredentialStore creates a Postgres-backed credential store.
func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	if pool == nil {
		panic("calendar: database pool cannot be nil")
	}
	return &CredentialStore{db: pool}
}

// NewCredentialStoreWithDB creates a store on any DB implementation.
func NewCredentialStoreWithDB(db DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Save upserts the credentials for an appointment. Reconnecting replaces
// the stored tokens.
func (s *CredentialStore) Save(ctx context.Context, appointmentID uuid.UUID, token *oauth2.Token) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO calendar_credentials (appointment_id, access_token, refresh_token, token_type, expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (appointment_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), calendar_credentials.refresh_token),
			token_type = EXCLUDED.token_type,
			expiry = EXCLUDED.expiry,
			updated_at = NOW()`,
		appointmentID, token.AccessToken, token.RefreshToken, token.TokenType, token.Expiry.UTC(),
	)
	if err != nil {
		return fmt.Errorf("calendar: save credentials: %w", err)
	}
	return nil
}

// Get loads the credentials for an appointment.
func (s *CredentialStore) Get(ctx context.Context, appointmentID uuid.UUID) (*Credentials, error) {
	var c Credentials
	err := s.db.QueryRow(ctx, `
		SELECT appointment_id, access_token, COALESCE(refresh_token, ''), token_type, expiry, created_at, updated_at
		FROM calendar_credentials
		WHERE appointment_id = $1`,
		appointmentID,
	).Scan(&c.AppointmentID, &c.AccessToken, &c.RefreshToken, &c.TokenType, &c.Expiry, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("calendar: load credentials: %w", err)
	}
	return &c, nil
}

package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrStateNotFound means the OAuth state is unknown, expired, or already
// used. Callbacks carrying such a state are rejected.
var ErrStateNotFound = errors.New("calendar: oauth state not found")

const defaultStateTTL = 10 * time.Minute

// StateStore issues and redeems the per-connect OAuth state nonces. Each
// nonce maps to the appointment being connected and is single-use.
type StateStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStateStore creates a redis-backed OAuth state store.
func NewStateStore(client *redis.Client) *StateStore {
	if client == nil {
		panic("calendar: redis client cannot be nil")
	}
	return &StateStore{redis: client, ttl: defaultStateTTL}
}

// WithTTL overrides how long an unredeemed state stays valid.
func (s *StateStore) WithTTL(ttl time.Duration) *StateStore {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// Create issues a fresh state nonce bound to the appointment.
func (s *StateStore) Create(ctx context.Context, appointmentID uuid.UUID) (string, error) {
	state := uuid.NewString()
	if err := s.redis.Set(ctx, stateKey(state), appointmentID.String(), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("calendar: persist oauth state: %w", err)
	}
	return state, nil
}

// Consume redeems a state nonce and deletes it in the same call, so a
// replayed callback finds nothing.
func (s *StateStore) Consume(ctx context.Context, state string) (uuid.UUID, error) {
	val, err := s.redis.GetDel(ctx, stateKey(state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrStateNotFound
		}
		return uuid.Nil, fmt.Errorf("calendar: redeem oauth state: %w", err)
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("calendar: corrupt oauth state value: %w", err)
	}
	return id, nil
}

func stateKey(state string) string {
	return fmt.Sprintf("calendar_oauth_state:%s", state)
}

// Package session keeps short-lived conversation state for the assistant
// channels (live chat and bot). A session accumulates the cart and
// customer details across messages until the operator or bot submits the
// order, then it is dropped.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/printera/printera/internal/domain"
)

// ErrSessionNotFound is returned when a conversation session does not
// exist or has expired.
var ErrSessionNotFound = errors.New("session: not found or expired")

// DefaultTTL is how long an idle conversation survives. Each write
// refreshes the clock.
const DefaultTTL = 48 * time.Hour

// State is the accumulated conversation state keyed by the channel's
// session key.
type State struct {
	SessionKey string                   `json:"session_key"`
	Channel    domain.Channel           `json:"channel"`
	Customer   domain.AssistantCustomer `json:"customer"`
	Items      []domain.AssistantItem   `json:"items"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

// Store persists conversation state in Redis with a sliding TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a session store on an existing Redis client.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(sessionKey string) string {
	return fmt.Sprintf("printera:session:%s", sessionKey)
}

// Get loads the conversation state for a session key.
func (s *Store) Get(ctx context.Context, sessionKey string) (*State, error) {
	raw, err := s.client.Get(ctx, s.key(sessionKey)).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &state, nil
}

// Put stores the conversation state and refreshes its TTL.
func (s *Store) Put(ctx context.Context, state *State) error {
	state.UpdatedAt = time.Now()
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(state.SessionKey), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Delete drops a conversation session after its order is submitted.
func (s *Store) Delete(ctx context.Context, sessionKey string) error {
	if err := s.client.Del(ctx, s.key(sessionKey)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

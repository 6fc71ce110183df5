// Package memory holds an in-memory record store used by tests and as the
// default backend for local development.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"coinshelter/internal/core"
	"coinshelter/internal/records"
)

type Store struct {
	mu    sync.Mutex
	coins []core.CoinRecord // newest first
	users map[string]records.User
	now   func() time.Time
}

func New() *Store {
	return &Store{
		users: make(map[string]records.User),
		now:   time.Now,
	}
}

// NewAt pins the clock, keeping creation order deterministic in tests.
func NewAt(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]core.CoinRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.CoinRecord, 0, len(s.coins))
	for _, c := range s.coins {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (core.CoinRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.coins {
		if c.ID == id {
			return c, nil
		}
	}
	return core.CoinRecord{}, records.ErrNotFound
}

func (s *Store) Insert(_ context.Context, ownerID string, draft core.CoinDraft) (core.CoinRecord, error) {
	if err := draft.Validate(); err != nil {
		return core.CoinRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := core.CoinRecord{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: s.now(),
	}
	rec.ApplyDraft(draft)
	// Newest first mirrors the descending-creation order of the SQL backends.
	s.coins = append([]core.CoinRecord{rec}, s.coins...)
	return rec, nil
}

func (s *Store) Update(_ context.Context, ownerID, id string, draft core.CoinDraft) (core.CoinRecord, error) {
	if err := draft.Validate(); err != nil {
		return core.CoinRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.coins {
		if s.coins[i].ID == id && s.coins[i].OwnerID == ownerID {
			s.coins[i].ApplyDraft(draft)
			return s.coins[i], nil
		}
	}
	return core.CoinRecord{}, records.ErrNotFound
}

func (s *Store) Delete(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.coins {
		if s.coins[i].ID == id && s.coins[i].OwnerID == ownerID {
			s.coins = append(s.coins[:i], s.coins[i+1:]...)
			return nil
		}
	}
	return records.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, user records.User) (records.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, exists := s.users[key]; exists {
		return records.User{}, records.ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = s.now()
	s.users[key] = user
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (records.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[strings.ToLower(email)]
	if !ok {
		return records.User{}, records.ErrNotFound
	}
	return user, nil
}

func (s *Store) ConfirmUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, user := range s.users {
		if user.ID == id {
			user.Confirmed = true
			s.users[key] = user
			return nil
		}
	}
	return records.ErrNotFound
}

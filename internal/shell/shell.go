// Package shell owns the in-memory working list for the signed-in
// collector and runs every mutation through the record store first.
package shell

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coinshelter/internal/auth"
	"coinshelter/internal/core"
	"coinshelter/internal/log"
	"coinshelter/internal/records"
)

// ChangePublisher announces coin mutations downstream. Publishing is
// best-effort, a publish failure never fails the user operation.
type ChangePublisher interface {
	PublishCoinChange(ctx context.Context, id, op string) error
}

const (
	opCreated = "created"
	opUpdated = "updated"
	opDeleted = "deleted"
)

type Shell struct {
	store     records.Store
	provider  *auth.Provider
	publisher ChangePublisher
	logger    *log.Logger
	now       func() time.Time

	mu   sync.RWMutex
	list []core.CoinRecord
}

func New(store records.Store, provider *auth.Provider, publisher ChangePublisher, logger *log.Logger) *Shell {
	if logger == nil {
		cfg := log.DefaultConfig()
		cfg.Component = log.ComponentShell
		logger = log.New(cfg)
	}
	s := &Shell{
		store:     store,
		provider:  provider,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}

	if provider != nil {
		provider.Subscribe(s.onSessionChange)
	}
	return s
}

// onSessionChange reloads the list for a new session. On sign out the
// list stays visible for guest browsing, mutations are refused anyway.
func (s *Shell) onSessionChange(session *auth.Session) {
	if session == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Load(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load collection on sign in",
			log.FieldError, err, log.FieldOwnerID, session.UserID)
	}
}

// Load replaces the working list with the owner's stored records.
func (s *Shell) Load(ctx context.Context) error {
	session := s.session()
	if session == nil {
		return auth.ErrNotAuthenticated
	}

	list, err := s.store.ListByOwner(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}

	s.mu.Lock()
	s.list = list
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Collection loaded",
		log.FieldOperation, log.OpList,
		log.FieldOwnerID, session.UserID,
		"count", len(list))
	return nil
}

// Create stores a new coin and inserts it at the front of the list.
func (s *Shell) Create(ctx context.Context, draft core.CoinDraft) (core.CoinRecord, error) {
	session := s.session()
	if session == nil {
		return core.CoinRecord{}, auth.ErrNotAuthenticated
	}
	if err := draft.Validate(); err != nil {
		return core.CoinRecord{}, err
	}

	rec, err := s.store.Insert(ctx, session.UserID, draft)
	if err != nil {
		return core.CoinRecord{}, fmt.Errorf("create coin: %w", err)
	}

	s.mu.Lock()
	s.list = append([]core.CoinRecord{rec}, s.list...)
	s.mu.Unlock()

	s.publish(ctx, rec.ID, opCreated)
	s.logger.InfoContext(ctx, "Coin created",
		log.FieldOperation, log.OpCreate,
		log.FieldCoinID, rec.ID,
		log.FieldCoinName, rec.Name,
		log.FieldMaterial, rec.Material)
	return rec, nil
}

// Update replaces the stored record and swaps it in place in the list.
func (s *Shell) Update(ctx context.Context, id string, draft core.CoinDraft) (core.CoinRecord, error) {
	session := s.session()
	if session == nil {
		return core.CoinRecord{}, auth.ErrNotAuthenticated
	}
	if err := draft.Validate(); err != nil {
		return core.CoinRecord{}, err
	}

	rec, err := s.store.Update(ctx, session.UserID, id, draft)
	if err != nil {
		return core.CoinRecord{}, fmt.Errorf("update coin: %w", err)
	}

	s.mu.Lock()
	for i := range s.list {
		if s.list[i].ID == id {
			s.list[i] = rec
			break
		}
	}
	s.mu.Unlock()

	s.publish(ctx, id, opUpdated)
	s.logger.InfoContext(ctx, "Coin updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldCoinID, id)
	return rec, nil
}

// Delete removes the record from the store and the list.
func (s *Shell) Delete(ctx context.Context, id string) error {
	session := s.session()
	if session == nil {
		return auth.ErrNotAuthenticated
	}

	if err := s.store.Delete(ctx, session.UserID, id); err != nil {
		return fmt.Errorf("delete coin: %w", err)
	}

	s.mu.Lock()
	for i := range s.list {
		if s.list[i].ID == id {
			s.list = append(s.list[:i], s.list[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.publish(ctx, id, opDeleted)
	s.logger.InfoContext(ctx, "Coin deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldCoinID, id)
	return nil
}

// Get returns a single record from the working list.
func (s *Shell) Get(id string) (core.CoinRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.list {
		if rec.ID == id {
			return rec, nil
		}
	}
	return core.CoinRecord{}, records.ErrNotFound
}

// Snapshot returns a copy of the working list.
func (s *Shell) Snapshot() []core.CoinRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.CoinRecord, len(s.list))
	copy(out, s.list)
	return out
}

// View recomputes the visible list and its aggregates for a view state.
func (s *Shell) View(state core.ViewState) ([]core.CoinRecord, core.Snapshot, bool) {
	visible := core.VisibleList(s.Snapshot(), state)
	stats, ok := core.Aggregate(visible, s.now())
	return visible, stats, ok
}

func (s *Shell) session() *auth.Session {
	if s.provider == nil {
		return nil
	}
	return s.provider.Current()
}

func (s *Shell) publish(ctx context.Context, id, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCoinChange(ctx, id, op); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish coin change",
			log.FieldError, err,
			log.FieldCoinID, id,
			log.FieldOperation, op)
	}
}

// Package records defines the record-store boundary: the persistent home
// of coin records and user accounts. Concrete backends live in the
// subpackages (memory, sqlite, postgres) and are selected by the backend
// factory.
package records

import (
	"context"
	"errors"
	"time"

	"coinshelter/internal/core"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// User is a registered account. Salt and Verifier hold the argon2id
// password verifier; Confirmed gates sign-in when email confirmation
// is enabled.
type User struct {
	ID        string
	Email     string
	Name      string
	Salt      []byte
	Verifier  []byte
	Confirmed bool
	CreatedAt time.Time
}

type (
	// Store is the coin-record boundary. ListByOwner returns records in
	// descending creation order, which is the catalog's pass-through
	// order when no sort is applied. Insert assigns id and creation
	// time. Update and Delete are owner-scoped: a record is mutated
	// only by its owner, and an unknown id or a foreign owner both
	// fail with ErrNotFound. Update replaces every mutable field.
	Store interface {
		ListByOwner(ctx context.Context, ownerID string) ([]core.CoinRecord, error)
		Get(ctx context.Context, id string) (core.CoinRecord, error)
		Insert(ctx context.Context, ownerID string, draft core.CoinDraft) (core.CoinRecord, error)
		Update(ctx context.Context, ownerID, id string, draft core.CoinDraft) (core.CoinRecord, error)
		Delete(ctx context.Context, ownerID, id string) error
	}

	// UserStore is the account boundary consumed by the session provider.
	UserStore interface {
		CreateUser(ctx context.Context, user User) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		ConfirmUser(ctx context.Context, id string) error
	}
)

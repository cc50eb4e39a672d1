// Package store defines the persistence interfaces for users and
// transactions. Backends live in store/memory, infra/postgres and
// infra/bigquery.
package store

import (
	"context"
	"errors"

	"github.com/fblacp/scales/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a user or transaction does not exist
	// (or belongs to another user).
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when signing up with a taken email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// TransactionRepository persists transactions per user.
type TransactionRepository interface {
	// GetTransactions returns all of the user's transactions, newest first.
	GetTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)

	// AddTransaction stores tx, assigning its ID and defaults, and returns
	// the stored copy.
	AddTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)

	// UpdateTransaction replaces the stored transaction with the same ID
	// and user.
	UpdateTransaction(ctx context.Context, tx domain.Transaction) error

	// DeleteTransaction removes one of the user's transactions.
	DeleteTransaction(ctx context.Context, userID, id string) error

	// ConvertAmounts multiplies every amount of the user by rate.
	ConvertAmounts(ctx context.Context, userID string, rate decimal.Decimal) error
}

// UserRepository persists user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Repository is a backend serving both users and transactions.
type Repository interface {
	TransactionRepository
	UserRepository
	Close() error
}

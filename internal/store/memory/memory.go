package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is an in-memory Repository. Data is lost on restart.
// It is safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	users        map[string]domain.User
	emails       map[string]string
	transactions map[string]domain.Transaction
	now          func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:        make(map[string]domain.User),
		emails:       make(map[string]string),
		transactions: make(map[string]domain.Transaction),
		now:          time.Now,
	}
}

// GetTransactions implements store.TransactionRepository.
func (s *Store) GetTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Transaction{}
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			out = append(out, copyTransaction(tx))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// AddTransaction implements store.TransactionRepository.
func (s *Store) AddTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if tx.UserID == "" {
		return nil, fmt.Errorf("AddTransaction: user ID is required")
	}
	tx.ApplyDefaults()
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transactions[tx.ID]; exists {
		return nil, fmt.Errorf("AddTransaction: duplicate transaction ID %s", tx.ID)
	}
	s.transactions[tx.ID] = copyTransaction(tx)

	out := copyTransaction(tx)
	return &out, nil
}

// UpdateTransaction implements store.TransactionRepository.
func (s *Store) UpdateTransaction(ctx context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[tx.ID]
	if !ok || existing.UserID != tx.UserID {
		return fmt.Errorf("UpdateTransaction: %s: %w", tx.ID, store.ErrNotFound)
	}
	tx.ApplyDefaults()
	tx.CreatedAt = existing.CreatedAt
	s.transactions[tx.ID] = copyTransaction(tx)
	return nil
}

// DeleteTransaction implements store.TransactionRepository.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[id]
	if !ok || existing.UserID != userID {
		return fmt.Errorf("DeleteTransaction: %s: %w", id, store.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

// ConvertAmounts implements store.TransactionRepository.
func (s *Store) ConvertAmounts(ctx context.Context, userID string, rate decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		tx.Amount = tx.Amount.Mul(rate).Round(2)
		s.transactions[id] = tx
	}
	return nil
}

// CreateUser implements store.UserRepository.
func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	user.Email = domain.NormalizeEmail(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[user.Email]; taken {
		return nil, fmt.Errorf("CreateUser: %s: %w", user.Email, store.ErrDuplicateEmail)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.ID] = user
	s.emails[user.Email] = user.ID

	out := user
	return &out, nil
}

// GetUserByID implements store.UserRepository.
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("GetUserByID: %s: %w", id, store.ErrNotFound)
	}
	return &user, nil
}

// GetUserByEmail implements store.UserRepository.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[domain.NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("GetUserByEmail: %s: %w", email, store.ErrNotFound)
	}
	user := s.users[id]
	return &user, nil
}

// Close implements store.Repository.
func (s *Store) Close() error {
	return nil
}

func copyTransaction(tx domain.Transaction) domain.Transaction {
	if tx.RecurringEndDate != nil {
		end := *tx.RecurringEndDate
		tx.RecurringEndDate = &end
	}
	return tx
}

// Ensure Store implements store.Repository.
var _ store.Repository = (*Store)(nil)

// Package goal stores each user's savings goal and notifies subscribers
// when it changes.
package goal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fblacp/scales/internal/kv"
	"github.com/fblacp/scales/internal/logger"
	"github.com/shopspring/decimal"
)

// ErrInvalidGoal is returned by Set for a goal that is not positive.
var ErrInvalidGoal = errors.New("goal must be a positive amount")

// Listener is called after a goal changes. set is false once the goal has
// been cleared.
type Listener func(userID string, goal decimal.Decimal, set bool)

// Store keeps one goal per user in a kv.Store.
type Store struct {
	kv kv.Store

	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

// NewStore creates a Store on top of kv.
func NewStore(store kv.Store) *Store {
	return &Store{kv: store, listeners: make(map[int]Listener)}
}

func key(userID string) string {
	return "goal:" + userID
}

// Get returns the user's goal. ok is false when no goal is set.
func (s *Store) Get(ctx context.Context, userID string) (goal decimal.Decimal, ok bool, err error) {
	raw, err := s.kv.Get(ctx, key(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("Get: %w", err)
	}

	goal, err = decimal.NewFromString(raw)
	if err != nil || !goal.IsPositive() {
		log := logger.FromContext(ctx)
		log.Warn().Str("user_id", userID).Str("value", raw).Msg("Ignoring invalid stored goal")
		return decimal.Zero, false, nil
	}
	return goal, true, nil
}

// Set overwrites the user's goal.
func (s *Store) Set(ctx context.Context, userID string, goal decimal.Decimal) error {
	if !goal.IsPositive() {
		return fmt.Errorf("Set: %s: %w", goal, ErrInvalidGoal)
	}
	if err := s.kv.Set(ctx, key(userID), goal.String()); err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	s.notify(userID, goal, true)
	return nil
}

// Clear removes the user's goal.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.kv.Delete(ctx, key(userID)); err != nil {
		return fmt.Errorf("Clear: %w", err)
	}
	s.notify(userID, decimal.Zero, false)
	return nil
}

// Rescale multiplies an existing goal by rate, rounded to cents. It does
// nothing when no goal is set.
func (s *Store) Rescale(ctx context.Context, userID string, rate decimal.Decimal) error {
	goal, ok, err := s.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("Rescale: %w", err)
	}
	if !ok {
		return nil
	}

	scaled := goal.Mul(rate).Round(2)
	if !scaled.IsPositive() {
		return fmt.Errorf("Rescale: rate %s: %w", rate, ErrInvalidGoal)
	}
	return s.Set(ctx, userID, scaled)
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(userID string, goal decimal.Decimal, set bool) {
	s.mu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(userID, goal, set)
	}
}

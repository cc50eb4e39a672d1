// Package dashboard combines a user's balance and savings goal into the
// fish health shown on the home screen.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/fish"
	"github.com/fblacp/scales/internal/goal"
	"github.com/fblacp/scales/internal/logger"
	"github.com/fblacp/scales/internal/summary"
	"github.com/shopspring/decimal"
)

// RecentCount is how many transactions a snapshot lists.
const RecentCount = 5

// TransactionSource loads a user's transactions.
type TransactionSource interface {
	GetTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
}

// GoalSource loads a user's savings goal.
type GoalSource interface {
	Get(ctx context.Context, userID string) (decimal.Decimal, bool, error)
}

// GoalWatcher delivers goal changes.
type GoalWatcher interface {
	Subscribe(fn goal.Listener) func()
}

// Pending is the transition a transient fish state is heading to.
type Pending struct {
	State fish.State `json:"state"`
	At    time.Time  `json:"at"`
}

// Snapshot is the dashboard view for one user.
type Snapshot struct {
	Totals   summary.Totals       `json:"totals"`
	Goal     *decimal.Decimal     `json:"goal,omitempty"`
	Progress fish.Progress        `json:"progress"`
	State    fish.State           `json:"state"`
	Message  string               `json:"message"`
	Pending  *Pending             `json:"pending,omitempty"`
	Recent   []domain.Transaction `json:"recent"`
}

type userState struct {
	machine *fish.Machine
	balance decimal.Decimal
	known   bool
}

// Service keeps one fish.Machine per user so transitions survive between
// requests.
type Service struct {
	txs   TransactionSource
	goals GoalSource
	sched fish.Scheduler

	mu    sync.Mutex
	users map[string]*userState
}

// NewService creates a Service. A nil scheduler uses fish.WallClock.
func NewService(txs TransactionSource, goals GoalSource, sched fish.Scheduler) *Service {
	if sched == nil {
		sched = fish.WallClock
	}
	return &Service{
		txs:   txs,
		goals: goals,
		sched: sched,
		users: make(map[string]*userState),
	}
}

func (s *Service) user(userID string) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		u = &userState{machine: fish.NewMachine(s.sched)}
		s.users[userID] = u
	}
	return u
}

// Machine returns the user's fish machine, creating it on first use.
func (s *Service) Machine(userID string) *fish.Machine {
	return s.user(userID).machine
}

// Snapshot loads the user's transactions and goal, feeds the resulting
// progress to the fish machine and returns the dashboard view.
func (s *Service) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	txs, err := s.txs.GetTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Snapshot: load transactions: %w", err)
	}
	target, goalSet, err := s.goals.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Snapshot: load goal: %w", err)
	}

	totals := summary.ComputeTotals(txs)
	u := s.user(userID)
	s.mu.Lock()
	u.balance = totals.Balance
	u.known = true
	s.mu.Unlock()

	progress := fish.ComputeProgress(totals.Balance, target)
	state := u.machine.Update(progress.Actual, goalSet)

	snap := &Snapshot{
		Totals:   totals,
		Progress: progress,
		State:    state,
		Message:  fish.Message(state, goalSet),
		Recent:   summary.Recent(txs, RecentCount),
	}
	if goalSet {
		snap.Goal = &target
	}
	if next, at, ok := u.machine.Pending(); ok {
		snap.Pending = &Pending{State: next, At: at}
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("user_id", userID).
		Str("state", state.String()).
		Float64("progress", progress.Actual).
		Msg("Dashboard snapshot")
	return snap, nil
}

// TransactionsChanged recomputes the user's fish after a transaction write.
// Failures are logged; the next Snapshot retries.
func (s *Service) TransactionsChanged(ctx context.Context, userID string) {
	if _, err := s.Snapshot(ctx, userID); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("user_id", userID).Msg("Could not refresh fish state")
	}
}

// GoalChanged updates the fish with the last known balance of the user.
// It has the goal.Listener signature. Users without a snapshot yet are
// left alone.
func (s *Service) GoalChanged(userID string, target decimal.Decimal, set bool) {
	s.mu.Lock()
	u, ok := s.users[userID]
	if !ok || !u.known {
		s.mu.Unlock()
		return
	}
	balance := u.balance
	s.mu.Unlock()

	u.machine.Update(fish.ComputeProgress(balance, target).Actual, set)
}

// CurrencyRescaled multiplies the cached balance by rate so the goal
// notification that follows a currency switch compares amounts in the
// same currency.
func (s *Service) CurrencyRescaled(userID string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok && u.known {
		u.balance = u.balance.Mul(rate)
	}
}

// WatchGoals subscribes GoalChanged to w and returns the unsubscribe func.
func (s *Service) WatchGoals(w GoalWatcher) func() {
	return w.Subscribe(s.GoalChanged)
}

// Close stops every pending fish transition.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		u.machine.Stop()
	}
}

package currency

import (
	"context"
	"errors"
	"fmt"

	"github.com/fblacp/scales/internal/kv"
	"github.com/fblacp/scales/internal/logger"
	"github.com/shopspring/decimal"
)

// Preferences stores each user's chosen currency in a kv.Store.
type Preferences struct {
	kv       kv.Store
	fallback Currency
}

// NewPreferences creates a Preferences store. Users without a stored
// choice get defaultCode, or USD when it is not supported.
func NewPreferences(store kv.Store, defaultCode string) *Preferences {
	fallback, err := Lookup(defaultCode)
	if err != nil {
		fallback, _ = Lookup(USD)
	}
	return &Preferences{kv: store, fallback: fallback}
}

func prefKey(userID string) string {
	return "currency:" + userID
}

// Get returns the user's currency.
func (p *Preferences) Get(ctx context.Context, userID string) (Currency, error) {
	code, err := p.kv.Get(ctx, prefKey(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return p.fallback, nil
	}
	if err != nil {
		return Currency{}, fmt.Errorf("Get: %w", err)
	}
	c, err := Lookup(code)
	if err != nil {
		return p.fallback, nil
	}
	return c, nil
}

// Set stores the user's currency.
func (p *Preferences) Set(ctx context.Context, userID, code string) error {
	c, err := Lookup(code)
	if err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	if err := p.kv.Set(ctx, prefKey(userID), c.Code); err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	return nil
}

// RateSource provides exchange rates. *Client implements it.
type RateSource interface {
	Rate(ctx context.Context, from, to string) decimal.Decimal
}

// GoalRescaler rescales a stored savings goal.
type GoalRescaler interface {
	Rescale(ctx context.Context, userID string, rate decimal.Decimal) error
}

// AmountConverter rescales stored transaction amounts.
type AmountConverter interface {
	ConvertAmounts(ctx context.Context, userID string, rate decimal.Decimal) error
}

// RescaleObserver learns that a user's amounts were multiplied by rate.
// It runs after transactions are converted and before the goal is
// rescaled, so goal listeners see values in one currency.
type RescaleObserver interface {
	CurrencyRescaled(userID string, rate decimal.Decimal)
}

// Change describes a completed currency switch.
type Change struct {
	From Currency        `json:"from"`
	To   Currency        `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}

// Service switches a user's currency and converts their stored values.
type Service struct {
	rates RateSource
	prefs *Preferences
	goals GoalRescaler
	txs   AmountConverter

	observers []RescaleObserver
}

// NewService wires a Service.
func NewService(rates RateSource, prefs *Preferences, goals GoalRescaler, txs AmountConverter) *Service {
	return &Service{rates: rates, prefs: prefs, goals: goals, txs: txs}
}

// Observe registers o for every later currency switch.
func (s *Service) Observe(o RescaleObserver) {
	s.observers = append(s.observers, o)
}

// Preferences returns the preference store.
func (s *Service) Preferences() *Preferences {
	return s.prefs
}

// ChangeCurrency converts the user's transactions and goal from their
// current currency to code and then stores the new preference. Choosing
// the current currency is a no-op with rate 1.
func (s *Service) ChangeCurrency(ctx context.Context, userID, code string) (*Change, error) {
	to, err := Lookup(code)
	if err != nil {
		return nil, fmt.Errorf("ChangeCurrency: %w", err)
	}
	from, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ChangeCurrency: %w", err)
	}

	change := &Change{From: from, To: to, Rate: decimal.NewFromInt(1)}
	if from.Code == to.Code {
		return change, nil
	}

	change.Rate = s.rates.Rate(ctx, from.Code, to.Code)

	if err := s.txs.ConvertAmounts(ctx, userID, change.Rate); err != nil {
		return nil, fmt.Errorf("ChangeCurrency: transactions: %w", err)
	}
	for _, o := range s.observers {
		o.CurrencyRescaled(userID, change.Rate)
	}
	if err := s.goals.Rescale(ctx, userID, change.Rate); err != nil {
		return nil, fmt.Errorf("ChangeCurrency: goal: %w", err)
	}
	if err := s.prefs.Set(ctx, userID, to.Code); err != nil {
		return nil, fmt.Errorf("ChangeCurrency: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", userID).
		Str("from", from.Code).
		Str("to", to.Code).
		Str("rate", change.Rate.String()).
		Msg("Currency changed")
	return change, nil
}

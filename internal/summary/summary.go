// Package summary filters transactions to a calendar range and aggregates
// them into totals, category breakdowns and chart series.
package summary

import (
	"context"
	"sort"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/logger"
)

// Skipped identifies a transaction left out of an aggregation.
type Skipped struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

const reasonBadDate = "unparseable date"

// Result is everything the summary screen and exports need for one range.
type Result struct {
	Range        Range                `json:"range"`
	Period       string               `json:"period"`
	Transactions []domain.Transaction `json:"transactions"`
	Skipped      []Skipped            `json:"skipped,omitempty"`
	Totals       Totals               `json:"totals"`
	Breakdown    Breakdown            `json:"breakdown"`
	Series       Series               `json:"series"`
}

// Filter returns the transactions whose local calendar day lies in rng,
// in input order, plus the ones skipped for having no usable date.
// txs is not modified.
func Filter(txs []domain.Transaction, rng Range) ([]domain.Transaction, []Skipped) {
	included := make([]domain.Transaction, 0, len(txs))
	var skipped []Skipped
	for _, tx := range txs {
		if tx.Date.IsZero() {
			skipped = append(skipped, Skipped{ID: tx.ID, Reason: reasonBadDate})
			continue
		}
		if rng.Contains(tx.Date) {
			included = append(included, tx)
		}
	}
	return included, skipped
}

// Aggregate filters txs to rng and computes the full summary. Rows with an
// unparseable date are logged and excluded; an empty range yields zero
// totals.
func Aggregate(ctx context.Context, txs []domain.Transaction, rng Range) Result {
	log := logger.FromContext(ctx)

	included, skipped := Filter(txs, rng)
	for _, s := range skipped {
		log.Warn().
			Str("transaction_id", s.ID).
			Str("reason", s.Reason).
			Msg("Skipping transaction in summary")
	}

	return Result{
		Range:        rng,
		Period:       rng.Label(),
		Transactions: SortRecent(included),
		Skipped:      skipped,
		Totals:       ComputeTotals(included),
		Breakdown:    CategoryBreakdown(included),
		Series:       TimeSeries(included, rng),
	}
}

// SortRecent returns a copy of txs ordered newest first. Equal dates keep
// their input order; undated rows go last.
func SortRecent(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.After(b)
	})
	return out
}

// Recent returns the n newest transactions.
func Recent(txs []domain.Transaction, n int) []domain.Transaction {
	sorted := SortRecent(txs)
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

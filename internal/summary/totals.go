package summary

import (
	"github.com/fblacp/scales/internal/domain"
	"github.com/shopspring/decimal"
)

// Totals is the income/expense/balance aggregate of a set of transactions.
// Expenses is the sum of absolute values of non-positive amounts.
type Totals struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Balance  decimal.Decimal `json:"balance"`
}

// ComputeTotals aggregates every transaction in txs regardless of date.
func ComputeTotals(txs []domain.Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		t = t.addAmount(tx.Amount)
	}
	return t
}

// Add combines two aggregates.
func (t Totals) Add(o Totals) Totals {
	income := t.Income.Add(o.Income)
	expenses := t.Expenses.Add(o.Expenses)
	return Totals{Income: income, Expenses: expenses, Balance: income.Sub(expenses)}
}

func (t Totals) addAmount(amount decimal.Decimal) Totals {
	if amount.IsPositive() {
		t.Income = t.Income.Add(amount)
	} else {
		t.Expenses = t.Expenses.Add(amount.Abs())
	}
	t.Balance = t.Income.Sub(t.Expenses)
	return t
}

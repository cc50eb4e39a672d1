package summary

import (
	"sort"

	"github.com/fblacp/scales/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	OtherIncome   = "Other Income"
	OtherExpenses = "Other Expenses"
)

// collapseShare is the fraction of a side's total below which a category
// is folded into the synthetic "Other" bucket.
var collapseShare = decimal.New(1, -2)

// CategoryAmount is one slice of a breakdown. Amount is always positive
// for income and the absolute spend for expenses.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Percent  float64         `json:"percent"`
	Count    int             `json:"count"`
}

// Breakdown groups transactions by category, separately per side.
type Breakdown struct {
	Income   []CategoryAmount `json:"income"`
	Expenses []CategoryAmount `json:"expenses"`
}

// CategoryBreakdown groups txs by category. Income is amount > 0 and
// expenses are amount <= 0, the same split ComputeTotals uses.
func CategoryBreakdown(txs []domain.Transaction) Breakdown {
	income := newSide()
	expenses := newSide()
	for _, tx := range txs {
		if tx.IsIncome() {
			income.add(tx.CategoryOrDefault(), tx.Amount)
		} else {
			expenses.add(tx.CategoryOrDefault(), tx.Amount.Abs())
		}
	}
	return Breakdown{
		Income:   income.collapse(OtherIncome),
		Expenses: expenses.collapse(OtherExpenses),
	}
}

type side struct {
	order  []string
	sums   map[string]decimal.Decimal
	counts map[string]int
	total  decimal.Decimal
}

func newSide() *side {
	return &side{sums: make(map[string]decimal.Decimal), counts: make(map[string]int)}
}

func (s *side) add(category string, amount decimal.Decimal) {
	if _, ok := s.sums[category]; !ok {
		s.order = append(s.order, category)
	}
	s.sums[category] = s.sums[category].Add(amount)
	s.counts[category]++
	s.total = s.total.Add(amount)
}

// collapse folds categories under collapseShare of the side total into
// other. A zero total produces no entries at all.
func (s *side) collapse(other string) []CategoryAmount {
	out := []CategoryAmount{}
	if !s.total.IsPositive() {
		return out
	}

	var otherSum decimal.Decimal
	otherCount := 0
	otherIdx := -1
	for _, c := range s.order {
		amt := s.sums[c]
		if amt.Div(s.total).LessThan(collapseShare) {
			otherSum = otherSum.Add(amt)
			otherCount += s.counts[c]
			continue
		}
		if c == other {
			otherIdx = len(out)
		}
		out = append(out, CategoryAmount{Category: c, Amount: amt, Count: s.counts[c]})
	}

	if otherSum.IsPositive() {
		if otherIdx >= 0 {
			out[otherIdx].Amount = out[otherIdx].Amount.Add(otherSum)
			out[otherIdx].Count += otherCount
		} else {
			out = append(out, CategoryAmount{Category: other, Amount: otherSum, Count: otherCount})
		}
	}

	for i := range out {
		out[i].Percent = out[i].Amount.Div(s.total).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

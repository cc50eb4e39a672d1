package summary

import (
	"cloud.google.com/go/civil"
	"github.com/fblacp/scales/internal/domain"
	"github.com/shopspring/decimal"
)

// Granularity of a time series.
type Granularity string

const (
	Daily  Granularity = "daily"
	Weekly Granularity = "weekly"
)

// DailyLimit is the longest range, in days, charted one bucket per day.
const DailyLimit = 31

const weekDays = 7

// Bucket is the income and expense sum of one chart bar. Start and End are
// both inclusive.
type Bucket struct {
	Start    civil.Date      `json:"start"`
	End      civil.Date      `json:"end"`
	Label    string          `json:"label"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// Series is a sequence of contiguous buckets covering a range.
type Series struct {
	Granularity Granularity `json:"granularity"`
	Buckets     []Bucket    `json:"buckets"`
}

// TimeSeries buckets txs over rng: one bucket per day for ranges of up to
// DailyLimit days, otherwise 7-day windows from rng.Start with the last
// window cut at rng.End. Transactions outside rng are ignored.
func TimeSeries(txs []domain.Transaction, rng Range) Series {
	width := 1
	s := Series{Granularity: Daily}
	if rng.Days() > DailyLimit {
		width = weekDays
		s.Granularity = Weekly
	}

	for start := rng.Start; !start.After(rng.End); start = start.AddDays(width) {
		end := start.AddDays(width - 1)
		if end.After(rng.End) {
			end = rng.End
		}
		b := Bucket{Start: start, End: end}
		if width == 1 {
			b.Label = formatDay(start, "Jan 2")
		} else {
			b.Label = formatDay(start, "Jan 2") + " - " + formatDay(end, "Jan 2")
		}
		s.Buckets = append(s.Buckets, b)
	}

	for _, tx := range txs {
		if !rng.Contains(tx.Date) {
			continue
		}
		idx := rng.Day(tx.Date).DaysSince(rng.Start) / width
		if tx.IsIncome() {
			s.Buckets[idx].Income = s.Buckets[idx].Income.Add(tx.Amount)
		} else {
			s.Buckets[idx].Expenses = s.Buckets[idx].Expenses.Add(tx.Amount.Abs())
		}
	}
	return s
}

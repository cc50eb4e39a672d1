package fish

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Progress is the balance expressed as a percentage of the goal.
// Actual drives the state machine and may be negative or above 100;
// Display is clamped to [0, 100] for progress bars.
type Progress struct {
	Actual  float64 `json:"actual"`
	Display float64 `json:"display"`
}

// ComputeProgress returns the progress of balance towards goal. A goal of
// zero or less yields zero progress.
func ComputeProgress(balance, goal decimal.Decimal) Progress {
	if !goal.IsPositive() {
		return Progress{}
	}
	actual := balance.Div(goal).Mul(hundred).InexactFloat64()
	display := actual
	if display < 0 {
		display = 0
	}
	if display > 100 {
		display = 100
	}
	return Progress{Actual: actual, Display: display}
}

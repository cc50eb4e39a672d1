// Package currency holds the supported currency table, live exchange
// rates and the per-user currency preference.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedCurrency is returned for a code outside the table.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Currency describes a supported currency. Rate is the static rate against
// USD used for offline conversion.
type Currency struct {
	Code   string          `json:"code"`
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Rate   decimal.Decimal `json:"rate"`
}

// USD is the default currency.
const USD = "USD"

var supported = []Currency{
	{Code: "USD", Symbol: "$", Name: "US Dollar", Rate: decimal.NewFromInt(1)},
	{Code: "EUR", Symbol: "€", Name: "Euro", Rate: decimal.RequireFromString("0.85")},
	{Code: "GBP", Symbol: "£", Name: "British Pound", Rate: decimal.RequireFromString("0.72")},
	{Code: "JPY", Symbol: "¥", Name: "Japanese Yen", Rate: decimal.RequireFromString("110.5")},
	{Code: "CAD", Symbol: "C$", Name: "Canadian Dollar", Rate: decimal.RequireFromString("1.25")},
	{Code: "AUD", Symbol: "A$", Name: "Australian Dollar", Rate: decimal.RequireFromString("1.30")},
	{Code: "CNY", Symbol: "¥", Name: "Chinese Yuan", Rate: decimal.RequireFromString("6.45")},
	{Code: "INR", Symbol: "₹", Name: "Indian Rupee", Rate: decimal.RequireFromString("75.0")},
}

// Supported returns the currency table in display order.
func Supported() []Currency {
	out := make([]Currency, len(supported))
	copy(out, supported)
	return out
}

// Lookup finds a currency by code, ignoring case.
func Lookup(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range supported {
		if c.Code == code {
			return c, nil
		}
	}
	return Currency{}, fmt.Errorf("Lookup: %q: %w", code, ErrUnsupportedCurrency)
}

// Convert converts amount with the static table. Unknown codes leave the
// amount unchanged.
func Convert(amount decimal.Decimal, from, to string) decimal.Decimal {
	f, err := Lookup(from)
	if err != nil {
		return amount
	}
	t, err := Lookup(to)
	if err != nil {
		return amount
	}
	return amount.Mul(t.Rate).Div(f.Rate)
}

// Format renders amount as symbol plus two decimals, with the sign in
// front of the symbol: -$12.50.
func Format(amount decimal.Decimal, code string) string {
	symbol := code
	if c, err := Lookup(code); err == nil {
		symbol = c.Symbol
	}
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return sign + symbol + amount.Abs().StringFixed(2)
}

package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultTitle is stored when a transaction is created without a title.
	DefaultTitle = "Untitled"

	// DefaultCategory is used for transactions with a missing or empty category.
	DefaultCategory = "Uncategorized"
)

// RecurringType is the repeat cadence of a recurring transaction.
type RecurringType string

const (
	RecurringDaily   RecurringType = "daily"
	RecurringWeekly  RecurringType = "weekly"
	RecurringMonthly RecurringType = "monthly"
	RecurringYearly  RecurringType = "yearly"
)

// Valid reports whether r is one of the known cadences.
func (r RecurringType) Valid() bool {
	switch r {
	case RecurringDaily, RecurringWeekly, RecurringMonthly, RecurringYearly:
		return true
	}
	return false
}

// ErrInvalidTransaction is returned by Validate.
var ErrInvalidTransaction = errors.New("invalid transaction")

// Transaction is a single income (positive amount) or expense (zero or
// negative amount) owned by one user.
//
// A zero Date means the stored date could not be parsed; aggregation skips
// such rows instead of failing.
type Transaction struct {
	ID     string          `json:"id"`
	UserID string          `json:"user_id"`
	Title  string          `json:"title"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`

	Category string `json:"category"`

	IsRecurring      bool          `json:"is_recurring,omitempty"`
	RecurringType    RecurringType `json:"recurring_type,omitempty"`
	RecurringEndDate *time.Time    `json:"recurring_end_date,omitempty"`

	ReceiptImage string `json:"receipt_image,omitempty"`
	Comment      string `json:"comment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsIncome reports whether the transaction counts as income.
func (t Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

// CategoryOrDefault returns the category, falling back to DefaultCategory.
func (t Transaction) CategoryOrDefault() string {
	if c := strings.TrimSpace(t.Category); c != "" {
		return c
	}
	return DefaultCategory
}

// ApplyDefaults fills in the title and category defaults.
func (t *Transaction) ApplyDefaults() {
	if strings.TrimSpace(t.Title) == "" {
		t.Title = DefaultTitle
	}
	t.Category = t.CategoryOrDefault()
	if !t.IsRecurring {
		t.RecurringType = ""
		t.RecurringEndDate = nil
	}
}

// Validate checks the fields a client may set.
func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidTransaction)
	}
	if t.IsRecurring {
		if !t.RecurringType.Valid() {
			return fmt.Errorf("%w: unknown recurring type %q", ErrInvalidTransaction, t.RecurringType)
		}
		if t.RecurringEndDate != nil && t.RecurringEndDate.Before(t.Date) {
			return fmt.Errorf("%w: recurring end date is before the transaction date", ErrInvalidTransaction)
		}
	}
	return nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a stored or client-supplied transaction date.
// Layouts without a zone are interpreted in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("ParseDate: unrecognised date %q", s)
}

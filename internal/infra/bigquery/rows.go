package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
)

const (
	transactionsTable = "transactions"
	usersTable        = "users"
)

// Dataset identifies the project and dataset holding the tables.
type Dataset struct {
	Project string
	Name    string
}

// table returns the fully qualified, backquoted table name for use in SQL.
func (d Dataset) table(name string) string {
	return "`" + d.Project + "." + d.Name + "." + name + "`"
}

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	Title  string   `bigquery:"title"`  // REQUIRED
	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC

	// Date is kept as ISO-8601 text so rows written by older clients can
	// still be read when their value does not parse.
	Date string `bigquery:"date"` // REQUIRED

	Category    string `bigquery:"category"`     // REQUIRED
	IsRecurring bool   `bigquery:"is_recurring"` // REQUIRED

	RecurringType    bigquery.NullString `bigquery:"recurring_type"`     // NULLABLE
	RecurringEndDate bigquery.NullString `bigquery:"recurring_end_date"` // NULLABLE
	ReceiptImage     bigquery.NullString `bigquery:"receipt_image"`      // NULLABLE
	Comment          bigquery.NullString `bigquery:"comment"`            // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

type UserRow struct {
	UserID       string    `bigquery:"user_id"`       // REQUIRED
	Email        string    `bigquery:"email"`         // REQUIRED
	Username     string    `bigquery:"username"`      // REQUIRED
	PasswordHash string    `bigquery:"password_hash"` // REQUIRED
	CreatedTS    time.Time `bigquery:"created_ts"`    // REQUIRED
}

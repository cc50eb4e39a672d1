package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/logger"
	"github.com/fblacp/scales/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// storedDateLayout is the text form of transaction dates.
const storedDateLayout = time.RFC3339Nano

// Repository is the BigQuery implementation of store.Repository. It holds a
// shared client to avoid creating a new connection for each operation.
type Repository struct {
	client *bigquery.Client
	ds     Dataset
	loc    *time.Location
}

// NewRepository creates a client for the project and wraps it.
func NewRepository(ctx context.Context, ds Dataset, loc *time.Location) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, ds.Project)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return NewRepositoryWithClient(client, ds, loc), nil
}

// NewRepositoryWithClient wraps an existing client.
func NewRepositoryWithClient(client *bigquery.Client, ds Dataset, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.Local
	}
	return &Repository{client: client, ds: ds, loc: loc}
}

// Client exposes the underlying client, e.g. for EnsureTables.
func (r *Repository) Client() *bigquery.Client {
	return r.client
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// GetTransactions implements store.TransactionRepository.
func (r *Repository) GetTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := QueryTransactionsByUserWithClient(ctx, r.client, r.ds, userID)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	out := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := fromTransactionRow(row, r.loc)
		if err != nil {
			log.Warn().Err(err).Str("transaction_id", row.TransactionID).Msg("Stored transaction date is unparseable")
		}
		out = append(out, tx)
	}
	return out, nil
}

// AddTransaction implements store.TransactionRepository.
func (r *Repository) AddTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	tx.ApplyDefaults()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	if err := InsertTransactionWithClient(ctx, r.client, r.ds, toTransactionRow(tx)); err != nil {
		return nil, err
	}
	return &tx, nil
}

// UpdateTransaction implements store.TransactionRepository.
func (r *Repository) UpdateTransaction(ctx context.Context, tx domain.Transaction) error {
	tx.ApplyDefaults()
	n, err := UpdateTransactionWithClient(ctx, r.client, r.ds, toTransactionRow(tx))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("UpdateTransaction: %s: %w", tx.ID, store.ErrNotFound)
	}
	return nil
}

// DeleteTransaction implements store.TransactionRepository.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	n, err := DeleteTransactionWithClient(ctx, r.client, r.ds, userID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("DeleteTransaction: %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ConvertAmounts implements store.TransactionRepository.
func (r *Repository) ConvertAmounts(ctx context.Context, userID string, rate decimal.Decimal) error {
	return ConvertAmountsWithClient(ctx, r.client, r.ds, userID, rate.Rat())
}

// CreateUser implements store.UserRepository. BigQuery has no unique
// constraints, so the email is checked before the insert.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	user.Email = domain.NormalizeEmail(user.Email)

	existing, err := FindUserWithClient(ctx, r.client, r.ds, "email", user.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("CreateUser: %s: %w", user.Email, store.ErrDuplicateEmail)
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	row := &UserRow{
		UserID:       user.ID,
		Email:        user.Email,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedTS:    user.CreatedAt,
	}
	if err := InsertUserWithClient(ctx, r.client, r.ds, row); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID implements store.UserRepository.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findUser(ctx, "GetUserByID", "user_id", id)
}

// GetUserByEmail implements store.UserRepository.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findUser(ctx, "GetUserByEmail", "email", domain.NormalizeEmail(email))
}

func (r *Repository) findUser(ctx context.Context, op, column, value string) (*domain.User, error) {
	row, err := FindUserWithClient(ctx, r.client, r.ds, column, value)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("%s: %s: %w", op, value, store.ErrNotFound)
	}
	return &domain.User{
		ID:           row.UserID,
		Email:        row.Email,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedTS,
	}, nil
}

func toTransactionRow(tx domain.Transaction) *TransactionRow {
	row := &TransactionRow{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Title:         tx.Title,
		Amount:        tx.Amount.Rat(),
		Date:          tx.Date.Format(storedDateLayout),
		Category:      tx.Category,
		IsRecurring:   tx.IsRecurring,
		RecurringType: nullString(string(tx.RecurringType)),
		ReceiptImage:  nullString(tx.ReceiptImage),
		Comment:       nullString(tx.Comment),
		CreatedTS:     tx.CreatedAt,
	}
	if tx.RecurringEndDate != nil {
		row.RecurringEndDate = nullString(tx.RecurringEndDate.Format(storedDateLayout))
	}
	return row
}

// fromTransactionRow converts a row. When the stored date does not parse
// the transaction is still returned, with a zero Date, alongside the error.
func fromTransactionRow(row *TransactionRow, loc *time.Location) (domain.Transaction, error) {
	tx := domain.Transaction{
		ID:            row.TransactionID,
		UserID:        row.UserID,
		Title:         row.Title,
		Amount:        ratToDecimal(row.Amount),
		Category:      row.Category,
		IsRecurring:   row.IsRecurring,
		RecurringType: domain.RecurringType(row.RecurringType.StringVal),
		ReceiptImage:  row.ReceiptImage.StringVal,
		Comment:       row.Comment.StringVal,
		CreatedAt:     row.CreatedTS,
	}
	if row.RecurringEndDate.Valid {
		if end, err := domain.ParseDate(row.RecurringEndDate.StringVal, loc); err == nil {
			tx.RecurringEndDate = &end
		}
	}

	date, err := domain.ParseDate(row.Date, loc)
	if err != nil {
		return tx, err
	}
	tx.Date = date
	return tx, nil
}

// ratToDecimal converts a NUMERIC value, which has at most nine decimal places.
func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.FloatString(9))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// Ensure Repository implements store.Repository.
var _ store.Repository = (*Repository)(nil)

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/logger"
	"github.com/fblacp/scales/internal/store"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Dates are stored as ISO-8601 text.
const storedDateLayout = time.RFC3339Nano

const uniqueViolation = "23505"

// Repository is the Postgres implementation of store.Repository.
type Repository struct {
	db  *sql.DB
	loc *time.Location
}

// Open connects to Postgres with lib/pq.
func Open(ctx context.Context, connStr string, loc *time.Location) (*Repository, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("Open: sql open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: ping: %w", err)
	}
	return NewRepository(db, loc), nil
}

// NewRepository wraps an existing connection pool. loc is used for
// stored dates that carry no zone.
func NewRepository(db *sql.DB, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.Local
	}
	return &Repository{db: db, loc: loc}
}

// DB exposes the pool for migrations.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

const transactionColumns = `id, user_id, title, amount, date, category, is_recurring,
	recurring_type, recurring_end_date, receipt_image, comment, created_at`

// GetTransactions implements store.TransactionRepository. Rows whose date
// cannot be parsed are returned with a zero Date.
func (r *Repository) GetTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 ORDER BY date DESC, created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("GetTransactions: query: %w", err)
	}
	defer rows.Close()

	out := []domain.Transaction{}
	for rows.Next() {
		var (
			tx                                        domain.Transaction
			rawDate                                   string
			recurringType, recurringEnd, receipt, cmt sql.NullString
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Title, &tx.Amount, &rawDate, &tx.Category,
			&tx.IsRecurring, &recurringType, &recurringEnd, &receipt, &cmt, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("GetTransactions: scan: %w", err)
		}

		if d, err := domain.ParseDate(rawDate, r.loc); err == nil {
			tx.Date = d
		} else {
			log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Stored transaction date is unparseable")
		}
		tx.RecurringType = domain.RecurringType(recurringType.String)
		if recurringEnd.Valid {
			if d, err := domain.ParseDate(recurringEnd.String, r.loc); err == nil {
				tx.RecurringEndDate = &d
			}
		}
		tx.ReceiptImage = receipt.String
		tx.Comment = cmt.String
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetTransactions: rows: %w", err)
	}
	return out, nil
}

// AddTransaction implements store.TransactionRepository.
func (r *Repository) AddTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	tx.ApplyDefaults()
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		tx.ID, tx.UserID, tx.Title, tx.Amount, tx.Date.Format(storedDateLayout), tx.Category, tx.IsRecurring,
		nullString(string(tx.RecurringType)), nullTime(tx.RecurringEndDate),
		nullString(tx.ReceiptImage), nullString(tx.Comment), tx.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("AddTransaction: insert: %w", err)
	}
	return &tx, nil
}

// UpdateTransaction implements store.TransactionRepository.
func (r *Repository) UpdateTransaction(ctx context.Context, tx domain.Transaction) error {
	tx.ApplyDefaults()

	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET title = $3, amount = $4, date = $5, category = $6, is_recurring = $7,
		     recurring_type = $8, recurring_end_date = $9, receipt_image = $10, comment = $11
		 WHERE id = $1 AND user_id = $2`,
		tx.ID, tx.UserID, tx.Title, tx.Amount, tx.Date.Format(storedDateLayout), tx.Category, tx.IsRecurring,
		nullString(string(tx.RecurringType)), nullTime(tx.RecurringEndDate),
		nullString(tx.ReceiptImage), nullString(tx.Comment))
	if err != nil {
		return fmt.Errorf("UpdateTransaction: update: %w", err)
	}
	return expectOneRow(res, "UpdateTransaction", tx.ID)
}

// DeleteTransaction implements store.TransactionRepository.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: delete: %w", err)
	}
	return expectOneRow(res, "DeleteTransaction", id)
}

// ConvertAmounts implements store.TransactionRepository.
func (r *Repository) ConvertAmounts(ctx context.Context, userID string, rate decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET amount = ROUND(amount * $2::numeric, 2) WHERE user_id = $1`,
		userID, rate)
	if err != nil {
		return fmt.Errorf("ConvertAmounts: update: %w", err)
	}
	return nil
}

// CreateUser implements store.UserRepository.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	user.Email = domain.NormalizeEmail(user.Email)
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("CreateUser: %s: %w", user.Email, store.ErrDuplicateEmail)
		}
		return nil, fmt.Errorf("CreateUser: insert: %w", err)
	}
	return &user, nil
}

// GetUserByID implements store.UserRepository.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, "GetUserByID", `WHERE id = $1`, id)
}

// GetUserByEmail implements store.UserRepository.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, "GetUserByEmail", `WHERE email = $1`, domain.NormalizeEmail(email))
}

func (r *Repository) getUser(ctx context.Context, op, where string, arg string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %s: %w", op, arg, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	return &u, nil
}

func expectOneRow(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %s: %w", op, id, store.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(storedDateLayout), Valid: true}
}

// Ensure Repository implements store.Repository.
var _ store.Repository = (*Repository)(nil)

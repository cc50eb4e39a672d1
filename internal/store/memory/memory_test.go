package memory

import (
	"context"
	"testing"
	"time"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_TransactionCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	older, err := s.AddTransaction(ctx, domain.Transaction{
		UserID: "u1",
		Amount: decimal.NewFromInt(-20),
		Date:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, older.ID)
	assert.Equal(t, domain.DefaultTitle, older.Title)
	assert.Equal(t, domain.DefaultCategory, older.Category)

	newer, err := s.AddTransaction(ctx, domain.Transaction{
		UserID:   "u1",
		Title:    "Paycheck",
		Amount:   decimal.NewFromInt(1000),
		Date:     time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
		Category: "Salary",
	})
	require.NoError(t, err)

	_, err = s.AddTransaction(ctx, domain.Transaction{UserID: "u2", Amount: decimal.NewFromInt(1), Date: time.Now()})
	require.NoError(t, err)

	txs, err := s.GetTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, newer.ID, txs[0].ID)
	assert.Equal(t, older.ID, txs[1].ID)

	updated := *older
	updated.Title = "Lunch"
	updated.Category = "Food"
	require.NoError(t, s.UpdateTransaction(ctx, updated))

	txs, _ = s.GetTransactions(ctx, "u1")
	assert.Equal(t, "Lunch", txs[1].Title)
	assert.Equal(t, older.CreatedAt, txs[1].CreatedAt)

	require.NoError(t, s.DeleteTransaction(ctx, "u1", older.ID))
	txs, _ = s.GetTransactions(ctx, "u1")
	assert.Len(t, txs, 1)
}

func TestStore_OwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx, err := s.AddTransaction(ctx, domain.Transaction{UserID: "owner", Amount: decimal.NewFromInt(5), Date: time.Now()})
	require.NoError(t, err)

	stolen := *tx
	stolen.UserID = "intruder"
	assert.ErrorIs(t, s.UpdateTransaction(ctx, stolen), store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTransaction(ctx, "intruder", tx.ID), store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTransaction(ctx, "owner", "missing"), store.ErrNotFound)

	_, err = s.AddTransaction(ctx, domain.Transaction{Amount: decimal.NewFromInt(5)})
	assert.Error(t, err)
}

func TestStore_ConvertAmounts(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.AddTransaction(ctx, domain.Transaction{UserID: "u1", Amount: decimal.RequireFromString("-10.00"), Date: time.Now()})
	_, _ = s.AddTransaction(ctx, domain.Transaction{UserID: "u2", Amount: decimal.RequireFromString("10.00"), Date: time.Now()})

	require.NoError(t, s.ConvertAmounts(ctx, "u1", decimal.RequireFromString("0.85")))

	u1, _ := s.GetTransactions(ctx, "u1")
	u2, _ := s.GetTransactions(ctx, "u2")
	assert.Equal(t, "-8.5", u1[0].Amount.String())
	assert.Equal(t, "10", u2[0].Amount.String())
}

func TestStore_Users(t *testing.T) {
	ctx := context.Background()
	s := New()

	u, err := s.CreateUser(ctx, domain.User{Email: " Ann@Example.com ", Username: "ann", PasswordHash: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)

	_, err = s.CreateUser(ctx, domain.User{Email: "ANN@example.com"})
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", byID.Username)

	byEmail, err := s.GetUserByEmail(ctx, "ann@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.GetUserByID(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

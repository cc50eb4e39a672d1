package bigquery

import (
	"context"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// InsertTransactionWithClient writes a single row with a DML INSERT.
// Rows still in the streaming buffer cannot be updated or deleted, so the
// streaming inserter is not used for transactions.
func InsertTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *TransactionRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			transaction_id,
			user_id,
			title,
			amount,
			date,
			category,
			is_recurring,
			recurring_type,
			recurring_end_date,
			receipt_image,
			comment,
			created_ts
		)
		VALUES (
			@transaction_id,
			@user_id,
			@title,
			@amount,
			@date,
			@category,
			@is_recurring,
			NULLIF(@recurring_type, ''),
			NULLIF(@recurring_end_date, ''),
			NULLIF(@receipt_image, ''),
			NULLIF(@comment, ''),
			@created_ts
		)
	`, ds.table(transactionsTable)))
	q.Parameters = append(mutableParams(row),
		bigquery.QueryParameter{Name: "created_ts", Value: row.CreatedTS},
	)

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// QueryTransactionsByUserWithClient returns the user's rows, newest first.
func QueryTransactionsByUserWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			user_id,
			title,
			amount,
			date,
			category,
			is_recurring,
			recurring_type,
			recurring_end_date,
			receipt_image,
			comment,
			created_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY date DESC, created_ts DESC
	`, ds.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByUser: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByUser: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// UpdateTransactionWithClient rewrites the mutable columns of a row owned by
// row.UserID and reports how many rows matched.
func UpdateTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *TransactionRow) (int64, error) {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET
			title = @title,
			amount = @amount,
			date = @date,
			category = @category,
			is_recurring = @is_recurring,
			recurring_type = NULLIF(@recurring_type, ''),
			recurring_end_date = NULLIF(@recurring_end_date, ''),
			receipt_image = NULLIF(@receipt_image, ''),
			comment = NULLIF(@comment, '')
		WHERE transaction_id = @transaction_id
		  AND user_id = @user_id
	`, ds.table(transactionsTable)))
	q.Parameters = mutableParams(row)

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("UpdateTransaction: %w", err)
	}
	return n, nil
}

// DeleteTransactionWithClient deletes a row owned by userID and reports how
// many rows matched.
func DeleteTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID, transactionID string) (int64, error) {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE transaction_id = @transaction_id
		  AND user_id = @user_id
	`, ds.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: transactionID},
		{Name: "user_id", Value: userID},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("DeleteTransaction: %w", err)
	}
	return n, nil
}

// ConvertAmountsWithClient multiplies every amount of the user by rate,
// rounded to cents.
func ConvertAmountsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string, rate *big.Rat) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET amount = ROUND(amount * @rate, 2)
		WHERE user_id = @user_id
	`, ds.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "rate", Value: rate},
		{Name: "user_id", Value: userID},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("ConvertAmounts: %w", err)
	}
	return nil
}

func mutableParams(row *TransactionRow) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "user_id", Value: row.UserID},
		{Name: "title", Value: row.Title},
		{Name: "amount", Value: row.Amount},
		{Name: "date", Value: row.Date},
		{Name: "category", Value: row.Category},
		{Name: "is_recurring", Value: row.IsRecurring},
		{Name: "recurring_type", Value: row.RecurringType.StringVal},
		{Name: "recurring_end_date", Value: row.RecurringEndDate.StringVal},
		{Name: "receipt_image", Value: row.ReceiptImage.StringVal},
		{Name: "comment", Value: row.Comment.StringVal},
	}
}

// runDML runs a DML statement, waits for it and returns the affected row count.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}

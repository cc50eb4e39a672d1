package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// InsertUserWithClient streams a single user row.
func InsertUserWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *UserRow) error {
	inserter := client.DatasetInProject(ds.Project, ds.Name).Table(usersTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertUser: inserting row: %w", err)
	}
	return nil
}

// FindUserWithClient returns the user whose column equals value, or nil when
// there is none. column must be user_id or email.
func FindUserWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, column, value string) (*UserRow, error) {
	if column != "user_id" && column != "email" {
		return nil, fmt.Errorf("FindUser: unsupported column %q", column)
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			user_id,
			email,
			username,
			password_hash,
			created_ts
		FROM %s
		WHERE %s = @value
		ORDER BY created_ts
		LIMIT 1
	`, ds.table(usersTable), column))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "value", Value: value},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindUser: query read: %w", err)
	}

	var r UserRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindUser: iter next: %w", err)
	}
	return &r, nil
}

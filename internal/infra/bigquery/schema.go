package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/fblacp/scales/internal/logger"
	"google.golang.org/api/googleapi"
)

// EnsureTables creates the dataset and tables if they do not exist. The
// schemas are inferred from the row structs.
func EnsureTables(ctx context.Context, client *bigquery.Client, ds Dataset) error {
	log := logger.FromContext(ctx)

	dataset := client.DatasetInProject(ds.Project, ds.Name)
	if err := dataset.Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !alreadyExists(err) {
		return fmt.Errorf("EnsureTables: create dataset %s: %w", ds.Name, err)
	}

	tables := []struct {
		name string
		row  interface{}
	}{
		{usersTable, UserRow{}},
		{transactionsTable, TransactionRow{}},
	}
	for _, t := range tables {
		schema, err := bigquery.InferSchema(t.row)
		if err != nil {
			return fmt.Errorf("EnsureTables: infer schema for %s: %w", t.name, err)
		}
		err = dataset.Table(t.name).Create(ctx, &bigquery.TableMetadata{Schema: schema})
		switch {
		case err == nil:
			log.Info().Str("table", t.name).Msg("Created table")
		case alreadyExists(err):
			log.Debug().Str("table", t.name).Msg("Table already exists")
		default:
			return fmt.Errorf("EnsureTables: create table %s: %w", t.name, err)
		}
	}
	return nil
}

func alreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}

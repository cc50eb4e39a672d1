// Package notionsync mirrors a user's transactions into a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/logger"
	"github.com/fblacp/scales/internal/summary"
	"github.com/jomei/notionapi"
)

const (
	// BatchSize defines the number of transactions to process in a single batch
	BatchSize = 100

	queryPageSize = 100
)

// TransactionSource loads a user's transactions.
type TransactionSource interface {
	GetTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
}

// Result counts what a sync did, or would do in a dry run.
type Result struct {
	Total    int `json:"total"`
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// SyncTransactions mirrors the user's transactions in rng into the Notion
// database without a currency column.
func SyncTransactions(ctx context.Context, repo TransactionSource, notionClient NotionService, notionDBID, userID string, rng summary.Range, dryRun bool) (*Result, error) {
	return SyncTransactionsWithCurrency(ctx, repo, notionClient, notionDBID, userID, rng, "", dryRun)
}

// SyncTransactionsWithCurrency mirrors the user's transactions in rng into
// the Notion database:
//  1. Queries the user's existing pages
//  2. Archives pages whose Transaction ID is missing or not in rng
//  3. Updates pages that already exist and creates the rest
//
// Pages are matched on the "Transaction ID" property, so running it twice
// creates nothing new. Per-page failures are logged and counted, not
// returned.
func SyncTransactionsWithCurrency(ctx context.Context, repo TransactionSource, notionClient NotionService, notionDBID, userID string, rng summary.Range, currencyCode string, dryRun bool) (*Result, error) {
	ctx = logger.ForUser(ctx, userID)
	log := logger.FromContext(ctx)

	log.Info().
		Str("period", rng.Label()).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	all, err := repo.GetTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SyncTransactions: query transactions: %w", err)
	}
	transactions, skipped := summary.Filter(all, rng)
	for _, s := range skipped {
		log.Warn().Str("transaction_id", s.ID).Str("reason", s.Reason).Msg("Not syncing transaction")
	}
	res := &Result{Total: len(transactions)}

	valid := make(map[string]bool, len(transactions))
	for _, tx := range transactions {
		valid[tx.ID] = true
	}

	pages, err := queryUserPages(ctx, notionClient, notionDBID, userID)
	if err != nil {
		return nil, fmt.Errorf("SyncTransactions: query Notion pages: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	existing := make(map[string]string, len(pages))
	for _, page := range pages {
		txID := extractTransactionID(page)
		pageID := string(page.ID)

		_, dup := existing[txID]
		if txID != "" && valid[txID] && !dup {
			existing[txID] = pageID
			continue
		}

		if dryRun {
			log.Info().Str("transaction_id", txID).Str("page_id", pageID).Msg("[DRY RUN] Would archive stale Notion page")
			res.Archived++
			continue
		}
		if err := notionClient.ArchivePage(ctx, pageID); err != nil {
			log.Warn().Err(err).Str("transaction_id", txID).Str("page_id", pageID).Msg("Failed to archive stale Notion page")
			res.Failed++
			continue
		}
		res.Archived++
	}

	for i := 0; i < len(transactions); i += BatchSize {
		end := i + BatchSize
		if end > len(transactions) {
			end = len(transactions)
		}
		log.Debug().Int("batch_start", i).Int("batch_end", end).Msg("Processing batch")

		for _, tx := range transactions[i:end] {
			pageID, ok := existing[tx.ID]
			if dryRun {
				if ok {
					res.Updated++
				} else {
					log.Info().Str("transaction_id", tx.ID).Msg("[DRY RUN] Would create new Notion page")
					res.Created++
				}
				continue
			}

			props := TransactionToNotionProperties(tx, currencyCode, rng.Location)
			if ok {
				if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
					log.Warn().Err(err).Str("transaction_id", tx.ID).Str("page_id", pageID).Msg("Failed to update Notion page")
					res.Failed++
					continue
				}
				res.Updated++
				continue
			}

			page, err := notionClient.CreatePage(ctx, notionDBID, props)
			if err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
				res.Failed++
				continue
			}
			log.Debug().Str("transaction_id", tx.ID).Str("page_id", string(page.ID)).Msg("Created Notion page")
			res.Created++
		}
	}

	log.Info().
		Int("archived", res.Archived).
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("failed", res.Failed).
		Int("total", res.Total).
		Msg("Transaction sync completed")

	return res, nil
}

// queryUserPages returns every page of the database owned by userID,
// following pagination cursors.
func queryUserPages(ctx context.Context, notionClient NotionService, databaseID, userID string) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			Filter: notionapi.PropertyFilter{
				Property: PropUserID,
				RichText: &notionapi.TextFilterCondition{Equals: userID},
			},
			PageSize: queryPageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryUserPages: %w", err)
		}
		for _, page := range resp.Results {
			if page.Archived || extractUserID(page) != userID {
				continue
			}
			pages = append(pages, page)
		}

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return pages, nil
}

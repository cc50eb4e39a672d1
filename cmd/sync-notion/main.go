package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/fblacp/scales/internal/app"
	"github.com/fblacp/scales/internal/config"
	"github.com/fblacp/scales/internal/logger"
	"github.com/fblacp/scales/internal/notionsync"
	"github.com/fblacp/scales/internal/summary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize structured logger
	log := app.NewLogger(cfg)

	// Parse CLI flags
	userID := flag.String("user-id", "", "User whose transactions are synced (required)")
	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format (required)")
	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", cfg.NotionTransactionsDB, "Notion database ID (or set NOTION_TRANSACTIONS_DB_ID)")
	currencyCode := flag.String("currency", "", "Currency code written to the Currency column (empty omits it)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *userID == "" {
		log.Fatal().Msg("Error: --user-id is required")
	}
	if *startDateStr == "" {
		log.Fatal().Msg("Error: --start-date is required")
	}
	if *endDateStr == "" {
		log.Fatal().Msg("Error: --end-date is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timezone")
	}

	// Parse and validate the date range
	rng, err := summary.ParseRange(*startDateStr, *endDateStr, loc)
	if err != nil {
		log.Fatal().
			Err(err).
			Str("start_date", *startDateStr).
			Str("end_date", *endDateStr).
			Msg("Error: invalid date range, expected YYYY-MM-DD with end-date not before start-date")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	repo, err := app.OpenRepository(ctx, cfg, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open repository")
	}
	defer repo.Close()

	// Initialize Notion client
	notionClient := notionsync.NewNotionClient(*notionToken)

	// Sync transactions
	res, err := notionsync.SyncTransactionsWithCurrency(ctx, repo, notionClient, *notionDBID, *userID, rng, *currencyCode, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	prefix := ""
	if *dryRun {
		prefix = "[dry run] "
	}
	fmt.Printf("%sSync completed: %d transactions, %d created, %d updated, %d archived, %d failed.\n",
		prefix, res.Total, res.Created, res.Updated, res.Archived, res.Failed)
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fblacp/scales/internal/app"
	"github.com/fblacp/scales/internal/config"
	"github.com/fblacp/scales/internal/currency"
	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/export"
	"github.com/fblacp/scales/internal/logger"
	"github.com/fblacp/scales/internal/store"
	"github.com/fblacp/scales/internal/summary"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := app.NewLogger(cfg)

	switch os.Args[1] {
	case "summary":
		runSummary(cfg, log)
	case "export":
		runExport(cfg, log)
	case "scan":
		runScan(cfg, log)
	case "categories":
		runCategories(log)
	case "currencies":
		runCurrencies()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Scales CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  summary     Print totals and category breakdown for a date range")
	fmt.Println("  export      Write a CSV, HTML or PDF report for a date range")
	fmt.Println("  scan        Scan a local receipt image into a draft transaction")
	fmt.Println("  categories  List the predefined categories")
	fmt.Println("  currencies  List the supported currencies")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// userFlags are shared by the commands that read one user's transactions.
type userFlags struct {
	userID *string
	email  *string
	start  *string
	end    *string
}

func addUserFlags(fs *flag.FlagSet) userFlags {
	return userFlags{
		userID: fs.String("user-id", "", "User ID"),
		email:  fs.String("email", "", "User email, instead of -user-id"),
		start:  fs.String("start-date", "", "First day (YYYY-MM-DD), defaults to the first of this month"),
		end:    fs.String("end-date", "", "Last day (YYYY-MM-DD), defaults to today"),
	}
}

// resolveUser returns the user ID named by -user-id or -email.
func resolveUser(ctx context.Context, users store.UserRepository, f userFlags) (string, error) {
	if *f.userID != "" {
		return *f.userID, nil
	}
	if *f.email == "" {
		return "", fmt.Errorf("one of -user-id or -email is required")
	}
	u, err := users.GetUserByEmail(ctx, domain.NormalizeEmail(*f.email))
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", *f.email, err)
	}
	return u.ID, nil
}

// resolveRange fills missing bounds with the current month so far.
func resolveRange(start, end string, now time.Time, loc *time.Location) (summary.Range, error) {
	def := summary.MonthToDate(now, loc)
	if start == "" {
		start = def.Start.String()
	}
	if end == "" {
		end = def.End.String()
	}
	return summary.ParseRange(start, end, loc)
}

// loadResult opens the repository and aggregates one user's range.
func loadResult(ctx context.Context, cfg *config.Config, f userFlags) (summary.Result, string, error) {
	loc, err := cfg.Location()
	if err != nil {
		return summary.Result{}, "", err
	}
	rng, err := resolveRange(*f.start, *f.end, time.Now(), loc)
	if err != nil {
		return summary.Result{}, "", err
	}

	repo, err := app.OpenRepository(ctx, cfg, loc)
	if err != nil {
		return summary.Result{}, "", err
	}
	defer repo.Close()

	userID, err := resolveUser(ctx, repo, f)
	if err != nil {
		return summary.Result{}, "", err
	}
	txs, err := repo.GetTransactions(ctx, userID)
	if err != nil {
		return summary.Result{}, "", err
	}
	return summary.Aggregate(ctx, txs, rng), userID, nil
}

// preferredCurrency reads the user's currency from the settings store.
func preferredCurrency(ctx context.Context, cfg *config.Config, userID, override string) string {
	if override != "" {
		return override
	}
	settings, closeKV, err := app.OpenKV(ctx, cfg)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Settings store unavailable, using default currency")
		return cfg.DefaultCurrency
	}
	defer closeKV()
	cur, err := currency.NewPreferences(settings, cfg.DefaultCurrency).Get(ctx, userID)
	if err != nil {
		return cfg.DefaultCurrency
	}
	return cur.Code
}

func runSummary(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	uf := addUserFlags(fs)
	code := fs.String("currency", "", "Currency code for amounts (defaults to the user's preference)")
	asJSON := fs.Bool("json", false, "Print the full summary as JSON")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	result, userID, err := loadResult(ctx, cfg, uf)
	if err != nil {
		log.Fatal().Err(err).Msg("Summary failed")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode summary")
		}
		return
	}

	cur := preferredCurrency(ctx, cfg, userID, *code)
	fmt.Printf("Summary %s\n", result.Period)
	fmt.Printf("  Income:   %s\n", currency.Format(result.Totals.Income, cur))
	fmt.Printf("  Expenses: %s\n", currency.Format(result.Totals.Expenses, cur))
	fmt.Printf("  Balance:  %s\n", currency.Format(result.Totals.Balance, cur))
	fmt.Printf("  Transactions: %d", len(result.Transactions))
	if n := len(result.Skipped); n > 0 {
		fmt.Printf(" (%d skipped, unreadable date)", n)
	}
	fmt.Println()

	if len(result.Breakdown.Expenses) > 0 {
		fmt.Println("\nExpenses by category:")
		for _, c := range result.Breakdown.Expenses {
			fmt.Printf("  %-16s %s\n", c.Category, currency.Format(c.Amount, cur))
		}
	}
	if len(result.Breakdown.Income) > 0 {
		fmt.Println("\nIncome by category:")
		for _, c := range result.Breakdown.Income {
			fmt.Printf("  %-16s %s\n", c.Category, currency.Format(c.Amount, cur))
		}
	}
}

func runExport(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	uf := addUserFlags(fs)
	formatName := fs.String("format", "pdf", "Report format: csv, html or pdf")
	out := fs.String("out", "", "Output file (defaults to the report's file name)")
	code := fs.String("currency", "", "Currency code for amounts (defaults to the user's preference)")
	publish := fs.Bool("publish", false, "Upload to GCS_BUCKET and print a signed link")
	fs.Parse(os.Args[2:])

	format, err := export.ParseFormat(*formatName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid format")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	result, userID, err := loadResult(ctx, cfg, uf)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}
	report := export.BuildReport(result, preferredCurrency(ctx, cfg, userID, *code))

	if *publish {
		runPublish(ctx, cfg, log, report, format, userID)
		return
	}

	path := *out
	if path == "" {
		path = report.Filename(format)
	}
	f, err := os.Create(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create output file")
	}
	if err := export.Write(f, report, format); err != nil {
		_ = f.Close()
		log.Fatal().Err(err).Msg("Failed to write report")
	}
	if err := f.Close(); err != nil {
		log.Fatal().Err(err).Msg("Failed to close output file")
	}
	fmt.Printf("Wrote %s (%d transactions)\n", path, len(report.Transactions))
}

func runPublish(ctx context.Context, cfg *config.Config, log zerolog.Logger, report export.Report, format export.Format, userID string) {
	objects, closeStorage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer closeStorage()
	if objects == nil {
		log.Fatal().Msg("Publishing requires GCS_BUCKET")
	}

	data, err := export.Render(report, format)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render report")
	}
	pub, err := export.NewPublisher(objects, cfg.GCSBucket).Publish(ctx, userID+"/"+report.Filename(format), data, format.ContentType())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to publish report")
	}
	fmt.Printf("Published %s\n", pub.URI)
	if pub.URL != "" {
		fmt.Printf("Download (valid %s): %s\n", export.DefaultLinkTTL, pub.URL)
	}
}

func runScan(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a receipt image")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Usage: cli scan -file PATH")
	}

	image, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read image")
	}
	mimeType := mime.TypeByExtension(filepath.Ext(*filePath))
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timezone")
	}
	_, scanner, err := app.NewScanner(ctx, cfg, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scanner")
	}

	log.Info().Str("file", *filePath).Str("mime_type", mimeType).Msg("Scanning receipt")
	draft, err := scanner.Scan(ctx, image, mimeType)
	if err != nil {
		log.Fatal().Err(err).Msg("Scan failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(draft); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode draft")
	}
}

func runCategories(log zerolog.Logger) {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	typ := fs.String("type", "all", "Category type: income, expense or all")
	fs.Parse(os.Args[2:])

	cats := domain.CategoriesByType(domain.TransactionType(*typ))
	if len(cats) == 0 {
		log.Fatal().Str("type", *typ).Msg("Unknown category type")
	}
	for _, c := range cats {
		fmt.Println(c)
	}
}

func runCurrencies() {
	for _, c := range currency.Supported() {
		fmt.Printf("%-4s %-3s %s\n", c.Code, c.Symbol, c.Name)
	}
}

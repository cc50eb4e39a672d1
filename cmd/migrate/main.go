package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/fblacp/scales/internal/config"
	infraBQ "github.com/fblacp/scales/internal/infra/bigquery"
	"github.com/fblacp/scales/internal/infra/postgres"
	_ "github.com/lib/pq"
)

// options is the parsed command line.
type options struct {
	Command     string // up, down or bigquery
	Steps       int
	DatabaseURL string
	Project     string
	Dataset     string
}

func usage() string {
	return `Usage:
  migrate up    [-database-url URL]           apply pending Postgres migrations
  migrate down  [-database-url URL] -steps N  roll back N Postgres migrations
  migrate bigquery [-project ID] [-dataset NAME]  create missing BigQuery tables`
}

// parseArgs reads the subcommand and its flags. cfg supplies defaults.
func parseArgs(args []string, cfg *config.Config) (options, error) {
	if len(args) == 0 {
		return options{}, errors.New("missing command")
	}
	opts := options{
		Command:     args[0],
		DatabaseURL: cfg.PostgresURL,
		Project:     cfg.GCPProject,
		Dataset:     cfg.BQDataset,
	}

	fs := flag.NewFlagSet(opts.Command, flag.ContinueOnError)
	switch opts.Command {
	case "up", "down":
		fs.StringVar(&opts.DatabaseURL, "database-url", opts.DatabaseURL, "Postgres connection string (or set POSTGRES_URL)")
		if opts.Command == "down" {
			fs.IntVar(&opts.Steps, "steps", 0, "Number of migrations to roll back (required)")
		}
	case "bigquery":
		fs.StringVar(&opts.Project, "project", opts.Project, "GCP project ID (or set GCP_PROJECT)")
		fs.StringVar(&opts.Dataset, "dataset", opts.Dataset, "BigQuery dataset ID (or set BQ_DATASET)")
	default:
		return options{}, fmt.Errorf("unknown command %q", opts.Command)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return options{}, err
	}

	switch {
	case opts.Command != "bigquery" && opts.DatabaseURL == "":
		return options{}, errors.New("-database-url or POSTGRES_URL is required")
	case opts.Command == "down" && opts.Steps <= 0:
		return options{}, errors.New("-steps must be a positive number")
	case opts.Command == "bigquery" && opts.Project == "":
		return options{}, errors.New("-project or GCP_PROJECT is required")
	}
	return opts, nil
}

func main() {
	// Backend validation does not apply to migrations.
	os.Setenv("STORE_BACKEND", config.BackendMemory)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts, err := parseArgs(os.Args[1:], cfg)
	if err != nil {
		log.Fatalf("Error: %v\n\n%s", err, usage())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if opts.Command == "bigquery" {
		runBigQuery(ctx, opts)
		return
	}
	runPostgres(opts)
}

func runPostgres(opts options) {
	db, err := sql.Open("postgres", opts.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var res postgres.MigrationResult
	if opts.Command == "down" {
		res, err = postgres.MigrateDown(db, opts.Steps)
	} else {
		res, err = postgres.MigrateUp(db)
	}
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if res.Before == res.After {
		log.Printf("No migrations to apply. Database is up to date at version %d.", res.After)
		return
	}
	log.Printf("Migrated from version %d to %d.", res.Before, res.After)
}

func runBigQuery(ctx context.Context, opts options) {
	client, err := bigquery.NewClient(ctx, opts.Project)
	if err != nil {
		log.Fatalf("Failed to create BigQuery client: %v", err)
	}
	defer client.Close()

	log.Printf("Connected to BigQuery project: %s, dataset: %s", opts.Project, opts.Dataset)

	ds := infraBQ.Dataset{Project: opts.Project, Name: opts.Dataset}
	if err := infraBQ.EnsureTables(ctx, client, ds); err != nil {
		log.Fatalf("Failed to ensure tables: %v", err)
	}
	log.Println("BigQuery tables are up to date.")
}

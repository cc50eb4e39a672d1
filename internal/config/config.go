package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendBigQuery = "bigquery"
)

// Config holds runtime settings. Defaults match a local development setup
// with in-memory storage.
type Config struct {
	Port     string
	LogLevel string
	LogJSON  bool

	StoreBackend string
	PostgresURL  string

	GCPProject string
	BQDataset  string
	GCSBucket  string

	RedisAddr     string
	RedisPassword string

	JWTSecret   string
	TokenTTL    time.Duration
	Timezone    string
	GeminiModel string

	ExchangeRateAPIKey string
	ReceiptKeywordFile string

	NotionToken          string
	NotionTransactionsDB string
	DefaultCurrency      string
	JobWorkers           int
}

// Load reads an optional .env file (or the files given) and then the
// environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Load: reading env file: %w", err)
	}
	return ProcessEnvironmentVariables()
}

// ProcessEnvironmentVariables builds a Config from the environment.
func ProcessEnvironmentVariables() (*Config, error) {
	env := Config{
		Port:            "8080",
		LogLevel:        "info",
		StoreBackend:    BackendMemory,
		BQDataset:       "scales",
		JWTSecret:       "dev-secret-change-me",
		TokenTTL:        24 * time.Hour,
		Timezone:        "Local",
		GeminiModel:     "gemini-2.5-flash",
		DefaultCurrency: "USD",
		JobWorkers:      5,
	}

	setString(&env.Port, "PORT")
	setString(&env.LogLevel, "LOG_LEVEL")
	setString(&env.StoreBackend, "STORE_BACKEND")
	setString(&env.PostgresURL, "POSTGRES_URL")
	setString(&env.GCPProject, "GCP_PROJECT")
	setString(&env.BQDataset, "BQ_DATASET")
	setString(&env.GCSBucket, "GCS_BUCKET")
	setString(&env.RedisAddr, "REDIS_ADDR")
	setString(&env.RedisPassword, "REDIS_PASSWORD")
	setString(&env.JWTSecret, "JWT_SECRET")
	setString(&env.Timezone, "TIMEZONE")
	setString(&env.GeminiModel, "GEMINI_MODEL")
	setString(&env.ExchangeRateAPIKey, "EXCHANGE_RATE_API_KEY")
	setString(&env.ReceiptKeywordFile, "RECEIPT_KEYWORDS_FILE")
	setString(&env.NotionToken, "NOTION_TOKEN")
	setString(&env.NotionTransactionsDB, "NOTION_TRANSACTIONS_DB_ID")
	setString(&env.DefaultCurrency, "DEFAULT_CURRENCY")

	if v := os.Getenv("LOG_JSON"); v != "" {
		env.LogJSON = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("ProcessEnvironmentVariables: TOKEN_TTL: %w", err)
		}
		env.TokenTTL = d
	}
	if v := os.Getenv("JOB_WORKERS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n <= 0 {
			return nil, fmt.Errorf("ProcessEnvironmentVariables: JOB_WORKERS must be a positive integer, got %q", v)
		}
		env.JobWorkers = n
	}

	env.StoreBackend = strings.ToLower(env.StoreBackend)
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// Validate checks combinations of settings.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("Validate: POSTGRES_URL is required for the postgres backend")
		}
	case BackendBigQuery:
		if c.GCPProject == "" {
			return fmt.Errorf("Validate: GCP_PROJECT is required for the bigquery backend")
		}
	default:
		return fmt.Errorf("Validate: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the timezone used to decide a transaction's calendar day.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("Location: %w", err)
	}
	return loc, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); len(v) != 0 {
		*dst = v
	}
}

package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fblacp/scales/internal/kv"
	"github.com/fblacp/scales/internal/logger"
	"github.com/shopspring/decimal"
)

const (
	DefaultPrimaryURL  = "https://v6.exchangerate-api.com/v6"
	DefaultFallbackURL = "https://api.exchangerate-api.com/v4"

	requestTimeout = 10 * time.Second
	cacheTTL       = 24 * time.Hour
)

// Client fetches live exchange rates, falling back to a cached rate and
// finally to 1 when every source fails.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	primaryURL  string
	fallbackURL string
	cache       kv.Store
	now         func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURLs overrides the API endpoints.
func WithBaseURLs(primary, fallback string) ClientOption {
	return func(c *Client) {
		c.primaryURL = strings.TrimRight(primary, "/")
		c.fallbackURL = strings.TrimRight(fallback, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client. Without an API key only the free endpoint
// is queried. cache stores the last good rate per currency pair.
func NewClient(apiKey string, cache kv.Store, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: requestTimeout},
		apiKey:      apiKey,
		primaryURL:  DefaultPrimaryURL,
		fallbackURL: DefaultFallbackURL,
		cache:       cache,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type primaryResponse struct {
	Result          string             `json:"result"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

type fallbackResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

type cachedRate struct {
	Rate      decimal.Decimal `json:"rate"`
	Timestamp time.Time       `json:"timestamp"`
}

// Rate returns how many units of to one unit of from buys.
func (c *Client) Rate(ctx context.Context, from, to string) decimal.Decimal {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1)
	}
	log := logger.FromContext(ctx).With().Str("from", from).Str("to", to).Logger()

	rate, err := c.fetch(ctx, from, to)
	if err == nil {
		c.storeCached(ctx, from, to, rate)
		return rate
	}
	log.Warn().Err(err).Msg("Fetching exchange rate failed")

	if cached, ok := c.loadCached(ctx, from, to); ok {
		log.Info().Str("rate", cached.String()).Msg("Using cached exchange rate")
		return cached
	}
	log.Warn().Msg("Using default exchange rate of 1")
	return decimal.NewFromInt(1)
}

func (c *Client) fetch(ctx context.Context, from, to string) (decimal.Decimal, error) {
	var errs []error
	if c.apiKey != "" {
		var body primaryResponse
		url := fmt.Sprintf("%s/%s/latest/%s", c.primaryURL, c.apiKey, from)
		err := c.getJSON(ctx, url, &body)
		if err == nil && body.Result != "success" {
			err = fmt.Errorf("result %q", body.Result)
		}
		if err == nil {
			rate, err := pick(body.ConversionRates, to)
			if err == nil {
				return rate, nil
			}
			errs = append(errs, fmt.Errorf("primary: %w", err))
		} else {
			errs = append(errs, fmt.Errorf("primary: %w", err))
		}
	}

	var body fallbackResponse
	url := fmt.Sprintf("%s/latest/%s", c.fallbackURL, from)
	err := c.getJSON(ctx, url, &body)
	if err == nil {
		rate, err := pick(body.Rates, to)
		if err == nil {
			return rate, nil
		}
		errs = append(errs, fmt.Errorf("fallback: %w", err))
	} else {
		errs = append(errs, fmt.Errorf("fallback: %w", err))
	}
	return decimal.Zero, errors.Join(errs...)
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func pick(rates map[string]float64, to string) (decimal.Decimal, error) {
	v, ok := rates[to]
	if !ok || v <= 0 {
		return decimal.Zero, fmt.Errorf("exchange rate not found for %s", to)
	}
	return decimal.NewFromFloat(v), nil
}

func cacheKey(from, to string) string {
	return "rate:" + from + ":" + to
}

func (c *Client) storeCached(ctx context.Context, from, to string, rate decimal.Decimal) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(cachedRate{Rate: rate, Timestamp: c.now()})
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKey(from, to), string(data)); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Caching exchange rate failed")
	}
}

func (c *Client) loadCached(ctx context.Context, from, to string) (decimal.Decimal, bool) {
	if c.cache == nil {
		return decimal.Zero, false
	}
	raw, err := c.cache.Get(ctx, cacheKey(from, to))
	if err != nil {
		return decimal.Zero, false
	}
	var cr cachedRate
	if err := json.Unmarshal([]byte(raw), &cr); err != nil {
		return decimal.Zero, false
	}
	if c.now().Sub(cr.Timestamp) >= cacheTTL || !cr.Rate.IsPositive() {
		return decimal.Zero, false
	}
	return cr.Rate, true
}

// Package exchangerate provides currency exchange rate fetching and caching functionality.
package exchangerate

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// cacheTTL is how long a cached rate counts as fresh. Rates move slowly
// enough that half a day of staleness is acceptable for portfolio valuation.
const cacheTTL = 12 * time.Hour

// Client for an exchangerate-api.com compatible provider
type Client struct {
	baseURL string
	client  *http.Client
	db      *sql.DB // optional - if nil, caching is disabled
	log     zerolog.Logger
}

// NewClient creates a new exchange rate client.
// db is optional - if nil, caching is disabled.
func NewClient(baseURL string, db *sql.DB, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		db:      db,
		log:     log.With().Str("client", "exchangerate").Logger(),
	}
}

// ratesResponse is the provider payload
type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// GetRate fetches the exchange rate from one currency to another, with
// persistent cache. If the API fails, a stale cached rate is returned when
// available (stale data beats no data).
func (c *Client) GetRate(fromCurrency, toCurrency string) (float64, error) {
	if fromCurrency == toCurrency {
		return 1.0, nil
	}

	pair := fromCurrency + ":" + toCurrency

	if rate, ok := c.cachedRate(pair, cacheTTL); ok {
		c.log.Debug().
			Str("pair", pair).
			Float64("rate", rate).
			Msg("Cache hit")
		return rate, nil
	}

	rate, err := c.fetchRate(fromCurrency, toCurrency)
	if err != nil {
		// API failed - any cached rate, however old, is better than nothing
		if stale, ok := c.cachedRate(pair, 0); ok {
			c.log.Warn().
				Err(err).
				Str("pair", pair).
				Float64("rate", stale).
				Msg("API failed, using stale cached rate")
			return stale, nil
		}
		return 0, err
	}

	c.storeRate(pair, rate)
	return rate, nil
}

// fetchRate calls the provider API
func (c *Client) fetchRate(fromCurrency, toCurrency string) (float64, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, fromCurrency)
	c.log.Debug().Str("url", url).Msg("Fetching rates")

	resp, err := c.client.Get(url)
	if err != nil {
		return 0, fmt.Errorf("exchange rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("exchange rate API returned status %d", resp.StatusCode)
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode rates response: %w", err)
	}

	rate, ok := payload.Rates[toCurrency]
	if !ok {
		return 0, fmt.Errorf("no rate for %s in %s response", toCurrency, fromCurrency)
	}

	return rate, nil
}

// cachedRate returns a cached rate for the pair. maxAge 0 disables the
// freshness check (stale fallback).
func (c *Client) cachedRate(pair string, maxAge time.Duration) (float64, bool) {
	if c.db == nil {
		return 0, false
	}

	var rate float64
	var fetchedAt int64
	err := c.db.QueryRow(
		"SELECT rate, fetched_at FROM exchange_rate_cache WHERE pair = ?", pair,
	).Scan(&rate, &fetchedAt)
	if err != nil {
		return 0, false
	}

	if maxAge > 0 && time.Since(time.Unix(fetchedAt, 0)) > maxAge {
		return 0, false
	}

	return rate, true
}

// storeRate upserts a rate into the cache; failures are logged, not returned
func (c *Client) storeRate(pair string, rate float64) {
	if c.db == nil {
		return
	}

	_, err := c.db.Exec(
		`INSERT INTO exchange_rate_cache (pair, rate, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(pair) DO UPDATE SET rate = excluded.rate, fetched_at = excluded.fetched_at`,
		pair, rate, time.Now().Unix(),
	)
	if err != nil {
		c.log.Warn().Err(err).Str("pair", pair).Msg("Failed to cache exchange rate")
	}
}

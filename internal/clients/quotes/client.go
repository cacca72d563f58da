// Package quotes provides the HTTP client for the external quote provider.
package quotes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/folio/internal/marketdata"
)

// Candle is a single price bar returned by the provider
type Candle struct {
	Timestamp int64   `json:"ts"` // Unix seconds, bar open time
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// candlesResponse is the provider's chart payload
type candlesResponse struct {
	Symbol  string   `json:"symbol"`
	Candles []Candle `json:"candles"`
	Error   string   `json:"error,omitempty"`
}

// Client fetches candle data from the quote provider
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new quote provider client.
// apiKey is optional - if empty, requests are sent unauthenticated.
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("client", "quotes").Logger(),
	}
}

// GetCandles fetches price bars for a symbol at the given interval over
// [start, end). The provider may return an empty set for fine intervals on
// old windows; retrying at daily granularity is the caller's decision.
func (c *Client) GetCandles(symbol string, interval marketdata.Interval, start, end time.Time) ([]Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol cannot be empty")
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", string(interval))
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(end.Unix(), 10))

	reqURL := fmt.Sprintf("%s/v8/chart?%s", c.baseURL, params.Encode())
	c.log.Debug().
		Str("symbol", symbol).
		Str("interval", string(interval)).
		Msg("Fetching candles")

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote provider returned status %d for %s", resp.StatusCode, symbol)
	}

	var payload candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode candles response: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("quote provider error for %s: %s", symbol, payload.Error)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("candles", len(payload.Candles)).
		Msg("Candles fetched")

	return payload.Candles, nil
}

package assets

import "time"

// Asset represents a tracked instrument: the symbol, the exchange it trades
// on, and when its price data was last refreshed from the quote provider.
type Asset struct {
	ID          string     `json:"id"`
	Symbol      string     `json:"symbol"`
	Exchange    string     `json:"exchange"`
	Timezone    string     `json:"timezone,omitempty"` // optional override when the exchange code is not recognized
	Currency    string     `json:"currency"`
	Name        string     `json:"name,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Candle is a stored price bar
type Candle struct {
	Timestamp int64   `json:"ts"` // Unix seconds, bar open time
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// Chart is the response served for a chart request: the window's candles,
// the interval they were sampled at, and the freshness decision that gated
// the provider call.
type Chart struct {
	AssetID  string   `json:"asset_id"`
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
	Candles  []Candle `json:"candles"`
	Fetched  bool     `json:"fetched"`
	Reason   string   `json:"reason"`
}

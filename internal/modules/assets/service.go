package assets

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/folio/internal/clients/quotes"
	"github.com/foliotrack/folio/internal/marketdata"
)

// QuoteClient defines the contract for the quote provider client.
// Used by the chart service to enable testing with mocks.
type QuoteClient interface {
	GetCandles(symbol string, interval marketdata.Interval, start, end time.Time) ([]quotes.Candle, error)
}

// Service loads chart data. It owns the only call path to the quote
// provider: every fetch goes through the freshness policy first, and the
// sampling interval is chosen from the requested window.
type Service struct {
	repo   *Repository
	policy *marketdata.Service
	quotes QuoteClient
	log    zerolog.Logger
}

// NewService creates a new chart service
func NewService(repo *Repository, policy *marketdata.Service, quoteClient QuoteClient, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		policy: policy,
		quotes: quoteClient,
		log:    log.With().Str("service", "assets").Logger(),
	}
}

// GetChart serves candles for the requested window. When the stored data is
// stale per the freshness policy, the provider is called first and the bars
// persisted; otherwise stored data is served as-is.
func (s *Service) GetChart(assetID string, start, end time.Time, forceRefresh bool) (*Chart, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("chart window end must be after start")
	}

	asset, err := s.repo.GetByID(assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset %s: %w", assetID, err)
	}
	if asset == nil {
		return nil, fmt.Errorf("asset %s not found", assetID)
	}

	now := time.Now()

	query, err := marketdata.NewQuery(asset.Exchange, asset.Timezone, asset.LastUpdated, forceRefresh)
	if err != nil {
		return nil, fmt.Errorf("invalid freshness query for asset %s: %w", assetID, err)
	}

	decision := s.policy.ShouldFetchDataAt(query, now)
	interval := marketdata.SelectInterval(start, end, now)

	if decision.ShouldFetch {
		interval, err = s.refresh(asset, interval, start, end, now)
		if err != nil {
			// Stored data beats an error page; serve what we have
			s.log.Warn().
				Err(err).
				Str("asset", asset.Symbol).
				Msg("Refresh failed, serving stored data")
		}
	} else {
		s.log.Debug().
			Str("asset", asset.Symbol).
			Str("reason", decision.Reason).
			Msg("Skipping provider fetch")
	}

	candles, err := s.repo.GetCandles(assetID, interval, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load candles for asset %s: %w", assetID, err)
	}

	// A fine interval may have nothing stored even though daily bars exist
	// for the window (e.g. the provider refused the fine request earlier).
	if len(candles) == 0 && interval != marketdata.Interval1d {
		interval = marketdata.Interval1d
		candles, err = s.repo.GetCandles(assetID, interval, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to load daily candles for asset %s: %w", assetID, err)
		}
	}

	return &Chart{
		AssetID:  asset.ID,
		Symbol:   asset.Symbol,
		Interval: string(interval),
		Candles:  candles,
		Fetched:  decision.ShouldFetch,
		Reason:   decision.Reason,
	}, nil
}

// refresh fetches candles from the provider and persists them. When a fine
// interval comes back empty, the fetch is retried once at daily granularity.
// Returns the interval the data was actually stored at.
func (s *Service) refresh(asset *Asset, interval marketdata.Interval, start, end, now time.Time) (marketdata.Interval, error) {
	bars, err := s.quotes.GetCandles(asset.Symbol, interval, start, end)
	if err != nil {
		return interval, err
	}

	if len(bars) == 0 && interval != marketdata.Interval1d {
		s.log.Debug().
			Str("asset", asset.Symbol).
			Str("interval", string(interval)).
			Msg("Empty result at fine interval, retrying at daily")
		interval = marketdata.Interval1d
		bars, err = s.quotes.GetCandles(asset.Symbol, interval, start, end)
		if err != nil {
			return interval, err
		}
	}

	if err := s.repo.SaveCandles(asset.ID, interval, toStoredCandles(bars)); err != nil {
		return interval, err
	}

	if err := s.repo.SetLastUpdated(asset.ID, now); err != nil {
		return interval, err
	}
	lastUpdated := now
	asset.LastUpdated = &lastUpdated

	s.log.Info().
		Str("asset", asset.Symbol).
		Str("interval", string(interval)).
		Int("candles", len(bars)).
		Msg("Price data refreshed")

	return interval, nil
}

func toStoredCandles(bars []quotes.Candle) []Candle {
	out := make([]Candle, len(bars))
	for i, b := range bars {
		out[i] = Candle{
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	return out
}

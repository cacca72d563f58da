package portfolio

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/internal/modules/assets"
)

// PriceSource supplies the most recent daily close for an asset
type PriceSource interface {
	LatestClose(assetID string) (float64, bool, error)
}

// RateProvider converts between currencies
type RateProvider interface {
	GetRate(from, to string) (float64, error)
}

// AssetDirectory resolves asset metadata for holdings
type AssetDirectory interface {
	GetByID(id string) (*assets.Asset, error)
}

// Service computes holdings and portfolio summaries. All position math
// (average cost, realized P&L, dividends, cash) happens here and nowhere
// else, by replaying the transaction log in order.
type Service struct {
	repo   *Repository
	dir    AssetDirectory
	prices PriceSource
	rates  RateProvider
	log    zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(repo *Repository, dir AssetDirectory, prices PriceSource, rates RateProvider, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		dir:    dir,
		prices: prices,
		rates:  rates,
		log:    log.With().Str("service", "portfolio").Logger(),
	}
}

// Holdings replays a portfolio's transactions and returns current positions
// plus cash balances per currency. Positions with zero quantity are kept when
// they carry realized P&L or dividends, so closed trades stay visible.
func (s *Service) Holdings(portfolioID string) ([]Holding, map[string]decimal.Decimal, error) {
	txs, err := s.repo.GetTransactions(portfolioID)
	if err != nil {
		return nil, nil, err
	}

	positions := make(map[string]*Holding)
	cash := make(map[string]decimal.Decimal)

	credit := func(currency string, amount decimal.Decimal) {
		cash[currency] = cash[currency].Add(amount)
	}

	for _, tx := range txs {
		switch tx.Type {
		case TypeBuy, TypeSell, TypeDividend:
			h := positions[tx.AssetID]
			if h == nil {
				h = &Holding{AssetID: tx.AssetID, Currency: tx.Currency}
				positions[tx.AssetID] = h
			}
			if err := applyToPosition(h, tx); err != nil {
				return nil, nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
			}
		}

		// Cash side of the same event.
		switch tx.Type {
		case TypeBuy:
			credit(tx.Currency, tx.Quantity.Mul(tx.UnitPrice).Add(tx.Fee).Neg())
		case TypeSell:
			credit(tx.Currency, tx.Quantity.Mul(tx.UnitPrice).Sub(tx.Fee))
		case TypeDividend:
			credit(tx.Currency, tx.Amount.Sub(tx.Fee))
		case TypeDeposit:
			credit(tx.Currency, tx.Amount)
		case TypeWithdraw:
			credit(tx.Currency, tx.Amount.Neg())
		}
	}

	holdings := make([]Holding, 0, len(positions))
	for _, h := range positions {
		if a, err := s.dir.GetByID(h.AssetID); err == nil && a != nil {
			h.Symbol = a.Symbol
			if h.Currency == "" {
				h.Currency = a.Currency
			}
		}
		holdings = append(holdings, *h)
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })

	return holdings, cash, nil
}

// applyToPosition updates one position with a single transaction using the
// average-cost method.
func applyToPosition(h *Holding, tx Transaction) error {
	switch tx.Type {
	case TypeBuy:
		h.Quantity = h.Quantity.Add(tx.Quantity)
		h.CostBasis = h.CostBasis.Add(tx.Quantity.Mul(tx.UnitPrice)).Add(tx.Fee)
		h.AvgCost = h.CostBasis.Div(h.Quantity)
	case TypeSell:
		if tx.Quantity.GreaterThan(h.Quantity) {
			return fmt.Errorf("sell of %s exceeds held quantity %s", tx.Quantity, h.Quantity)
		}
		h.RealizedPnL = h.RealizedPnL.Add(tx.Quantity.Mul(tx.UnitPrice.Sub(h.AvgCost))).Sub(tx.Fee)
		h.CostBasis = h.CostBasis.Sub(tx.Quantity.Mul(h.AvgCost))
		h.Quantity = h.Quantity.Sub(tx.Quantity)
		if h.Quantity.IsZero() {
			h.AvgCost = decimal.Zero
			h.CostBasis = decimal.Zero
		}
	case TypeDividend:
		h.Dividends = h.Dividends.Add(tx.Amount)
	}
	return nil
}

// Summarize values a portfolio's holdings and cash in its base currency.
// Positions without a stored price are included unvalued rather than failing
// the whole summary.
func (s *Service) Summarize(portfolioID string) (*Summary, error) {
	p, err := s.repo.GetPortfolio(portfolioID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("portfolio %s not found", portfolioID)
	}

	holdings, cash, err := s.Holdings(portfolioID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for i := range holdings {
		h := &holdings[i]
		if h.Quantity.IsZero() {
			continue
		}
		price, ok, err := s.prices.LatestClose(h.AssetID)
		if err != nil {
			return nil, fmt.Errorf("failed to price %s: %w", h.Symbol, err)
		}
		if !ok {
			s.log.Debug().Str("symbol", h.Symbol).Msg("no stored price, skipping valuation")
			continue
		}
		value := h.Quantity.Mul(decimal.NewFromFloat(price))
		h.MarketValue = &value
		pnl := value.Sub(h.CostBasis)
		h.UnrealizedPnL = &pnl

		inBase, err := s.toBase(value, h.Currency, p.BaseCurrency)
		if err != nil {
			return nil, err
		}
		total = total.Add(inBase)
	}

	for currency, amount := range cash {
		inBase, err := s.toBase(amount, currency, p.BaseCurrency)
		if err != nil {
			return nil, err
		}
		total = total.Add(inBase)
	}

	return &Summary{
		PortfolioID:  p.ID,
		BaseCurrency: p.BaseCurrency,
		Holdings:     holdings,
		Cash:         cash,
		TotalValue:   total,
	}, nil
}

func (s *Service) toBase(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == "" || from == to {
		return amount, nil
	}
	rate, err := s.rates.GetRate(from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to convert %s to %s: %w", from, to, err)
	}
	return amount.Mul(decimal.NewFromFloat(rate)), nil
}

package portfolio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates the supported transaction kinds
type TransactionType string

const (
	TypeBuy      TransactionType = "buy"
	TypeSell     TransactionType = "sell"
	TypeDividend TransactionType = "dividend"
	TypeDeposit  TransactionType = "deposit"
	TypeWithdraw TransactionType = "withdraw"
)

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	switch t {
	case TypeBuy, TypeSell, TypeDividend, TypeDeposit, TypeWithdraw:
		return true
	}
	return false
}

// Portfolio groups transactions under a base currency
type Portfolio struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	BaseCurrency string    `json:"base_currency"`
	CreatedAt    time.Time `json:"created_at"`
}

// Transaction is a single portfolio event. Quantity and UnitPrice are set
// for buy/sell; Amount carries the cash effect for every type (gross trade
// value for buy/sell, payout for dividends, moved cash for deposit/withdraw).
type Transaction struct {
	ID          string          `json:"id"`
	PortfolioID string          `json:"portfolio_id"`
	AssetID     string          `json:"asset_id,omitempty"`
	Type        TransactionType `json:"type"`
	Date        time.Time       `json:"date"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Fee         decimal.Decimal `json:"fee"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate checks the per-type invariants before persistence
func (tx *Transaction) Validate() error {
	if tx.PortfolioID == "" {
		return fmt.Errorf("transaction requires a portfolio")
	}
	if !tx.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q", tx.Type)
	}
	if tx.Currency == "" {
		return fmt.Errorf("transaction requires a currency")
	}
	if tx.Date.IsZero() {
		return fmt.Errorf("transaction requires a date")
	}
	if tx.Fee.IsNegative() {
		return fmt.Errorf("fee cannot be negative")
	}

	switch tx.Type {
	case TypeBuy, TypeSell:
		if tx.AssetID == "" {
			return fmt.Errorf("%s requires an asset", tx.Type)
		}
		if !tx.Quantity.IsPositive() {
			return fmt.Errorf("%s requires a positive quantity", tx.Type)
		}
		if tx.UnitPrice.IsNegative() {
			return fmt.Errorf("%s unit price cannot be negative", tx.Type)
		}
	case TypeDividend:
		if tx.AssetID == "" {
			return fmt.Errorf("dividend requires an asset")
		}
		if !tx.Amount.IsPositive() {
			return fmt.Errorf("dividend requires a positive amount")
		}
	case TypeDeposit, TypeWithdraw:
		if !tx.Amount.IsPositive() {
			return fmt.Errorf("%s requires a positive amount", tx.Type)
		}
	}

	return nil
}

// Holding is the computed position in one asset
type Holding struct {
	AssetID       string          `json:"asset_id"`
	Symbol        string          `json:"symbol"`
	Currency      string          `json:"currency"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgCost       decimal.Decimal `json:"avg_cost"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	Dividends     decimal.Decimal `json:"dividends"`
	MarketValue   *decimal.Decimal `json:"market_value,omitempty"`
	UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl,omitempty"`
}

// Summary is the computed state of a whole portfolio, valued in its base
// currency where conversion rates are available.
type Summary struct {
	PortfolioID  string                     `json:"portfolio_id"`
	BaseCurrency string                     `json:"base_currency"`
	Holdings     []Holding                  `json:"holdings"`
	Cash         map[string]decimal.Decimal `json:"cash"`
	TotalValue   decimal.Decimal            `json:"total_value"`
}

// Package recurring schedules repeating portfolio transactions (savings
// plans, standing withdrawals) and materializes them into the transaction
// log on their cron schedule.
package recurring

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/internal/modules/portfolio"
)

// Plan is a recurring transaction definition. Schedule is a standard
// 5-field cron expression or a descriptor like "@monthly".
type Plan struct {
	ID          string                    `json:"id"`
	PortfolioID string                    `json:"portfolio_id"`
	AssetID     string                    `json:"asset_id,omitempty"`
	Type        portfolio.TransactionType `json:"type"`
	Amount      decimal.Decimal           `json:"amount"`
	Currency    string                    `json:"currency"`
	Schedule    string                    `json:"schedule"`
	Active      bool                      `json:"active"`
	LastRun     *time.Time                `json:"last_run,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
}

// Validate checks that the plan can be materialized unattended. Buy and
// sell plans are rejected because they would need a unit price at run time.
func (p *Plan) Validate() error {
	if p.PortfolioID == "" {
		return fmt.Errorf("plan requires a portfolio")
	}
	switch p.Type {
	case portfolio.TypeDeposit, portfolio.TypeWithdraw:
	case portfolio.TypeDividend:
		if p.AssetID == "" {
			return fmt.Errorf("dividend plan requires an asset")
		}
	default:
		return fmt.Errorf("plan type %q cannot run unattended", p.Type)
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("plan requires a positive amount")
	}
	if p.Currency == "" {
		return fmt.Errorf("plan requires a currency")
	}
	if p.Schedule == "" {
		return fmt.Errorf("plan requires a schedule")
	}
	return nil
}

// Package portfolio provides portfolios, their transaction history, and the
// holdings calculator that derives positions, average cost, and P&L from it.
// All derived figures live in one place so every consumer sees the same math.
package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository handles portfolio and transaction persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// CreatePortfolio inserts a new portfolio. The ID is generated when empty.
func (r *Repository) CreatePortfolio(p *Portfolio) (*Portfolio, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("portfolio name cannot be empty")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.BaseCurrency == "" {
		p.BaseCurrency = "USD"
	}
	p.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(
		"INSERT INTO portfolios (id, name, base_currency, created_at) VALUES (?, ?, ?, ?)",
		p.ID, p.Name, p.BaseCurrency, p.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert portfolio %s: %w", p.Name, err)
	}

	return p, nil
}

// GetPortfolio returns a portfolio by ID, or nil when not found
func (r *Repository) GetPortfolio(id string) (*Portfolio, error) {
	var p Portfolio
	var createdAt int64
	err := r.db.QueryRow(
		"SELECT id, name, base_currency, created_at FROM portfolios WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.BaseCurrency, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio %s: %w", id, err)
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

// GetAllPortfolios returns all portfolios ordered by name
func (r *Repository) GetAllPortfolios() ([]Portfolio, error) {
	rows, err := r.db.Query("SELECT id, name, base_currency, created_at FROM portfolios ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var out []Portfolio
	for rows.Next() {
		var p Portfolio
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Name, &p.BaseCurrency, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePortfolio removes a portfolio and its transactions (FK cascade)
func (r *Repository) DeletePortfolio(id string) error {
	result, err := r.db.Exec("DELETE FROM portfolios WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("portfolio %s not found", id)
	}
	return nil
}

// CreateTransaction validates and inserts a transaction
func (r *Repository) CreateTransaction(tx *Transaction) (*Transaction, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	tx.CreatedAt = time.Now().UTC()

	var assetID interface{}
	if tx.AssetID != "" {
		assetID = tx.AssetID
	}

	_, err := r.db.Exec(
		`INSERT INTO transactions (id, portfolio_id, asset_id, type, date, quantity, unit_price, amount, currency, fee, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.PortfolioID, assetID, string(tx.Type), tx.Date.Unix(),
		tx.Quantity.String(), tx.UnitPrice.String(), tx.Amount.String(),
		tx.Currency, tx.Fee.String(), tx.Note, tx.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return tx, nil
}

// GetTransactions returns a portfolio's transactions in chronological order.
// Insert order breaks ties so the holdings calculator replays events the way
// they were recorded.
func (r *Repository) GetTransactions(portfolioID string) ([]Transaction, error) {
	rows, err := r.db.Query(
		`SELECT id, portfolio_id, asset_id, type, date, quantity, unit_price, amount, currency, fee, note, created_at
		 FROM transactions WHERE portfolio_id = ? ORDER BY date ASC, created_at ASC, id ASC`,
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

// DeleteTransaction removes a single transaction
func (r *Repository) DeleteTransaction(id string) error {
	result, err := r.db.Exec("DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s not found", id)
	}
	return nil
}

func scanTransaction(rows *sql.Rows) (*Transaction, error) {
	var tx Transaction
	var assetID, note sql.NullString
	var txType, quantity, unitPrice, amount, fee string
	var date, createdAt int64

	err := rows.Scan(&tx.ID, &tx.PortfolioID, &assetID, &txType, &date,
		&quantity, &unitPrice, &amount, &tx.Currency, &fee, &note, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.AssetID = assetID.String
	tx.Note = note.String
	tx.Type = TransactionType(txType)
	tx.Date = time.Unix(date, 0).UTC()
	tx.CreatedAt = time.Unix(createdAt, 0).UTC()

	// Amounts are stored as decimal strings; a parse failure means the row
	// was written outside this repository.
	for _, pair := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&tx.Quantity, quantity},
		{&tx.UnitPrice, unitPrice},
		{&tx.Amount, amount},
		{&tx.Fee, fee},
	} {
		d, err := decimal.NewFromString(pair.src)
		if err != nil {
			return nil, fmt.Errorf("corrupt decimal %q in transaction %s: %w", pair.src, tx.ID, err)
		}
		*pair.dst = d
	}

	return &tx, nil
}

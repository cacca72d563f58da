package recurring

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/folio/internal/modules/portfolio"
)

// Repository handles plan persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new recurring plan repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "recurring").Logger(),
	}
}

// Create validates and inserts a plan. New plans start active.
func (r *Repository) Create(p *Plan) (*Plan, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.Active = true
	p.CreatedAt = time.Now().UTC()

	var assetID interface{}
	if p.AssetID != "" {
		assetID = p.AssetID
	}

	_, err := r.db.Exec(
		`INSERT INTO recurring_transactions (id, portfolio_id, asset_id, type, amount, currency, schedule, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		p.ID, p.PortfolioID, assetID, string(p.Type), p.Amount.String(),
		p.Currency, p.Schedule, p.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert plan: %w", err)
	}

	return p, nil
}

// GetByID returns a plan by ID, or nil when not found
func (r *Repository) GetByID(id string) (*Plan, error) {
	rows, err := r.db.Query(selectPlans+" WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanPlan(rows)
}

// GetAll returns every plan, active or not
func (r *Repository) GetAll() ([]Plan, error) {
	return r.list(selectPlans + " ORDER BY created_at")
}

// GetActive returns the plans the scheduler should be running
func (r *Repository) GetActive() ([]Plan, error) {
	return r.list(selectPlans + " WHERE active = 1 ORDER BY created_at")
}

func (r *Repository) list(query string, args ...interface{}) ([]Plan, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// SetActive toggles a plan without deleting its history
func (r *Repository) SetActive(id string, active bool) error {
	result, err := r.db.Exec("UPDATE recurring_transactions SET active = ? WHERE id = ?", boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("failed to update plan %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("plan %s not found", id)
	}
	return nil
}

// SetLastRun records a successful materialization
func (r *Repository) SetLastRun(id string, at time.Time) error {
	_, err := r.db.Exec("UPDATE recurring_transactions SET last_run = ? WHERE id = ?", at.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to record run for plan %s: %w", id, err)
	}
	return nil
}

// Delete removes a plan
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM recurring_transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete plan %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("plan %s not found", id)
	}
	return nil
}

const selectPlans = `SELECT id, portfolio_id, asset_id, type, amount, currency, schedule, active, last_run, created_at
	FROM recurring_transactions`

func scanPlan(rows *sql.Rows) (*Plan, error) {
	var p Plan
	var assetID sql.NullString
	var planType, amount string
	var active int
	var lastRun sql.NullInt64
	var createdAt int64

	err := rows.Scan(&p.ID, &p.PortfolioID, &assetID, &planType, &amount,
		&p.Currency, &p.Schedule, &active, &lastRun, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan plan: %w", err)
	}

	p.AssetID = assetID.String
	p.Type = portfolio.TransactionType(planType)
	p.Active = active != 0
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	if lastRun.Valid {
		t := time.Unix(lastRun.Int64, 0).UTC()
		p.LastRun = &t
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q in plan %s: %w", amount, p.ID, err)
	}
	p.Amount = d

	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package assets provides asset metadata and price history persistence,
// and the chart service that gates quote-provider calls behind the
// market data freshness policy.
package assets

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/foliotrack/folio/internal/database"
	"github.com/foliotrack/folio/internal/marketdata"
)

// Repository handles asset and candle persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new asset repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "assets").Logger(),
	}
}

// Create inserts a new asset. The ID is generated when empty.
func (r *Repository) Create(asset *Asset) (*Asset, error) {
	if asset.Symbol == "" {
		return nil, fmt.Errorf("asset symbol cannot be empty")
	}
	if asset.Exchange == "" {
		return nil, fmt.Errorf("asset exchange cannot be empty")
	}
	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}
	if asset.Currency == "" {
		asset.Currency = "USD"
	}
	asset.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO assets (id, symbol, exchange, timezone, currency, name, last_updated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.ID, asset.Symbol, asset.Exchange, asset.Timezone, asset.Currency, asset.Name,
		unixOrNil(asset.LastUpdated), asset.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert asset %s: %w", asset.Symbol, err)
	}

	return asset, nil
}

// GetByID returns the asset with the given ID, or nil when not found
func (r *Repository) GetByID(id string) (*Asset, error) {
	row := r.db.QueryRow(
		`SELECT id, symbol, exchange, timezone, currency, name, last_updated, created_at
		 FROM assets WHERE id = ?`, id,
	)
	return scanAsset(row)
}

// GetBySymbol returns the asset for a symbol/exchange pair, or nil when not found
func (r *Repository) GetBySymbol(symbol, exchange string) (*Asset, error) {
	row := r.db.QueryRow(
		`SELECT id, symbol, exchange, timezone, currency, name, last_updated, created_at
		 FROM assets WHERE symbol = ? AND exchange = ?`, symbol, exchange,
	)
	return scanAsset(row)
}

// GetAll returns all assets ordered by symbol
func (r *Repository) GetAll() ([]Asset, error) {
	rows, err := r.db.Query(
		`SELECT id, symbol, exchange, timezone, currency, name, last_updated, created_at
		 FROM assets ORDER BY symbol`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		asset, err := scanAssetRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *asset)
	}
	return out, rows.Err()
}

// SetLastUpdated records when the asset's price data was last refreshed
func (r *Repository) SetLastUpdated(id string, t time.Time) error {
	_, err := r.db.Exec("UPDATE assets SET last_updated = ? WHERE id = ?", t.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update last_updated for asset %s: %w", id, err)
	}
	return nil
}

// Delete removes an asset and its candles (via FK cascade)
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM assets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete asset %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("asset %s not found", id)
	}
	return nil
}

// SaveCandles upserts a batch of candles for an asset at one interval.
// The batch is written in a single transaction.
func (r *Repository) SaveCandles(assetID string, interval marketdata.Interval, candles []Candle) error {
	if len(candles) == 0 {
		return nil
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			`INSERT INTO candles (asset_id, interval, ts, open, high, low, close, volume)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(asset_id, interval, ts) DO UPDATE SET
			   open = excluded.open, high = excluded.high, low = excluded.low,
			   close = excluded.close, volume = excluded.volume`,
		)
		if err != nil {
			return fmt.Errorf("failed to prepare candle upsert: %w", err)
		}
		defer stmt.Close()

		for _, c := range candles {
			if _, err := stmt.Exec(assetID, string(interval), c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
				return fmt.Errorf("failed to upsert candle at %d: %w", c.Timestamp, err)
			}
		}
		return nil
	})
}

// GetCandles returns stored candles for an asset at one interval within
// [start, end], in ascending timestamp order.
func (r *Repository) GetCandles(assetID string, interval marketdata.Interval, start, end time.Time) ([]Candle, error) {
	rows, err := r.db.Query(
		`SELECT ts, open, high, low, close, volume FROM candles
		 WHERE asset_id = ? AND interval = ? AND ts >= ? AND ts <= ?
		 ORDER BY ts ASC`,
		assetID, string(interval), start.Unix(), end.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var out []Candle
	for rows.Next() {
		var c Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LatestClose returns the most recent stored daily close for an asset.
// The second return value is false when no daily candles exist.
func (r *Repository) LatestClose(assetID string) (float64, bool, error) {
	var close float64
	err := r.db.QueryRow(
		`SELECT close FROM candles WHERE asset_id = ? AND interval = ?
		 ORDER BY ts DESC LIMIT 1`,
		assetID, string(marketdata.Interval1d),
	).Scan(&close)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query latest close: %w", err)
	}
	return close, true, nil
}

// scan helpers

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row *sql.Row) (*Asset, error) {
	asset, err := scanAssetFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return asset, err
}

func scanAssetRows(rows *sql.Rows) (*Asset, error) {
	return scanAssetFrom(rows)
}

func scanAssetFrom(s rowScanner) (*Asset, error) {
	var asset Asset
	var timezone, name sql.NullString
	var lastUpdated sql.NullInt64
	var createdAt int64

	err := s.Scan(&asset.ID, &asset.Symbol, &asset.Exchange, &timezone, &asset.Currency, &name, &lastUpdated, &createdAt)
	if err != nil {
		return nil, err
	}

	asset.Timezone = timezone.String
	asset.Name = name.String
	asset.CreatedAt = time.Unix(createdAt, 0).UTC()
	if lastUpdated.Valid {
		t := time.Unix(lastUpdated.Int64, 0).UTC()
		asset.LastUpdated = &t
	}

	return &asset, nil
}

func unixOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

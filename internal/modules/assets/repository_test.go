package assets

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/foliotrack/folio/internal/marketdata"
)

// setupTestDB creates an in-memory SQLite database with the asset tables
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE assets (
			id            TEXT PRIMARY KEY,
			symbol        TEXT NOT NULL,
			exchange      TEXT NOT NULL,
			timezone      TEXT,
			currency      TEXT NOT NULL DEFAULT 'USD',
			name          TEXT,
			last_updated  INTEGER,
			created_at    INTEGER NOT NULL,
			UNIQUE (symbol, exchange)
		);
		CREATE TABLE candles (
			asset_id  TEXT NOT NULL,
			interval  TEXT NOT NULL,
			ts        INTEGER NOT NULL,
			open      REAL,
			high      REAL,
			low       REAL,
			close     REAL NOT NULL,
			volume    INTEGER,
			PRIMARY KEY (asset_id, interval, ts)
		);
	`)
	require.NoError(t, err)

	return db
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(setupTestDB(t), zerolog.Nop())
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.Create(&Asset{Symbol: "AAPL", Exchange: "NASDAQ", Currency: "USD", Name: "Apple Inc."})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, "NASDAQ", got.Exchange)
	assert.Nil(t, got.LastUpdated)

	bySymbol, err := repo.GetBySymbol("AAPL", "NASDAQ")
	require.NoError(t, err)
	require.NotNil(t, bySymbol)
	assert.Equal(t, created.ID, bySymbol.ID)
}

func TestRepositoryCreate_RequiresSymbolAndExchange(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Create(&Asset{Exchange: "NASDAQ"})
	assert.Error(t, err)

	_, err = repo.Create(&Asset{Symbol: "AAPL"})
	assert.Error(t, err)
}

func TestRepositoryGetByID_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetByID("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepositorySetLastUpdated(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.Create(&Asset{Symbol: "AAPL", Exchange: "NASDAQ"})
	require.NoError(t, err)

	ts := time.Date(2024, time.June, 12, 15, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetLastUpdated(created.ID, ts))

	got, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastUpdated)
	assert.Equal(t, ts.Unix(), got.LastUpdated.Unix())
}

func TestRepositoryDelete(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.Create(&Asset{Symbol: "AAPL", Exchange: "NASDAQ"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(created.ID))
	assert.Error(t, repo.Delete(created.ID), "second delete should report not found")
}

func TestRepositorySaveAndGetCandles(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.Create(&Asset{Symbol: "AAPL", Exchange: "NASDAQ"})
	require.NoError(t, err)

	base := time.Date(2024, time.June, 12, 14, 0, 0, 0, time.UTC)
	candles := []Candle{
		{Timestamp: base.Add(10 * time.Minute).Unix(), Close: 101, Volume: 100},
		{Timestamp: base.Unix(), Close: 100, Volume: 200},
		{Timestamp: base.Add(5 * time.Minute).Unix(), Close: 100.5, Volume: 300},
	}
	require.NoError(t, repo.SaveCandles(created.ID, marketdata.Interval5m, candles))

	got, err := repo.GetCandles(created.ID, marketdata.Interval5m, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ascending timestamp order regardless of insert order
	assert.Equal(t, 100.0, got[0].Close)
	assert.Equal(t, 100.5, got[1].Close)
	assert.Equal(t, 101.0, got[2].Close)

	// Candles at a different interval are invisible
	daily, err := repo.GetCandles(created.ID, marketdata.Interval1d, base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, daily)
}

func TestRepositorySaveCandles_UpsertsOnConflict(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.Create(&Asset{Symbol: "AAPL", Exchange: "NASDAQ"})
	require.NoError(t, err)

	ts := time.Date(2024, time.June, 12, 14, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveCandles(created.ID, marketdata.Interval1d, []Candle{{Timestamp: ts.Unix(), Close: 100}}))
	require.NoError(t, repo.SaveCandles(created.ID, marketdata.Interval1d, []Candle{{Timestamp: ts.Unix(), Close: 105}}))

	got, err := repo.GetCandles(created.ID, marketdata.Interval1d, ts.Add(-time.Hour), ts.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 105.0, got[0].Close)
}

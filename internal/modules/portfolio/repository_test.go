package portfolio

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite database with the portfolio tables
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE portfolios (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			base_currency  TEXT NOT NULL DEFAULT 'USD',
			created_at     INTEGER NOT NULL
		);
		CREATE TABLE transactions (
			id            TEXT PRIMARY KEY,
			portfolio_id  TEXT NOT NULL,
			asset_id      TEXT,
			type          TEXT NOT NULL,
			date          INTEGER NOT NULL,
			quantity      TEXT NOT NULL DEFAULT '0',
			unit_price    TEXT NOT NULL DEFAULT '0',
			amount        TEXT NOT NULL DEFAULT '0',
			currency      TEXT NOT NULL,
			fee           TEXT NOT NULL DEFAULT '0',
			note          TEXT,
			created_at    INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(setupTestDB(t), zerolog.Nop())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRepositoryCreateAndGetPortfolio(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.CreatePortfolio(&Portfolio{Name: "Retirement", BaseCurrency: "EUR"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := repo.GetPortfolio(created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Retirement", got.Name)
	assert.Equal(t, "EUR", got.BaseCurrency)
}

func TestRepositoryPortfolioDefaultsToUSD(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.CreatePortfolio(&Portfolio{Name: "Main"})
	require.NoError(t, err)
	assert.Equal(t, "USD", created.BaseCurrency)
}

func TestRepositoryCreatePortfolioRequiresName(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.CreatePortfolio(&Portfolio{})
	assert.Error(t, err)
}

func TestRepositoryGetPortfolioNotFound(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetPortfolio("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepositoryDeletePortfolio(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.CreatePortfolio(&Portfolio{Name: "Temp"})
	require.NoError(t, err)

	require.NoError(t, repo.DeletePortfolio(created.ID))

	got, err := repo.GetPortfolio(created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, repo.DeletePortfolio(created.ID))
}

func TestRepositoryTransactionRoundtrip(t *testing.T) {
	repo := newTestRepo(t)

	p, err := repo.CreatePortfolio(&Portfolio{Name: "Main"})
	require.NoError(t, err)

	tx := &Transaction{
		PortfolioID: p.ID,
		AssetID:     "asset-1",
		Type:        TypeBuy,
		Date:        time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC),
		Quantity:    dec("10.5"),
		UnitPrice:   dec("100.25"),
		Amount:      dec("1052.625"),
		Currency:    "USD",
		Fee:         dec("1.95"),
		Note:        "opening position",
	}

	created, err := repo.CreateTransaction(tx)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	txs, err := repo.GetTransactions(p.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	got := txs[0]
	assert.Equal(t, TypeBuy, got.Type)
	assert.True(t, got.Quantity.Equal(dec("10.5")), "quantity %s", got.Quantity)
	assert.True(t, got.UnitPrice.Equal(dec("100.25")), "unit price %s", got.UnitPrice)
	assert.True(t, got.Fee.Equal(dec("1.95")), "fee %s", got.Fee)
	assert.Equal(t, "opening position", got.Note)
	assert.Equal(t, tx.Date, got.Date)
}

func TestRepositoryCreateTransactionValidates(t *testing.T) {
	repo := newTestRepo(t)

	p, err := repo.CreatePortfolio(&Portfolio{Name: "Main"})
	require.NoError(t, err)

	cases := []struct {
		name string
		tx   Transaction
	}{
		{"unknown type", Transaction{PortfolioID: p.ID, Type: "swap", Currency: "USD", Date: time.Now()}},
		{"buy without asset", Transaction{PortfolioID: p.ID, Type: TypeBuy, Currency: "USD", Date: time.Now(), Quantity: dec("1")}},
		{"buy with zero quantity", Transaction{PortfolioID: p.ID, AssetID: "a", Type: TypeBuy, Currency: "USD", Date: time.Now()}},
		{"dividend with zero amount", Transaction{PortfolioID: p.ID, AssetID: "a", Type: TypeDividend, Currency: "USD", Date: time.Now()}},
		{"deposit with negative amount", Transaction{PortfolioID: p.ID, Type: TypeDeposit, Currency: "USD", Date: time.Now(), Amount: dec("-5")}},
		{"missing currency", Transaction{PortfolioID: p.ID, Type: TypeDeposit, Date: time.Now(), Amount: dec("5")}},
		{"missing date", Transaction{PortfolioID: p.ID, Type: TypeDeposit, Currency: "USD", Amount: dec("5")}},
		{"negative fee", Transaction{PortfolioID: p.ID, Type: TypeDeposit, Currency: "USD", Date: time.Now(), Amount: dec("5"), Fee: dec("-1")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.CreateTransaction(&tc.tx)
			assert.Error(t, err)
		})
	}
}

func TestRepositoryTransactionsChronological(t *testing.T) {
	repo := newTestRepo(t)

	p, err := repo.CreatePortfolio(&Portfolio{Name: "Main"})
	require.NoError(t, err)

	// Insert out of order; reads must come back by date.
	dates := []time.Time{
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		_, err := repo.CreateTransaction(&Transaction{
			PortfolioID: p.ID,
			Type:        TypeDeposit,
			Date:        d,
			Amount:      dec("100"),
			Currency:    "USD",
		})
		require.NoError(t, err)
	}

	txs, err := repo.GetTransactions(p.ID)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.True(t, txs[0].Date.Before(txs[1].Date))
	assert.True(t, txs[1].Date.Before(txs[2].Date))
}

func TestRepositoryDeleteTransaction(t *testing.T) {
	repo := newTestRepo(t)

	p, err := repo.CreatePortfolio(&Portfolio{Name: "Main"})
	require.NoError(t, err)

	tx, err := repo.CreateTransaction(&Transaction{
		PortfolioID: p.ID,
		Type:        TypeDeposit,
		Date:        time.Now(),
		Amount:      dec("100"),
		Currency:    "USD",
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteTransaction(tx.ID))
	assert.Error(t, repo.DeleteTransaction(tx.ID))

	txs, err := repo.GetTransactions(p.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

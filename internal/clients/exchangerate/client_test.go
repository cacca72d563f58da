package exchangerate

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupCacheDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE exchange_rate_cache (
			pair       TEXT PRIMARY KEY,
			rate       REAL NOT NULL,
			fetched_at INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

func rateServer(t *testing.T, rates map[string]float64, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		json.NewEncoder(w).Encode(ratesResponse{Base: "EUR", Rates: rates})
	}))
}

func TestGetRateSameCurrency(t *testing.T) {
	client := NewClient("http://localhost", nil, zerolog.Nop())

	rate, err := client.GetRate("USD", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
}

func TestGetRateFetchesAndCaches(t *testing.T) {
	calls := 0
	server := rateServer(t, map[string]float64{"USD": 1.1}, &calls)
	defer server.Close()

	client := NewClient(server.URL, setupCacheDB(t), zerolog.Nop())

	rate, err := client.GetRate("EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.1, rate)
	assert.Equal(t, 1, calls)

	// Second lookup is served from cache.
	rate, err = client.GetRate("EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.1, rate)
	assert.Equal(t, 1, calls)
}

func TestGetRateStaleFallbackOnAPIFailure(t *testing.T) {
	db := setupCacheDB(t)

	// An old cached rate, well past the freshness window.
	fetchedAt := time.Now().Add(-48 * time.Hour).Unix()
	_, err := db.Exec(
		"INSERT INTO exchange_rate_cache (pair, rate, fetched_at) VALUES (?, ?, ?)",
		"EUR:USD", 1.08, fetchedAt,
	)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, db, zerolog.Nop())

	rate, err := client.GetRate("EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.08, rate)
}

func TestGetRateErrorWithoutCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, setupCacheDB(t), zerolog.Nop())

	_, err := client.GetRate("EUR", "USD")
	assert.ErrorContains(t, err, "status 500")
}

func TestGetRateMissingCurrencyInResponse(t *testing.T) {
	server := rateServer(t, map[string]float64{"GBP": 0.85}, nil)
	defer server.Close()

	client := NewClient(server.URL, nil, zerolog.Nop())

	_, err := client.GetRate("EUR", "USD")
	assert.ErrorContains(t, err, "no rate for USD")
}

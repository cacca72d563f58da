package database

// Schema is the full database schema for the folio service.
// All statements are idempotent so Migrate can run on every startup.
const Schema = `
CREATE TABLE IF NOT EXISTS assets (
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

CREATE TABLE IF NOT EXISTS candles (
    asset_id  TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
    interval  TEXT NOT NULL,
    ts        INTEGER NOT NULL,
    open      REAL,
    high      REAL,
    low       REAL,
    close     REAL NOT NULL,
    volume    INTEGER,
    PRIMARY KEY (asset_id, interval, ts)
);

CREATE INDEX IF NOT EXISTS idx_candles_asset_ts ON candles(asset_id, ts);

CREATE TABLE IF NOT EXISTS portfolios (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    base_currency TEXT NOT NULL DEFAULT 'USD',
    created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    id           TEXT PRIMARY KEY,
    portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
    asset_id     TEXT REFERENCES assets(id),
    type         TEXT NOT NULL CHECK (type IN ('buy','sell','dividend','deposit','withdraw')),
    date         INTEGER NOT NULL,
    quantity     TEXT,
    unit_price   TEXT,
    amount       TEXT NOT NULL,
    currency     TEXT NOT NULL,
    fee          TEXT NOT NULL DEFAULT '0',
    note         TEXT,
    created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_portfolio_date ON transactions(portfolio_id, date);

CREATE TABLE IF NOT EXISTS recurring_transactions (
    id           TEXT PRIMARY KEY,
    portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
    asset_id     TEXT REFERENCES assets(id),
    type         TEXT NOT NULL CHECK (type IN ('buy','sell','dividend','deposit','withdraw')),
    amount       TEXT NOT NULL,
    currency     TEXT NOT NULL,
    schedule     TEXT NOT NULL,
    active       INTEGER NOT NULL DEFAULT 1,
    last_run     INTEGER,
    created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS exchange_rate_cache (
    pair       TEXT PRIMARY KEY,
    rate       REAL NOT NULL,
    fetched_at INTEGER NOT NULL
);
`

package database

// Schema is the single source of truth for the paper-trading store.
// All statements are idempotent so Migrate can run at every startup.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    account_id    TEXT PRIMARY KEY,
    account_name  TEXT NOT NULL,
    account_type  TEXT NOT NULL DEFAULT 'virtual',
    cash_balance  TEXT NOT NULL DEFAULT '0',
    currency      TEXT NOT NULL DEFAULT 'USD',
    status        TEXT NOT NULL DEFAULT 'active',
    description   TEXT,
    strategy_id   INTEGER,
    is_active     INTEGER NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS instruments (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol        TEXT NOT NULL UNIQUE,
    name          TEXT,
    exchange      TEXT,
    currency      TEXT NOT NULL DEFAULT 'USD',
    is_active     INTEGER NOT NULL DEFAULT 1,
    watch_list    INTEGER NOT NULL DEFAULT 0,
    overall_score REAL,
    risk_score    REAL,
    sector_bucket TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS strategies (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    name                 TEXT NOT NULL UNIQUE,
    description          TEXT,
    category             TEXT NOT NULL DEFAULT 'Long',
    strategy_type        TEXT,
    stock_list_mode      TEXT NOT NULL DEFAULT 'Manual',
    stock_list           TEXT,
    stock_list_ai_prompt TEXT,
    parameters           TEXT,
    is_active            INTEGER NOT NULL DEFAULT 1,
    created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS market_data (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol_id   INTEGER NOT NULL REFERENCES instruments(id),
    timestamp   DATETIME NOT NULL,
    interval    TEXT NOT NULL,
    open        REAL NOT NULL,
    high        REAL NOT NULL,
    low         REAL NOT NULL,
    close       REAL NOT NULL,
    volume      INTEGER NOT NULL DEFAULT 0,
    vwap        REAL,
    trade_count INTEGER,
    UNIQUE(symbol_id, timestamp, interval)
);
CREATE INDEX IF NOT EXISTS idx_market_data_symbol_interval
    ON market_data(symbol_id, interval, timestamp);

CREATE TABLE IF NOT EXISTS trading_signals (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol_id       INTEGER NOT NULL REFERENCES instruments(id),
    strategy_id     INTEGER REFERENCES strategies(id),
    timestamp       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    signal_type     TEXT NOT NULL,
    strength        REAL NOT NULL DEFAULT 0,
    price           REAL,
    confidence      REAL NOT NULL DEFAULT 0,
    indicators_used TEXT,
    reason          TEXT
);
CREATE INDEX IF NOT EXISTS idx_trading_signals_symbol
    ON trading_signals(symbol_id, timestamp);

CREATE TABLE IF NOT EXISTS orders (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id           TEXT NOT NULL UNIQUE,
    account_id         TEXT NOT NULL REFERENCES accounts(account_id),
    symbol_id          INTEGER NOT NULL REFERENCES instruments(id),
    strategy_id        INTEGER REFERENCES strategies(id),
    order_type         TEXT NOT NULL,
    side               TEXT NOT NULL,
    quantity           TEXT NOT NULL,
    price              TEXT,
    stop_price         TEXT,
    status             TEXT NOT NULL DEFAULT 'PENDING',
    filled_quantity    TEXT NOT NULL DEFAULT '0',
    average_fill_price TEXT,
    commission         TEXT NOT NULL DEFAULT '0',
    submitted_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    filled_at          DATETIME,
    cancelled_at       DATETIME
);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, submitted_at);

CREATE TABLE IF NOT EXISTS positions (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id          TEXT NOT NULL REFERENCES accounts(account_id),
    symbol_id           INTEGER NOT NULL REFERENCES instruments(id),
    quantity            TEXT NOT NULL DEFAULT '0',
    average_entry_price TEXT NOT NULL DEFAULT '0',
    current_price       TEXT,
    unrealized_pnl      TEXT,
    realized_pnl        TEXT NOT NULL DEFAULT '0',
    opened_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(account_id, symbol_id)
);

CREATE TABLE IF NOT EXISTS trades (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id   TEXT NOT NULL REFERENCES accounts(account_id),
    symbol_id    INTEGER NOT NULL REFERENCES instruments(id),
    strategy_id  INTEGER REFERENCES strategies(id),
    side         TEXT NOT NULL,
    quantity     TEXT NOT NULL,
    entry_price  TEXT NOT NULL,
    exit_price   TEXT NOT NULL,
    gross_pnl    TEXT NOT NULL,
    net_pnl      TEXT NOT NULL,
    pnl_percent  REAL,
    commission   TEXT NOT NULL DEFAULT '0',
    entry_time   DATETIME,
    exit_time    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    holding_days INTEGER
);

CREATE TABLE IF NOT EXISTS settings (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL UNIQUE,
    parameters TEXT,
    category   TEXT,
    is_active  INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS system_logs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    level      TEXT NOT NULL,
    module     TEXT NOT NULL,
    message    TEXT NOT NULL,
    details    TEXT,
    account_id TEXT,
    timestamp  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_system_logs_timestamp ON system_logs(timestamp);
`

// RequiredTables lists every table the engine expects after migration.
var RequiredTables = []string{
	"accounts",
	"instruments",
	"strategies",
	"market_data",
	"trading_signals",
	"orders",
	"positions",
	"trades",
	"settings",
	"system_logs",
}

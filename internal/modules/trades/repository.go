package trades

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles trade database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new trades repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "trades").Logger(),
	}
}

// CreateTx appends a trade inside an open transaction.
func (r *Repository) CreateTx(tx *sql.Tx, t *Trade) error {
	if t.ExitTime.IsZero() {
		t.ExitTime = time.Now().UTC()
	}
	var entryTime interface{}
	if t.EntryTime != nil {
		entryTime = t.EntryTime.UTC().Format(time.RFC3339)
	}

	res, err := tx.Exec(`
		INSERT INTO trades (account_id, symbol_id, strategy_id, side, quantity,
			entry_price, exit_price, gross_pnl, net_pnl, pnl_percent,
			commission, entry_time, exit_time, holding_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.AccountID, t.SymbolID, t.StrategyID, t.Side, t.Quantity, t.EntryPrice,
		t.ExitPrice, t.GrossPnL, t.NetPnL, t.PnLPercent, t.Commission,
		entryTime, t.ExitTime.UTC().Format(time.RFC3339), t.HoldingDays)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get trade id: %w", err)
	}
	t.ID = id
	return nil
}

// ListByAccount returns an account's trades, newest exits first.
func (r *Repository) ListByAccount(accountID string, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`
		SELECT id, account_id, symbol_id, strategy_id, side, quantity,
			entry_price, exit_price, gross_pnl, net_pnl, pnl_percent,
			commission, entry_time, exit_time, holding_days
		FROM trades WHERE account_id = ?
		ORDER BY exit_time DESC LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades for %s: %w", accountID, err)
	}
	defer rows.Close()

	var result []Trade
	for rows.Next() {
		var t Trade
		var strategyID, holdingDays sql.NullInt64
		var pnlPercent sql.NullFloat64
		var entryTime sql.NullString
		var exitTime string

		err := rows.Scan(&t.ID, &t.AccountID, &t.SymbolID, &strategyID, &t.Side,
			&t.Quantity, &t.EntryPrice, &t.ExitPrice, &t.GrossPnL, &t.NetPnL,
			&pnlPercent, &t.Commission, &entryTime, &exitTime, &holdingDays)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		if strategyID.Valid {
			t.StrategyID = &strategyID.Int64
		}
		if holdingDays.Valid {
			t.HoldingDays = &holdingDays.Int64
		}
		if pnlPercent.Valid {
			t.PnLPercent = &pnlPercent.Float64
		}
		if entryTime.Valid {
			if ts, err := time.Parse(time.RFC3339, entryTime.String); err == nil {
				t.EntryTime = &ts
			}
		}
		if ts, err := time.Parse(time.RFC3339, exitTime); err == nil {
			t.ExitTime = ts
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return result, nil
}

package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/paperprofit/internal/database"
	"github.com/rs/zerolog"
)

// Repository handles market data database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new market data repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "market_data").Logger(),
	}
}

// Create inserts a single bar. Duplicate (symbol, timestamp, interval) rows
// are replaced.
func (r *Repository) Create(bar *Bar) error {
	_, err := r.db.Exec(insertQuery, args(bar)...)
	if err != nil {
		return fmt.Errorf("failed to insert bar for symbol %d: %w", bar.SymbolID, err)
	}
	return nil
}

// CreateBulk inserts many bars in one transaction.
func (r *Repository) CreateBulk(bars []Bar) error {
	if len(bars) == 0 {
		return nil
	}
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(insertQuery)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range bars {
			if _, err := stmt.Exec(args(&bars[i])...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to bulk insert %d bars: %w", len(bars), err)
	}
	return nil
}

// LatestBar returns the most recent bar for a symbol at the given interval,
// or nil when none exists.
func (r *Repository) LatestBar(symbolID int64, interval string) (*Bar, error) {
	row := r.db.QueryRow(`
		SELECT id, symbol_id, timestamp, interval, open, high, low, close,
			volume, vwap, trade_count
		FROM market_data
		WHERE symbol_id = ? AND interval = ?
		ORDER BY timestamp DESC LIMIT 1
	`, symbolID, interval)

	bar, err := scanBar(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest bar for symbol %d: %w", symbolID, err)
	}
	return bar, nil
}

// History returns bars for a symbol at the given interval, oldest first,
// bounded by limit (0 = no bound).
func (r *Repository) History(symbolID int64, interval string, limit int) ([]Bar, error) {
	query := `
		SELECT id, symbol_id, timestamp, interval, open, high, low, close,
			volume, vwap, trade_count
		FROM market_data
		WHERE symbol_id = ? AND interval = ?
		ORDER BY timestamp`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		query += ` DESC LIMIT ?`
		rows, err = r.db.Query(query, symbolID, interval, limit)
	} else {
		rows, err = r.db.Query(query, symbolID, interval)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history for symbol %d: %w", symbolID, err)
	}
	defer rows.Close()

	var bars []Bar
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, *bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bars: %w", err)
	}

	// Limited queries come back newest first; restore chronological order.
	if limit > 0 {
		for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
			bars[i], bars[j] = bars[j], bars[i]
		}
	}
	return bars, nil
}

const insertQuery = `
	INSERT INTO market_data (symbol_id, timestamp, interval, open, high, low,
		close, volume, vwap, trade_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(symbol_id, timestamp, interval) DO UPDATE SET
		open = excluded.open, high = excluded.high, low = excluded.low,
		close = excluded.close, volume = excluded.volume, vwap = excluded.vwap,
		trade_count = excluded.trade_count`

func args(bar *Bar) []interface{} {
	return []interface{}{
		bar.SymbolID, bar.Timestamp.UTC().Format(time.RFC3339), bar.Interval,
		bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.VWAP, bar.TradeCount,
	}
}

func scanBar(row interface{ Scan(...interface{}) error }) (*Bar, error) {
	var bar Bar
	var ts string
	var vwap sql.NullFloat64
	var tradeCount sql.NullInt64

	err := row.Scan(&bar.ID, &bar.SymbolID, &ts, &bar.Interval, &bar.Open,
		&bar.High, &bar.Low, &bar.Close, &bar.Volume, &vwap, &tradeCount)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		bar.Timestamp = t
	} else if t, err := time.Parse("2006-01-02 15:04:05", ts); err == nil {
		bar.Timestamp = t
	}
	if vwap.Valid {
		bar.VWAP = &vwap.Float64
	}
	if tradeCount.Valid {
		bar.TradeCount = &tradeCount.Int64
	}
	return &bar, nil
}

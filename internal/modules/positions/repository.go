package positions

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository handles position database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new positions repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "positions").Logger(),
	}
}

type querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// GetByAccountAndSymbol returns the position row, or nil when absent.
func (r *Repository) GetByAccountAndSymbol(accountID string, symbolID int64) (*Position, error) {
	return getByAccountAndSymbol(r.db, accountID, symbolID)
}

// GetByAccountAndSymbolTx is the transactional variant used by the matcher.
func (r *Repository) GetByAccountAndSymbolTx(tx *sql.Tx, accountID string, symbolID int64) (*Position, error) {
	return getByAccountAndSymbol(tx, accountID, symbolID)
}

func getByAccountAndSymbol(q querier, accountID string, symbolID int64) (*Position, error) {
	row := q.QueryRow(selectColumns+`
		FROM positions WHERE account_id = ? AND symbol_id = ?
	`, accountID, symbolID)

	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %s/%d: %w", accountID, symbolID, err)
	}
	return p, nil
}

// ListByAccount returns an account's positions; openOnly skips zero
// quantities.
func (r *Repository) ListByAccount(accountID string, openOnly bool) ([]Position, error) {
	query := selectColumns + " FROM positions WHERE account_id = ?"
	if openOnly {
		query += " AND CAST(quantity AS REAL) > 0"
	}
	query += " ORDER BY symbol_id"

	rows, err := r.db.Query(query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions for %s: %w", accountID, err)
	}
	defer rows.Close()
	return collect(rows)
}

// ListOpen returns every position with a non-zero quantity.
func (r *Repository) ListOpen() ([]Position, error) {
	rows, err := r.db.Query(selectColumns + `
		FROM positions WHERE CAST(quantity AS REAL) > 0 ORDER BY symbol_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list open positions: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// CountOpen returns the number of non-zero positions in an account.
func (r *Repository) CountOpen(accountID string) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM positions
		WHERE account_id = ? AND CAST(quantity AS REAL) > 0
	`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count positions for %s: %w", accountID, err)
	}
	return n, nil
}

// CreateTx inserts a new position inside an open transaction.
func (r *Repository) CreateTx(tx *sql.Tx, p *Position) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.Exec(`
		INSERT INTO positions (account_id, symbol_id, quantity,
			average_entry_price, current_price, realized_pnl, opened_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.AccountID, p.SymbolID, p.Quantity, p.AverageEntryPrice,
		decimalPtr(p.CurrentPrice), p.RealizedPnL, now, now)
	if err != nil {
		return fmt.Errorf("failed to create position %s/%d: %w", p.AccountID, p.SymbolID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get position id: %w", err)
	}
	p.ID = id
	return nil
}

// UpdateHoldingTx rewrites quantity and entry price inside a transaction.
// The entry price argument should be unchanged for sells.
func (r *Repository) UpdateHoldingTx(tx *sql.Tx, id int64, quantity, avgEntryPrice decimal.Decimal) error {
	_, err := tx.Exec(`
		UPDATE positions SET quantity = ?, average_entry_price = ?, updated_at = ?
		WHERE id = ?
	`, quantity, avgEntryPrice, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update position %d: %w", id, err)
	}
	return nil
}

// UpdateMark refreshes the mark-to-market fields for a position.
func (r *Repository) UpdateMark(id int64, currentPrice, unrealizedPnL decimal.Decimal) error {
	_, err := r.db.Exec(`
		UPDATE positions SET current_price = ?, unrealized_pnl = ?, updated_at = ?
		WHERE id = ?
	`, currentPrice, unrealizedPnL, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update mark for position %d: %w", id, err)
	}
	return nil
}

const selectColumns = `
	SELECT id, account_id, symbol_id, quantity, average_entry_price,
		current_price, unrealized_pnl, realized_pnl, opened_at, updated_at`

func collect(rows *sql.Rows) ([]Position, error) {
	var result []Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return result, nil
}

func scanPosition(row interface{ Scan(...interface{}) error }) (*Position, error) {
	var p Position
	var currentPrice, unrealized sql.NullString
	var openedAt, updatedAt string

	err := row.Scan(&p.ID, &p.AccountID, &p.SymbolID, &p.Quantity,
		&p.AverageEntryPrice, &currentPrice, &unrealized, &p.RealizedPnL,
		&openedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.CurrentPrice = parseDecimal(currentPrice)
	p.UnrealizedPnL = parseDecimal(unrealized)
	if t, err := time.Parse(time.RFC3339, openedAt); err == nil {
		p.OpenedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		p.UpdatedAt = t
	}
	return &p, nil
}

func parseDecimal(s sql.NullString) *decimal.Decimal {
	if !s.Valid || s.String == "" {
		return nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil
	}
	return &d
}

func decimalPtr(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return *d
}

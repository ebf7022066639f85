package orders

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrInvalidTransition is returned for out-of-order status changes.
var ErrInvalidTransition = errors.New("invalid order status transition")

// Repository handles order database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new orders repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "orders").Logger(),
	}
}

// Create inserts a new PENDING order. An external order id is generated when
// absent; quantity must be positive.
func (r *Repository) Create(o *Order) error {
	if o.Quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("order quantity must be positive, got %s", o.Quantity)
	}
	if o.OrderID == "" {
		o.OrderID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.SubmittedAt.IsZero() {
		o.SubmittedAt = time.Now().UTC()
	}

	res, err := r.db.Exec(`
		INSERT INTO orders (order_id, account_id, symbol_id, strategy_id,
			order_type, side, quantity, price, stop_price, status,
			filled_quantity, commission, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.OrderID, o.AccountID, o.SymbolID, o.StrategyID, o.OrderType, o.Side,
		o.Quantity, decimalPtr(o.Price), decimalPtr(o.StopPrice), o.Status,
		o.FilledQuantity, o.Commission, o.SubmittedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get order id: %w", err)
	}
	o.ID = id
	return nil
}

// PendingFIFO returns PENDING orders oldest first.
func (r *Repository) PendingFIFO() ([]Order, error) {
	rows, err := r.db.Query(selectColumns+`
		FROM orders WHERE status = ? ORDER BY submitted_at, id
	`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// GetByOrderID returns the order with the given external id, or nil.
func (r *Repository) GetByOrderID(orderID string) (*Order, error) {
	row := r.db.QueryRow(selectColumns+" FROM orders WHERE order_id = ?", orderID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	return o, nil
}

// ListByAccount returns an account's orders, newest first.
func (r *Repository) ListByAccount(accountID string, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(selectColumns+`
		FROM orders WHERE account_id = ? ORDER BY submitted_at DESC, id DESC LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for account %s: %w", accountID, err)
	}
	defer rows.Close()
	return collect(rows)
}

// UpdateStatus transitions an order. Only PENDING orders may move; FILLED
// sets filled_at, CANCELLED sets cancelled_at. Fill details are recorded
// when provided.
func (r *Repository) UpdateStatus(id int64, status string, filledQty *decimal.Decimal, avgFill *decimal.Decimal) error {
	return r.updateStatus(r.db, id, status, filledQty, avgFill)
}

// UpdateStatusTx is UpdateStatus inside an open transaction; used by the
// order matcher so the status change commits with cash and position moves.
func (r *Repository) UpdateStatusTx(tx *sql.Tx, id int64, status string, filledQty *decimal.Decimal, avgFill *decimal.Decimal) error {
	return r.updateStatus(tx, id, status, filledQty, avgFill)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

func (r *Repository) updateStatus(ex execer, id int64, status string, filledQty *decimal.Decimal, avgFill *decimal.Decimal) error {
	var current string
	err := ex.QueryRow("SELECT status FROM orders WHERE id = ?", id).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("order %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to read order %d status: %w", id, err)
	}
	if IsTerminal(current) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	switch status {
	case StatusFilled:
		_, err = ex.Exec(`
			UPDATE orders SET status = ?, filled_quantity = COALESCE(?, filled_quantity),
				average_fill_price = COALESCE(?, average_fill_price), filled_at = ?
			WHERE id = ?
		`, status, decimalPtr(filledQty), decimalPtr(avgFill), now, id)
	case StatusCancelled:
		_, err = ex.Exec(`
			UPDATE orders SET status = ?, cancelled_at = ? WHERE id = ?
		`, status, now, id)
	case StatusRejected:
		_, err = ex.Exec(`UPDATE orders SET status = ? WHERE id = ?`, status, id)
	case StatusPending:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	default:
		return fmt.Errorf("unknown order status %q", status)
	}
	if err != nil {
		return fmt.Errorf("failed to update order %d status: %w", id, err)
	}
	return nil
}

const selectColumns = `
	SELECT id, order_id, account_id, symbol_id, strategy_id, order_type, side,
		quantity, price, stop_price, status, filled_quantity,
		average_fill_price, commission, submitted_at, filled_at, cancelled_at`

func collect(rows *sql.Rows) ([]Order, error) {
	var result []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return result, nil
}

func scanOrder(row interface{ Scan(...interface{}) error }) (*Order, error) {
	var o Order
	var strategyID sql.NullInt64
	var price, stopPrice, avgFill sql.NullString
	var submittedAt string
	var filledAt, cancelledAt sql.NullString

	err := row.Scan(&o.ID, &o.OrderID, &o.AccountID, &o.SymbolID, &strategyID,
		&o.OrderType, &o.Side, &o.Quantity, &price, &stopPrice, &o.Status,
		&o.FilledQuantity, &avgFill, &o.Commission, &submittedAt, &filledAt, &cancelledAt)
	if err != nil {
		return nil, err
	}

	if strategyID.Valid {
		o.StrategyID = &strategyID.Int64
	}
	o.Price = parseDecimal(price)
	o.StopPrice = parseDecimal(stopPrice)
	o.AverageFillPrice = parseDecimal(avgFill)
	if t, err := time.Parse(time.RFC3339, submittedAt); err == nil {
		o.SubmittedAt = t
	}
	o.FilledAt = parseTimePtr(filledAt)
	o.CancelledAt = parseTimePtr(cancelledAt)
	return &o, nil
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

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s.String); err == nil {
		return &t
	}
	return nil
}

func decimalPtr(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return *d
}

// Package orders manages simulated order flow.
package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. PENDING is the only non-terminal state.
const (
	StatusPending   = "PENDING"
	StatusFilled    = "FILLED"
	StatusCancelled = "CANCELLED"
	StatusRejected  = "REJECTED"
)

// Order sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order types.
const (
	TypeMarket = "MARKET"
	TypeLimit  = "LIMIT"
	TypeStop   = "STOP"
)

// Order is a simulated order. Status transitions are monotone:
// PENDING -> FILLED | CANCELLED | REJECTED, terminal states are final.
type Order struct {
	ID               int64
	OrderID          string // external opaque id
	AccountID        string
	SymbolID         int64
	StrategyID       *int64
	OrderType        string
	Side             string
	Quantity         decimal.Decimal
	Price            *decimal.Decimal // limit price
	StopPrice        *decimal.Decimal
	Status           string
	FilledQuantity   decimal.Decimal
	AverageFillPrice *decimal.Decimal
	Commission       decimal.Decimal
	SubmittedAt      time.Time
	FilledAt         *time.Time
	CancelledAt      *time.Time
}

// IsTerminal reports whether the status is final.
func IsTerminal(status string) bool {
	return status == StatusFilled || status == StatusCancelled || status == StatusRejected
}

// Package trades records realized round trips. Append-only.
package trades

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one realized round trip: a full or partial exit of a position.
type Trade struct {
	ID          int64
	AccountID   string
	SymbolID    int64
	StrategyID  *int64
	Side        string
	Quantity    decimal.Decimal
	EntryPrice  decimal.Decimal
	ExitPrice   decimal.Decimal
	GrossPnL    decimal.Decimal
	NetPnL      decimal.Decimal
	PnLPercent  *float64
	Commission  decimal.Decimal
	EntryTime   *time.Time
	ExitTime    time.Time
	HoldingDays *int64
}

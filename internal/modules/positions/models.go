// Package positions tracks per-account instrument holdings.
package positions

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the holding of one instrument in one account.
// (AccountID, SymbolID) is unique. A quantity of zero is retained with zero
// value; the entry price is rewritten only on buy-side merges.
type Position struct {
	ID                int64
	AccountID         string
	SymbolID          int64
	Quantity          decimal.Decimal
	AverageEntryPrice decimal.Decimal
	CurrentPrice      *decimal.Decimal
	UnrealizedPnL     *decimal.Decimal
	RealizedPnL       decimal.Decimal
	OpenedAt          time.Time
	UpdatedAt         time.Time
}

// MergeBuy returns the new quantity and weighted-average entry price after
// buying qty shares at price.
func (p *Position) MergeBuy(qty, price decimal.Decimal) (newQty, newAvg decimal.Decimal) {
	newQty = p.Quantity.Add(qty)
	if newQty.IsZero() {
		return newQty, p.AverageEntryPrice
	}
	newAvg = p.Quantity.Mul(p.AverageEntryPrice).Add(qty.Mul(price)).Div(newQty)
	return newQty, newAvg
}

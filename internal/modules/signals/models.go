// Package signals persists trading decisions, including HOLDs.
package signals

import "time"

// Signal types.
const (
	TypeBuy  = "BUY"
	TypeSell = "SELL"
	TypeHold = "HOLD"
)

// Signal is one decision for a (symbol, strategy) pair. Append-only.
type Signal struct {
	ID             int64
	SymbolID       int64
	StrategyID     *int64
	Timestamp      time.Time
	SignalType     string
	Strength       float64
	Price          *float64
	Confidence     float64
	IndicatorsUsed map[string]interface{}
	Reason         string
}

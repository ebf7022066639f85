// Package strategies manages trading strategies and their parameter bags.
package strategies

import "time"

// Stock list modes.
const (
	StockListManual = "Manual"
	StockListAI     = "AI"
)

// Strategy describes how the trading bot evaluates a universe of symbols.
// Parameters is an open-ended key/value document; see params.go for the
// recognized keys and defaults.
type Strategy struct {
	ID                int64
	Name              string
	Description       string
	Category          string // Long | Short
	StrategyType      string // Buy Hold, Growth, Swing Trade, ...
	StockListMode     string // Manual | AI
	StockList         string
	StockListAIPrompt string
	Parameters        Params
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

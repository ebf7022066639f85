// Package workers contains the periodic jobs the scheduler drives: order
// matching, position revaluation, market-data refresh, and the trading bot.
// Each worker exposes a Run method shaped as a scheduler.Task.
package workers

import (
	"context"

	"github.com/aristath/paperprofit/internal/providers"
)

// fetchLimit bounds concurrent vendor calls in the fan-out workers.
const fetchLimit = 4

// PriceSource supplies the latest traded price for a symbol. ok is false
// when no vendor had a quote.
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, bool)
}

// InfoSource supplies the vendor info payload backing fundamental analysis.
// A nil result means no vendor had data.
type InfoSource interface {
	FetchInfo(ctx context.Context, symbol string) *providers.Info
}

// StockListSource resolves an AI prompt into a symbol universe.
type StockListSource interface {
	StockList(ctx context.Context, platform, prompt string) (symbols []string, cached bool, err error)
}

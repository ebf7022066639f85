package workers

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/paperprofit/internal/modules/instruments"
	"github.com/aristath/paperprofit/internal/modules/positions"
)

// Revaluer refreshes mark-to-market fields for every open position. A
// failure on one instrument never aborts the batch.
type Revaluer struct {
	positions   *positions.Repository
	instruments *instruments.Repository
	prices      PriceSource
	log         zerolog.Logger
}

// NewRevaluer creates the position revaluation worker.
func NewRevaluer(positionsRepo *positions.Repository, instrumentsRepo *instruments.Repository,
	prices PriceSource, log zerolog.Logger) *Revaluer {
	return &Revaluer{
		positions:   positionsRepo,
		instruments: instrumentsRepo,
		prices:      prices,
		log:         log.With().Str("worker", "position_revaluer").Logger(),
	}
}

// Run fetches a current price for each open position and rewrites
// current_price and unrealized P&L.
func (r *Revaluer) Run(ctx context.Context) error {
	open, err := r.positions.ListOpen()
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)

	for i := range open {
		pos := open[i]
		g.Go(func() error {
			inst, err := r.instruments.GetByID(pos.SymbolID)
			if err != nil || inst == nil {
				r.log.Warn().Err(err).Int64("symbol_id", pos.SymbolID).
					Msg("Instrument lookup failed, skipping position")
				return nil
			}

			price, ok := r.prices.CurrentPrice(ctx, inst.Symbol)
			if !ok {
				r.log.Debug().Str("symbol", inst.Symbol).Msg("No quote, skipping revaluation")
				return nil
			}

			current := decimal.NewFromFloat(price)
			unrealized := current.Sub(pos.AverageEntryPrice).Mul(pos.Quantity)
			if err := r.positions.UpdateMark(pos.ID, current, unrealized); err != nil {
				r.log.Error().Err(err).Str("symbol", inst.Symbol).Msg("Failed to update mark")
			}
			return nil
		})
	}

	return g.Wait()
}

package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/paperprofit/internal/markethours"
	"github.com/aristath/paperprofit/internal/modules/instruments"
	"github.com/aristath/paperprofit/internal/modules/marketdata"
)

// Refresher writes one 1min quote bar per active instrument per tick while
// the market is open. Outside trading hours the tick is a no-op.
type Refresher struct {
	instruments *instruments.Repository
	marketdata  *marketdata.Repository
	prices      PriceSource
	isOpen      func() bool
	log         zerolog.Logger
}

// NewRefresher creates the market-data refresh worker.
func NewRefresher(instrumentsRepo *instruments.Repository, marketdataRepo *marketdata.Repository,
	prices PriceSource, log zerolog.Logger) *Refresher {
	return &Refresher{
		instruments: instrumentsRepo,
		marketdata:  marketdataRepo,
		prices:      prices,
		isOpen:      markethours.IsOpen,
		log:         log.With().Str("worker", "market_refresher").Logger(),
	}
}

// Run fetches a live quote for every active instrument and upserts it as a
// 1min bar with unknown volume.
func (r *Refresher) Run(ctx context.Context) error {
	if !r.isOpen() {
		r.log.Debug().Msg("Market closed, skipping refresh")
		return nil
	}

	active, err := r.instruments.ListActive()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)

	for i := range active {
		inst := active[i]
		g.Go(func() error {
			price, ok := r.prices.CurrentPrice(ctx, inst.Symbol)
			if !ok {
				r.log.Debug().Str("symbol", inst.Symbol).Msg("No quote available")
				return nil
			}

			bar := marketdata.QuoteBar(inst.ID, price, 0, marketdata.Interval1Min, time.Now().UTC())
			if err := r.marketdata.Create(&bar); err != nil {
				r.log.Error().Err(err).Str("symbol", inst.Symbol).Msg("Failed to store quote bar")
			}
			return nil
		})
	}

	return g.Wait()
}

package providers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/paperprofit/internal/analysis/scoring"
)

// Octopus fans a capability call out across the vendors in a fixed failover
// order. The first non-empty payload wins; a vendor error is logged and the
// call falls through. Total failure reads as no-data, never as an error.
type Octopus struct {
	yahoo        Provider
	alphavantage Provider
	fmp          Provider
	log          zerolog.Logger
}

// NewOctopus creates the aggregator.
func NewOctopus(yahoo, alphavantage, fmp Provider, log zerolog.Logger) *Octopus {
	return &Octopus{
		yahoo:        yahoo,
		alphavantage: alphavantage,
		fmp:          fmp,
		log:          log.With().Str("component", "octopus").Logger(),
	}
}

// FetchInfo tries FMP, then Alpha Vantage, then Yahoo.
func (o *Octopus) FetchInfo(ctx context.Context, symbol string) *Info {
	for _, p := range []Provider{o.fmp, o.alphavantage, o.yahoo} {
		info, err := p.FetchInfo(ctx, symbol)
		if err != nil {
			o.log.Warn().Err(err).Str("symbol", symbol).Str("vendor", p.Name()).Msg("Info fetch failed")
			continue
		}
		if info != nil {
			return info
		}
	}
	return nil
}

// FetchQuote tries Yahoo, then Alpha Vantage, then FMP.
func (o *Octopus) FetchQuote(ctx context.Context, symbol string) *Quote {
	for _, p := range []Provider{o.yahoo, o.alphavantage, o.fmp} {
		quote, err := p.FetchQuote(ctx, symbol)
		if err != nil {
			o.log.Warn().Err(err).Str("symbol", symbol).Str("vendor", p.Name()).Msg("Quote fetch failed")
			continue
		}
		if quote != nil {
			return quote
		}
	}
	return nil
}

// FetchIndicators tries Alpha Vantage, then Yahoo, then FMP.
func (o *Octopus) FetchIndicators(ctx context.Context, symbol string) *Indicators {
	for _, p := range []Provider{o.alphavantage, o.yahoo, o.fmp} {
		ind, err := p.FetchIndicators(ctx, symbol)
		if err != nil {
			o.log.Warn().Err(err).Str("symbol", symbol).Str("vendor", p.Name()).Msg("Indicator fetch failed")
			continue
		}
		if ind != nil {
			return ind
		}
	}
	return nil
}

// FetchHistorical tries Yahoo, then Alpha Vantage, then FMP.
func (o *Octopus) FetchHistorical(ctx context.Context, symbol, period string) []Bar {
	for _, p := range []Provider{o.yahoo, o.alphavantage, o.fmp} {
		bars, err := p.FetchHistorical(ctx, symbol, period)
		if err != nil {
			o.log.Warn().Err(err).Str("symbol", symbol).Str("vendor", p.Name()).Msg("Historical fetch failed")
			continue
		}
		if len(bars) > 0 {
			return bars
		}
	}
	return nil
}

// CurrentPrice returns the latest traded price, or ok=false when no vendor
// had a quote.
func (o *Octopus) CurrentPrice(ctx context.Context, symbol string) (float64, bool) {
	quote := o.FetchQuote(ctx, symbol)
	if quote == nil {
		return 0, false
	}
	return quote.Price, true
}

// EnrichInstrument implements instruments.InfoEnricher.
func (o *Octopus) EnrichInstrument(symbol string) (name, exchange, currency string, ok bool) {
	info := o.FetchInfo(context.Background(), symbol)
	if info == nil {
		return "", "", "", false
	}
	return info.Name, info.Exchange, info.Currency, true
}

// FetchStockData implements scoring.DataFetcher, mapping the vendor info
// payload onto the scoring metric bundle.
func (o *Octopus) FetchStockData(symbol string) (scoring.StockData, bool, error) {
	info := o.FetchInfo(context.Background(), symbol)
	if info == nil {
		return scoring.StockData{}, false, nil
	}

	data := scoring.StockData{
		Name:        info.Name,
		Sector:      info.Sector,
		Industry:    info.Industry,
		Description: info.Description,
		TrailingPE:  info.PERatio,
		ForwardPE:   info.ForwardPE,
		Beta:        1.0,
	}
	if info.MarketCap != nil {
		data.MarketCap = *info.MarketCap
	}
	if info.Beta != nil {
		data.Beta = *info.Beta
	}
	if info.DividendYield != nil {
		y := *info.DividendYield
		if y > 1 {
			y /= 100
		}
		data.DividendYield = y
	}
	if info.DebtToEquity != nil {
		data.DebtToEquity = *info.DebtToEquity
	}
	if info.ProfitMargins != nil {
		data.ProfitMargins = *info.ProfitMargins
	}
	if info.RevenueGrowth != nil {
		data.RevenueGrowth = *info.RevenueGrowth
	}
	if info.ROE != nil {
		data.ReturnOnEquity = *info.ROE
	}
	return data, true, nil
}

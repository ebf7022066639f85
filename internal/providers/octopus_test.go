package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name       string
	info       *Info
	quote      *Quote
	bars       []Bar
	indicators *Indicators
	err        error
	calls      int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchInfo(ctx context.Context, symbol string) (*Info, error) {
	f.calls++
	return f.info, f.err
}

func (f *fakeProvider) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	f.calls++
	return f.quote, f.err
}

func (f *fakeProvider) FetchHistorical(ctx context.Context, symbol, period string) ([]Bar, error) {
	f.calls++
	return f.bars, f.err
}

func (f *fakeProvider) FetchIndicators(ctx context.Context, symbol string) (*Indicators, error) {
	f.calls++
	return f.indicators, f.err
}

func rsi(v float64) *float64 { return &v }

func TestQuoteFailoverOrder(t *testing.T) {
	yahoo := &fakeProvider{name: "yahoo", err: errors.New("rate limited")}
	av := &fakeProvider{name: "alphavantage", quote: &Quote{Symbol: "AAPL", Price: 187.5}}
	fmp := &fakeProvider{name: "fmp", quote: &Quote{Symbol: "AAPL", Price: 999}}

	o := NewOctopus(yahoo, av, fmp, zerolog.Nop())

	quote := o.FetchQuote(context.Background(), "AAPL")
	require.NotNil(t, quote)
	assert.Equal(t, 187.5, quote.Price)
	assert.Equal(t, 1, yahoo.calls, "yahoo tried first")
	assert.Equal(t, 0, fmp.calls, "fmp never reached once alphavantage answered")
}

func TestInfoPrefersFMP(t *testing.T) {
	pe := 21.0
	yahoo := &fakeProvider{name: "yahoo", info: &Info{Symbol: "MSFT", PERatio: &pe, Name: "from-yahoo"}}
	av := &fakeProvider{name: "alphavantage"}
	fmp := &fakeProvider{name: "fmp", info: &Info{Symbol: "MSFT", PERatio: &pe, Name: "from-fmp"}}

	o := NewOctopus(yahoo, av, fmp, zerolog.Nop())

	info := o.FetchInfo(context.Background(), "MSFT")
	require.NotNil(t, info)
	assert.Equal(t, "from-fmp", info.Name)
}

func TestTotalFailureIsNoData(t *testing.T) {
	broken := errors.New("boom")
	o := NewOctopus(
		&fakeProvider{name: "yahoo", err: broken},
		&fakeProvider{name: "alphavantage"},
		&fakeProvider{name: "fmp", err: broken},
		zerolog.Nop(),
	)

	assert.Nil(t, o.FetchQuote(context.Background(), "ZZZZ"))
	assert.Nil(t, o.FetchInfo(context.Background(), "ZZZZ"))
	assert.Nil(t, o.FetchIndicators(context.Background(), "ZZZZ"))
	assert.Nil(t, o.FetchHistorical(context.Background(), "ZZZZ", PeriodThreeMonths))

	_, ok := o.CurrentPrice(context.Background(), "ZZZZ")
	assert.False(t, ok)
}

func TestIndicatorsPreferAlphaVantage(t *testing.T) {
	yahoo := &fakeProvider{name: "yahoo", indicators: &Indicators{RSI: rsi(40)}}
	av := &fakeProvider{name: "alphavantage", indicators: &Indicators{RSI: rsi(62)}}
	fmp := &fakeProvider{name: "fmp"}

	o := NewOctopus(yahoo, av, fmp, zerolog.Nop())

	ind := o.FetchIndicators(context.Background(), "AAPL")
	require.NotNil(t, ind)
	assert.Equal(t, 62.0, *ind.RSI)
}

func TestFetchStockDataMapsPayload(t *testing.T) {
	pe := 18.0
	beta := 0.9
	mc := 2_500_000_000_000.0
	yield := 2.5 // percent form, normalized to decimal
	yahoo := &fakeProvider{name: "yahoo"}
	av := &fakeProvider{name: "alphavantage"}
	fmp := &fakeProvider{name: "fmp", info: &Info{
		Symbol:        "AAPL",
		Name:          "Apple Inc.",
		Sector:        "Technology",
		PERatio:       &pe,
		Beta:          &beta,
		MarketCap:     &mc,
		DividendYield: &yield,
	}}

	o := NewOctopus(yahoo, av, fmp, zerolog.Nop())

	data, ok, err := o.FetchStockData("AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Technology", data.Sector)
	assert.Equal(t, 0.9, data.Beta)
	assert.InDelta(t, 0.025, data.DividendYield, 1e-9)
	require.NotNil(t, data.TrailingPE)
	assert.Equal(t, 18.0, *data.TrailingPE)
}

func TestEnrichInstrument(t *testing.T) {
	pe := 30.0
	fmp := &fakeProvider{name: "fmp", info: &Info{
		Symbol: "NVDA", Name: "NVIDIA Corporation", Exchange: "NASDAQ", Currency: "USD", PERatio: &pe,
	}}
	o := NewOctopus(&fakeProvider{name: "yahoo"}, &fakeProvider{name: "alphavantage"}, fmp, zerolog.Nop())

	name, exchange, currency, ok := o.EnrichInstrument("NVDA")
	require.True(t, ok)
	assert.Equal(t, "NVIDIA Corporation", name)
	assert.Equal(t, "NASDAQ", exchange)
	assert.Equal(t, "USD", currency)
}

package workers

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paperprofit/internal/modules/marketdata"
)

func TestRefresherWritesQuoteBarsWhileOpen(t *testing.T) {
	s := newTestStore(t)
	aapl := s.instrument(t, "AAPL")
	msft := s.instrument(t, "MSFT")

	r := NewRefresher(s.instruments, s.marketdata,
		&fakePrices{quotes: map[string]float64{"AAPL": 150.5, "MSFT": 300}}, zerolog.Nop())
	r.isOpen = func() bool { return true }

	require.NoError(t, r.Run(context.Background()))

	bar, err := s.marketdata.LatestBar(aapl.ID, marketdata.Interval1Min)
	require.NoError(t, err)
	require.NotNil(t, bar)
	assert.Equal(t, 150.5, bar.Close)
	assert.Equal(t, 150.5, bar.Open)
	assert.Equal(t, int64(0), bar.Volume, "live quotes carry no volume")

	other, err := s.marketdata.LatestBar(msft.ID, marketdata.Interval1Min)
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Equal(t, 300.0, other.Close)
}

func TestRefresherSkipsWhenMarketClosed(t *testing.T) {
	s := newTestStore(t)
	inst := s.instrument(t, "AAPL")

	r := NewRefresher(s.instruments, s.marketdata,
		&fakePrices{quotes: map[string]float64{"AAPL": 150}}, zerolog.Nop())
	r.isOpen = func() bool { return false }

	require.NoError(t, r.Run(context.Background()))

	bar, err := s.marketdata.LatestBar(inst.ID, marketdata.Interval1Min)
	require.NoError(t, err)
	assert.Nil(t, bar)
}

func TestRefresherToleratesMissingQuotes(t *testing.T) {
	s := newTestStore(t)
	s.instrument(t, "AAPL")

	r := NewRefresher(s.instruments, s.marketdata, &fakePrices{}, zerolog.Nop())
	r.isOpen = func() bool { return true }

	require.NoError(t, r.Run(context.Background()))
}

package technical

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}

	v, ok := SMA(prices, 5)
	require.True(t, ok)
	assert.InDelta(t, 3.0, v, 1e-9)

	v, ok = SMA(prices, 3)
	require.True(t, ok)
	assert.InDelta(t, 4.0, v, 1e-9)

	_, ok = SMA(prices, 6)
	assert.False(t, ok, "window larger than series must be undefined")
}

func TestEMASeededWithFirstSample(t *testing.T) {
	prices := []float64{10, 11, 12}

	v, ok := EMA(prices, 3)
	require.True(t, ok)

	// alpha = 2/4 = 0.5: 10 -> 10.5 -> 11.25
	assert.InDelta(t, 11.25, v, 1e-9)

	single, ok := EMA([]float64{42}, 10)
	require.True(t, ok)
	assert.InDelta(t, 42.0, single, 1e-9)
}

func TestRSIConstantSeriesReads100(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100
	}

	v, ok := RSI(prices, RSIPeriod)
	require.True(t, ok)
	assert.InDelta(t, 100.0, v, 1e-9)
}

func TestRSIMonotonicDecline(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 - float64(i)
	}

	v, ok := RSI(prices, RSIPeriod)
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-9)
}

func TestRSIMixedSeries(t *testing.T) {
	// 14 changes alternating +2 / -1: avg_gain = 1, avg_loss = 0.5.
	prices := []float64{100}
	for i := 0; i < 7; i++ {
		prices = append(prices, prices[len(prices)-1]+2)
		prices = append(prices, prices[len(prices)-1]-1)
	}

	v, ok := RSI(prices, RSIPeriod)
	require.True(t, ok)

	// RS = 2, RSI = 100 - 100/3
	assert.InDelta(t, 100-100.0/3, v, 1e-9)
}

func TestMACDSignalFallback(t *testing.T) {
	// Exactly 26 samples yields a single MACD sample, below the 9 needed
	// for a signal EMA.
	prices := make([]float64, MACDSlow)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}

	m, ok := MACD(prices)
	require.True(t, ok)
	assert.InDelta(t, m.Line, m.Signal, 1e-9)
	assert.InDelta(t, 0.0, m.Histogram, 1e-9)
}

func TestMACDWithSignalSeries(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + 0.5*float64(i) + 3*math.Sin(float64(i)/4)
	}

	m, ok := MACD(prices)
	require.True(t, ok)
	assert.InDelta(t, m.Line-m.Signal, m.Histogram, 1e-9)
	assert.NotEqual(t, m.Line, m.Signal)
}

func TestMACDTooShort(t *testing.T) {
	_, ok := MACD(make([]float64, MACDSlow-1))
	assert.False(t, ok)
}

func TestBollingerConstantSeries(t *testing.T) {
	prices := make([]float64, 25)
	for i := range prices {
		prices[i] = 50
	}

	b, ok := Bollinger(prices, BollingerWindow, BollingerK)
	require.True(t, ok)
	assert.InDelta(t, 50.0, b.Middle, 1e-9)
	assert.InDelta(t, 50.0, b.Upper, 1e-9)
	assert.InDelta(t, 50.0, b.Lower, 1e-9)
}

func TestBollingerBandWidth(t *testing.T) {
	// Alternating 90/110 has population stddev 10 over any even window.
	prices := make([]float64, BollingerWindow)
	for i := range prices {
		if i%2 == 0 {
			prices[i] = 90
		} else {
			prices[i] = 110
		}
	}

	b, ok := Bollinger(prices, BollingerWindow, BollingerK)
	require.True(t, ok)
	assert.InDelta(t, 100.0, b.Middle, 1e-9)
	assert.InDelta(t, 120.0, b.Upper, 1e-9)
	assert.InDelta(t, 80.0, b.Lower, 1e-9)
}

func TestVolatilityConstantSeriesIsZero(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 75
	}

	v, ok := Volatility(prices, VolWindow)
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-9)
}

func TestSupportResistancePivots(t *testing.T) {
	highs := make([]float64, 20)
	lows := make([]float64, 20)
	closes := make([]float64, 20)
	for i := range closes {
		highs[i] = 110
		lows[i] = 90
		closes[i] = 100
	}

	lv, ok := SupportResistance(highs, lows, closes, PivotWindow)
	require.True(t, ok)
	assert.InDelta(t, 100.0, lv.Pivot, 1e-9)
	assert.InDelta(t, 90.0, lv.Support1, 1e-9)
	assert.InDelta(t, 80.0, lv.Support2, 1e-9)
	assert.InDelta(t, 110.0, lv.Resistance1, 1e-9)
	assert.InDelta(t, 120.0, lv.Resistance2, 1e-9)
}

func TestNearLevel(t *testing.T) {
	assert.True(t, NearLevel(104, 100, LevelTolerance))
	assert.True(t, NearLevel(96, 100, LevelTolerance))
	assert.False(t, NearLevel(106, 100, LevelTolerance))
	assert.False(t, NearLevel(10, 0, LevelTolerance))
}

func TestAnalyzeTrendLabels(t *testing.T) {
	rising := make([]float64, 60)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	snap := Analyze(rising, rising, rising, 2_000_000)
	assert.Equal(t, TrendBullish, snap.Trend)

	falling := make([]float64, 60)
	for i := range falling {
		falling[i] = 200 - float64(i)
	}
	snap = Analyze(falling, falling, falling, 2_000_000)
	assert.Equal(t, TrendBearish, snap.Trend)

	snap = Analyze([]float64{100, 101}, []float64{100, 101}, []float64{100, 101}, 0)
	assert.Equal(t, TrendSideways, snap.Trend, "short series defaults to SIDEWAYS")
}

func TestAnalyzeShortSeriesDegrades(t *testing.T) {
	snap := Analyze([]float64{10}, []float64{10}, []float64{10}, 5)
	assert.Nil(t, snap.SMA20)
	assert.Nil(t, snap.RSI)
	assert.Nil(t, snap.MACD)
	assert.NotNil(t, snap.Levels, "pivots shrink to the available window")
	assert.Equal(t, 10.0, snap.Close)
}

func TestIndicatorsDocumentKeys(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i%7)
	}
	doc := Analyze(prices, prices, prices, 1_500_000).Indicators()

	for _, key := range []string{"close", "volume", "trend", "rsi", "macd", "sma_20", "bollinger_upper", "support_1"} {
		assert.Contains(t, doc, key)
	}
}

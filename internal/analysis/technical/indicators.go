// Package technical computes price-series indicators: moving averages,
// oscillators, bands, volatility, and pivot levels. All functions are pure
// and operate on chronologically ordered samples (oldest first).
package technical

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// Default windows.
const (
	RSIPeriod       = 14
	BollingerWindow = 20
	BollingerK      = 2.0
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	VolWindow       = 20
	TradingDays     = 252
)

// SMA returns the simple moving average over the last window samples.
// Returns (0, false) if fewer samples are available.
func SMA(prices []float64, window int) (float64, bool) {
	if window <= 0 || len(prices) < window {
		return 0, false
	}
	out := talib.Sma(prices, window)
	return out[len(out)-1], true
}

// EMA returns the exponential moving average seeded with the first sample,
// using alpha = 2/(window+1).
func EMA(prices []float64, window int) (float64, bool) {
	series := emaSeries(prices, window)
	if series == nil {
		return 0, false
	}
	return series[len(series)-1], true
}

func emaSeries(prices []float64, window int) []float64 {
	if window <= 0 || len(prices) == 0 {
		return nil
	}
	alpha := 2.0 / float64(window+1)
	out := make([]float64, len(prices))
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = out[i-1] + alpha*(prices[i]-out[i-1])
	}
	return out
}

// RSI computes the relative strength index over the last period changes
// using plain averages of gains and losses. A series with no losses reads
// 100.
func RSI(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}

	var gains, losses float64
	start := len(prices) - period
	for i := start; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// MACDResult holds the three MACD outputs.
type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD computes EMA(12) - EMA(26), with a 9-period EMA of the MACD line as
// signal. With fewer than 9 MACD samples the signal falls back to the
// current line and the histogram reads 0.
func MACD(prices []float64) (MACDResult, bool) {
	if len(prices) < MACDSlow {
		return MACDResult{}, false
	}

	fast := emaSeries(prices, MACDFast)
	slow := emaSeries(prices, MACDSlow)

	// MACD samples start once the slow window is covered.
	macd := make([]float64, 0, len(prices)-MACDSlow+1)
	for i := MACDSlow - 1; i < len(prices); i++ {
		macd = append(macd, fast[i]-slow[i])
	}

	line := macd[len(macd)-1]
	if len(macd) < MACDSignal {
		return MACDResult{Line: line, Signal: line, Histogram: 0}, true
	}

	signalSeries := emaSeries(macd, MACDSignal)
	signal := signalSeries[len(signalSeries)-1]
	return MACDResult{Line: line, Signal: signal, Histogram: line - signal}, true
}

// BollingerBands holds the band levels for the most recent sample.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger computes 20-period bands at k population standard deviations.
func Bollinger(prices []float64, window int, k float64) (BollingerBands, bool) {
	if window <= 0 || len(prices) < window {
		return BollingerBands{}, false
	}
	upper, middle, lower := talib.BBands(prices, window, k, k, talib.SMA)
	n := len(prices) - 1
	return BollingerBands{Upper: upper[n], Middle: middle[n], Lower: lower[n]}, true
}

// Volatility annualizes the standard deviation of daily simple returns over
// the trailing window.
func Volatility(prices []float64, window int) (float64, bool) {
	if window <= 1 || len(prices) < window+1 {
		return 0, false
	}

	returns := make([]float64, 0, window)
	start := len(prices) - window
	for i := start; i < len(prices); i++ {
		if prices[i-1] == 0 {
			return 0, false
		}
		returns = append(returns, prices[i]/prices[i-1]-1)
	}

	daily := stat.StdDev(returns, nil)
	return daily * math.Sqrt(TradingDays), true
}

// Package marketdata stores OHLCV bars per instrument and interval.
package marketdata

import "time"

// Supported bar intervals.
const (
	Interval1Min  = "1min"
	Interval5Min  = "5min"
	Interval1Hour = "1hour"
	Interval1Day  = "1day"
)

// Bar is one OHLCV row. (SymbolID, Timestamp, Interval) is unique.
type Bar struct {
	ID         int64
	SymbolID   int64
	Timestamp  time.Time
	Interval   string
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	VWAP       *float64
	TradeCount *int64
}

// QuoteBar collapses a live quote into a bar: OHLC at the quoted price,
// vwap at the price, volume as given.
func QuoteBar(symbolID int64, price float64, volume int64, interval string, ts time.Time) Bar {
	vwap := price
	return Bar{
		SymbolID:  symbolID,
		Timestamp: ts,
		Interval:  interval,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    volume,
		VWAP:      &vwap,
	}
}

// Package providers implements the market-data vendor clients and the
// failover aggregator that fronts them. Vendors never surface errors to
// callers of the aggregator: a failed or empty response falls through to
// the next vendor in the capability's order, and total failure reads as
// "no data".
package providers

import (
	"context"
	"time"
)

// Historical range identifiers, Yahoo chart API convention.
const (
	PeriodOneMonth    = "1mo"
	PeriodThreeMonths = "3mo"
	PeriodSixMonths   = "6mo"
	PeriodOneYear     = "1y"
)

// Quote is a point-in-time price observation.
type Quote struct {
	Symbol    string
	Price     float64
	Volume    int64
	Timestamp time.Time
}

// Bar is one historical OHLCV sample.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Info is the company profile payload. Pointer fields are nil when the
// vendor did not report them; a non-nil PERatio marks the payload as
// usable.
type Info struct {
	Symbol        string
	Name          string
	Exchange      string
	Currency      string
	Sector        string
	Industry      string
	Description   string
	PERatio       *float64
	ForwardPE     *float64
	PBRatio       *float64
	Beta          *float64
	DividendYield *float64
	MarketCap     *float64
	DebtToEquity  *float64
	ProfitMargins *float64
	RevenueGrowth *float64
	EPSGrowth     *float64
	ROE           *float64
	Price         *float64
}

// Indicators is a vendor-computed indicator read. A non-nil RSI marks it
// as usable.
type Indicators struct {
	RSI   *float64
	SMA20 *float64
	SMA50 *float64
	MACD  *float64
}

// Provider is one market-data vendor. A nil payload with a nil error means
// the vendor had nothing for the symbol (distinct from a transport error).
type Provider interface {
	Name() string
	FetchInfo(ctx context.Context, symbol string) (*Info, error)
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
	FetchHistorical(ctx context.Context, symbol, period string) ([]Bar, error)
	FetchIndicators(ctx context.Context, symbol string) (*Indicators, error)
}

// CredentialSource supplies vendor API keys. Empty means not configured.
type CredentialSource interface {
	APIKey(name string) (string, error)
}

package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/aristath/paperprofit/internal/analysis/technical"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// Browser-like UA; Yahoo rejects default Go clients.
const yahooUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// Yahoo talks to the Yahoo Finance query API. No credentials needed.
type Yahoo struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewYahoo creates the Yahoo Finance client.
func NewYahoo(log zerolog.Logger) *Yahoo {
	client := resty.New().
		SetBaseURL(yahooBaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", yahooUserAgent).
		SetHeader("Accept", "application/json")

	return &Yahoo{
		http: client,
		log:  log.With().Str("provider", "yahoo").Logger(),
	}
}

// Name implements Provider.
func (y *Yahoo) Name() string { return "yahoo" }

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []map[string]interface{} `json:"result"`
		Error  interface{}              `json:"error"`
	} `json:"quoteResponse"`
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice  float64 `json:"regularMarketPrice"`
				RegularMarketVolume int64   `json:"regularMarketVolume"`
				Currency            string  `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) quoteInfo(ctx context.Context, symbol string) (map[string]interface{}, error) {
	var result yahooQuoteResponse
	resp, err := y.http.R().
		SetContext(ctx).
		SetQueryParam("symbols", symbol).
		SetResult(&result).
		Get("/v7/finance/quote")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote info: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("quote info returned status %d", resp.StatusCode())
	}
	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("quote info error: %v", result.QuoteResponse.Error)
	}
	if len(result.QuoteResponse.Result) == 0 {
		return nil, nil
	}
	return result.QuoteResponse.Result[0], nil
}

// FetchInfo implements Provider.
func (y *Yahoo) FetchInfo(ctx context.Context, symbol string) (*Info, error) {
	m, err := y.quoteInfo(ctx, symbol)
	if err != nil || m == nil {
		return nil, err
	}

	info := &Info{
		Symbol:        symbol,
		Name:          getString(m, "longName"),
		Exchange:      getString(m, "fullExchangeName"),
		Currency:      getString(m, "currency"),
		Sector:        getString(m, "sector"),
		Industry:      getString(m, "industry"),
		Description:   getString(m, "longBusinessSummary"),
		PERatio:       getFloat(m, "trailingPE"),
		ForwardPE:     getFloat(m, "forwardPE"),
		PBRatio:       getFloat(m, "priceToBook"),
		Beta:          getFloat(m, "beta"),
		DividendYield: getFloat(m, "dividendYield"),
		MarketCap:     getFloat(m, "marketCap"),
		DebtToEquity:  getFloat(m, "debtToEquity"),
		ProfitMargins: getFloat(m, "profitMargins"),
		RevenueGrowth: getFloat(m, "revenueGrowth"),
		EPSGrowth:     getFloat(m, "earningsGrowth"),
		ROE:           getFloat(m, "returnOnEquity"),
		Price:         getFloat(m, "regularMarketPrice"),
	}
	if info.Name == "" {
		info.Name = getString(m, "shortName")
	}
	if info.PERatio == nil {
		return nil, nil
	}
	return info, nil
}

// FetchQuote implements Provider.
func (y *Yahoo) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	var result yahooChartResponse
	resp, err := y.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"interval": "1d", "range": "1d"}).
		SetResult(&result).
		Get("/v8/finance/chart/" + symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("chart returned status %d", resp.StatusCode())
	}
	if result.Chart.Error != nil || len(result.Chart.Result) == 0 {
		return nil, nil
	}

	meta := result.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, nil
	}
	return &Quote{
		Symbol:    symbol,
		Price:     meta.RegularMarketPrice,
		Volume:    meta.RegularMarketVolume,
		Timestamp: time.Now().UTC(),
	}, nil
}

// FetchHistorical implements Provider.
func (y *Yahoo) FetchHistorical(ctx context.Context, symbol, period string) ([]Bar, error) {
	var result yahooChartResponse
	resp, err := y.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"interval": "1d", "range": period}).
		SetResult(&result).
		Get("/v8/finance/chart/" + symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch historical data: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("historical data returned status %d", resp.StatusCode())
	}
	if result.Chart.Error != nil || len(result.Chart.Result) == 0 {
		return nil, nil
	}

	chart := result.Chart.Result[0]
	if len(chart.Indicators.Quote) == 0 {
		return nil, nil
	}
	quote := chart.Indicators.Quote[0]

	bars := make([]Bar, 0, len(chart.Timestamp))
	for i := range chart.Timestamp {
		if i >= len(quote.Close) {
			break
		}
		// Yahoo pads missing sessions with zero rows.
		if quote.Close[i] == 0 {
			continue
		}
		var volume int64
		if i < len(quote.Volume) {
			volume = quote.Volume[i]
		}
		bars = append(bars, Bar{
			Date:   time.Unix(chart.Timestamp[i], 0).UTC(),
			Open:   quote.Open[i],
			High:   quote.High[i],
			Low:    quote.Low[i],
			Close:  quote.Close[i],
			Volume: volume,
		})
	}
	return bars, nil
}

// FetchIndicators derives indicator values from historical closes; Yahoo
// has no native indicator endpoint.
func (y *Yahoo) FetchIndicators(ctx context.Context, symbol string) (*Indicators, error) {
	bars, err := y.FetchHistorical(ctx, symbol, PeriodThreeMonths)
	if err != nil || len(bars) == 0 {
		return nil, err
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	ind := &Indicators{}
	if v, ok := technical.RSI(closes, technical.RSIPeriod); ok {
		ind.RSI = &v
	}
	if v, ok := technical.SMA(closes, 20); ok {
		ind.SMA20 = &v
	}
	if v, ok := technical.SMA(closes, 50); ok {
		ind.SMA50 = &v
	}
	if m, ok := technical.MACD(closes); ok {
		ind.MACD = &m.Line
	}
	if ind.RSI == nil {
		return nil, nil
	}
	return ind, nil
}

func getFloat(m map[string]interface{}, key string) *float64 {
	if val, ok := m[key]; ok && val != nil {
		switch v := val.(type) {
		case float64:
			return &v
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		}
	}
	return nil
}

func getString(m map[string]interface{}, key string) string {
	if val, ok := m[key]; ok && val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

package providers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// CredentialAlphaVantage is the settings row holding the API key.
const CredentialAlphaVantage = "Alpha_vantage"

// AlphaVantage talks to the Alpha Vantage REST API. Without a configured
// key every call reads as no-data.
type AlphaVantage struct {
	http  *resty.Client
	creds CredentialSource
	log   zerolog.Logger
}

// NewAlphaVantage creates the Alpha Vantage client.
func NewAlphaVantage(creds CredentialSource, log zerolog.Logger) *AlphaVantage {
	client := resty.New().
		SetBaseURL(alphaVantageBaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")

	return &AlphaVantage{
		http:  client,
		creds: creds,
		log:   log.With().Str("provider", "alphavantage").Logger(),
	}
}

// Name implements Provider.
func (a *AlphaVantage) Name() string { return "alphavantage" }

func (a *AlphaVantage) apiKey() string {
	key, err := a.creds.APIKey(CredentialAlphaVantage)
	if err != nil {
		a.log.Warn().Err(err).Msg("Failed to read credential")
		return ""
	}
	return key
}

func (a *AlphaVantage) query(ctx context.Context, params map[string]string, out interface{}) error {
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get("/query")
	if err != nil {
		return fmt.Errorf("failed to query alphavantage: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("alphavantage returned status %d", resp.StatusCode())
	}
	return nil
}

// FetchInfo implements Provider via the OVERVIEW function.
func (a *AlphaVantage) FetchInfo(ctx context.Context, symbol string) (*Info, error) {
	key := a.apiKey()
	if key == "" {
		return nil, nil
	}

	var overview map[string]string
	err := a.query(ctx, map[string]string{
		"function": "OVERVIEW",
		"symbol":   symbol,
		"apikey":   key,
	}, &overview)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Symbol:        symbol,
		Name:          overview["Name"],
		Exchange:      overview["Exchange"],
		Currency:      overview["Currency"],
		Sector:        overview["Sector"],
		Industry:      overview["Industry"],
		Description:   overview["Description"],
		PERatio:       parseFloat(overview["PERatio"]),
		ForwardPE:     parseFloat(overview["ForwardPE"]),
		PBRatio:       parseFloat(overview["PriceToBookRatio"]),
		Beta:          parseFloat(overview["Beta"]),
		DividendYield: parseFloat(overview["DividendYield"]),
		MarketCap:     parseFloat(overview["MarketCapitalization"]),
		ProfitMargins: parseFloat(overview["ProfitMargin"]),
		RevenueGrowth: parseFloat(overview["QuarterlyRevenueGrowthYOY"]),
		EPSGrowth:     parseFloat(overview["QuarterlyEarningsGrowthYOY"]),
		ROE:           parseFloat(overview["ReturnOnEquityTTM"]),
	}
	if info.PERatio == nil {
		return nil, nil
	}
	return info, nil
}

type avGlobalQuote struct {
	GlobalQuote map[string]string `json:"Global Quote"`
}

// FetchQuote implements Provider via GLOBAL_QUOTE.
func (a *AlphaVantage) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	key := a.apiKey()
	if key == "" {
		return nil, nil
	}

	var result avGlobalQuote
	err := a.query(ctx, map[string]string{
		"function": "GLOBAL_QUOTE",
		"symbol":   symbol,
		"apikey":   key,
	}, &result)
	if err != nil {
		return nil, err
	}

	price := parseFloat(result.GlobalQuote["05. price"])
	if price == nil || *price <= 0 {
		return nil, nil
	}
	var volume int64
	if v := parseFloat(result.GlobalQuote["06. volume"]); v != nil {
		volume = int64(*v)
	}
	return &Quote{
		Symbol:    symbol,
		Price:     *price,
		Volume:    volume,
		Timestamp: time.Now().UTC(),
	}, nil
}

type avDailySeries struct {
	Series map[string]map[string]string `json:"Time Series (Daily)"`
}

// FetchHistorical implements Provider via TIME_SERIES_DAILY. The period
// argument only trims the tail; Alpha Vantage always returns ~100 bars on
// the compact output size.
func (a *AlphaVantage) FetchHistorical(ctx context.Context, symbol, period string) ([]Bar, error) {
	key := a.apiKey()
	if key == "" {
		return nil, nil
	}

	var result avDailySeries
	err := a.query(ctx, map[string]string{
		"function":   "TIME_SERIES_DAILY",
		"symbol":     symbol,
		"outputsize": "compact",
		"apikey":     key,
	}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.Series) == 0 {
		return nil, nil
	}

	dates := make([]string, 0, len(result.Series))
	for d := range result.Series {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	bars := make([]Bar, 0, len(dates))
	for _, d := range dates {
		row := result.Series[d]
		date, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		o, h, l, c := parseFloat(row["1. open"]), parseFloat(row["2. high"]), parseFloat(row["3. low"]), parseFloat(row["4. close"])
		if c == nil {
			continue
		}
		var volume int64
		if v := parseFloat(row["5. volume"]); v != nil {
			volume = int64(*v)
		}
		bar := Bar{Date: date.UTC(), Close: *c, Volume: volume}
		if o != nil {
			bar.Open = *o
		}
		if h != nil {
			bar.High = *h
		}
		if l != nil {
			bar.Low = *l
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

type avRSI struct {
	Analysis map[string]map[string]string `json:"Technical Analysis: RSI"`
}

// FetchIndicators implements Provider via the RSI function.
func (a *AlphaVantage) FetchIndicators(ctx context.Context, symbol string) (*Indicators, error) {
	key := a.apiKey()
	if key == "" {
		return nil, nil
	}

	var result avRSI
	err := a.query(ctx, map[string]string{
		"function":    "RSI",
		"symbol":      symbol,
		"interval":    "daily",
		"time_period": "14",
		"series_type": "close",
		"apikey":      key,
	}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.Analysis) == 0 {
		return nil, nil
	}

	// The newest date carries the current reading.
	latest := ""
	for d := range result.Analysis {
		if d > latest {
			latest = d
		}
	}
	rsi := parseFloat(result.Analysis[latest]["RSI"])
	if rsi == nil {
		return nil, nil
	}
	return &Indicators{RSI: rsi}, nil
}

func parseFloat(s string) *float64 {
	if s == "" || s == "None" || s == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

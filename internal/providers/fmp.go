package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const fmpBaseURL = "https://financialmodelingprep.com/stable"

// CredentialFMP is the settings row holding the API key.
const CredentialFMP = "Financial_modeling_prep"

// FMP talks to the Financial Modeling Prep stable API. Without a configured
// key every call reads as no-data.
type FMP struct {
	http  *resty.Client
	creds CredentialSource
	log   zerolog.Logger
}

// NewFMP creates the Financial Modeling Prep client.
func NewFMP(creds CredentialSource, log zerolog.Logger) *FMP {
	client := resty.New().
		SetBaseURL(fmpBaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")

	return &FMP{
		http:  client,
		creds: creds,
		log:   log.With().Str("provider", "fmp").Logger(),
	}
}

// Name implements Provider.
func (f *FMP) Name() string { return "fmp" }

func (f *FMP) apiKey() string {
	key, err := f.creds.APIKey(CredentialFMP)
	if err != nil {
		f.log.Warn().Err(err).Msg("Failed to read credential")
		return ""
	}
	return key
}

type fmpProfile struct {
	Symbol        string   `json:"symbol"`
	CompanyName   string   `json:"companyName"`
	Exchange      string   `json:"exchange"`
	Currency      string   `json:"currency"`
	Sector        string   `json:"sector"`
	Industry      string   `json:"industry"`
	Description   string   `json:"description"`
	Price         *float64 `json:"price"`
	Beta          *float64 `json:"beta"`
	MarketCap     *float64 `json:"marketCap"`
	LastDividend  *float64 `json:"lastDividend"`
	PERatio       *float64 `json:"pe"`
	PriceToBook   *float64 `json:"priceToBookRatio"`
}

// FetchInfo implements Provider via the company profile endpoint.
func (f *FMP) FetchInfo(ctx context.Context, symbol string) (*Info, error) {
	key := f.apiKey()
	if key == "" {
		return nil, nil
	}

	var profiles []fmpProfile
	resp, err := f.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"symbol": symbol, "apikey": key}).
		SetResult(&profiles).
		Get("/profile")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("profile returned status %d", resp.StatusCode())
	}
	if len(profiles) == 0 {
		return nil, nil
	}

	p := profiles[0]
	info := &Info{
		Symbol:      symbol,
		Name:        p.CompanyName,
		Exchange:    p.Exchange,
		Currency:    p.Currency,
		Sector:      p.Sector,
		Industry:    p.Industry,
		Description: p.Description,
		PERatio:     p.PERatio,
		PBRatio:     p.PriceToBook,
		Beta:        p.Beta,
		MarketCap:   p.MarketCap,
		Price:       p.Price,
	}
	if info.PERatio == nil {
		return nil, nil
	}
	return info, nil
}

type fmpQuote struct {
	Symbol string   `json:"symbol"`
	Price  *float64 `json:"price"`
	Volume *int64   `json:"volume"`
}

// FetchQuote implements Provider via the quote endpoint.
func (f *FMP) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	key := f.apiKey()
	if key == "" {
		return nil, nil
	}

	var quotes []fmpQuote
	resp, err := f.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"symbol": symbol, "apikey": key}).
		SetResult(&quotes).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("quote returned status %d", resp.StatusCode())
	}
	if len(quotes) == 0 || quotes[0].Price == nil || *quotes[0].Price <= 0 {
		return nil, nil
	}

	var volume int64
	if quotes[0].Volume != nil {
		volume = *quotes[0].Volume
	}
	return &Quote{
		Symbol:    symbol,
		Price:     *quotes[0].Price,
		Volume:    volume,
		Timestamp: time.Now().UTC(),
	}, nil
}

type fmpHistoricalBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// FetchHistorical implements Provider via the light EOD endpoint.
func (f *FMP) FetchHistorical(ctx context.Context, symbol, period string) ([]Bar, error) {
	key := f.apiKey()
	if key == "" {
		return nil, nil
	}

	var rows []fmpHistoricalBar
	resp, err := f.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"symbol": symbol, "apikey": key}).
		SetResult(&rows).
		Get("/historical-price-eod/full")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch historical data: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("historical data returned status %d", resp.StatusCode())
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// FMP returns newest first.
	bars := make([]Bar, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil || r.Close == 0 {
			continue
		}
		bars = append(bars, Bar{
			Date:   date.UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	return bars, nil
}

// FetchIndicators is not supported by the FMP tier in use.
func (f *FMP) FetchIndicators(ctx context.Context, symbol string) (*Indicators, error) {
	return nil, nil
}

// Package scoring computes instrument risk and overall scores plus a sector
// bucket classification, and persists them on the instruments table.
package scoring

import (
	"math"
	"strings"
)

// Risk style labels.
const (
	StyleSafe     = "STEADY & SAFE"
	StyleModerate = "MODERATE & BALANCED"
	StyleRisky    = "RISKY & WILD"
)

// Sector buckets.
const (
	BucketMegaTech      = "MEGA TECH"
	BucketNewEconomy    = "NEW ECONOMY"
	BucketOldEconomy    = "OLD ECONOMY"
	BucketMaterials     = "MATERIALS & MINING"
	BucketConsumer      = "CONSUMER FAVORITES"
	BucketHealthcare    = "HEALTHCARE"
	BucketFinancials    = "FINANCIAL GIANTS"
	BucketInfra         = "INFRASTRUCTURE"
	BucketRealEstate    = "REAL ESTATE"
	BucketEntertainment = "ENTERTAINMENT & MEDIA"
)

// Thresholds drives all scoring formulas. Zero value is not usable; start
// from DefaultThresholds.
type Thresholds struct {
	BetaBaseline      float64
	BetaSensitivity   float64
	DivYieldTarget    float64
	DebtHealthy       float64
	DebtSensitivity   float64
	MarginSensitivity float64

	PEFairValue       float64
	PESensitivity     float64
	GrowthSensitivity float64
	ROESensitivity    float64

	RiskSafeThreshold     int
	RiskModerateThreshold int

	MegaCapThreshold float64
}

// DefaultThresholds returns the standard configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BetaBaseline:          1.0,
		BetaSensitivity:       50,
		DivYieldTarget:        4.0,
		DebtHealthy:           1.0,
		DebtSensitivity:       25,
		MarginSensitivity:     5,
		PEFairValue:           20.0,
		PESensitivity:         2.5,
		GrowthSensitivity:     5,
		ROESensitivity:        5,
		RiskSafeThreshold:     70,
		RiskModerateThreshold: 50,
		MegaCapThreshold:      1_000_000_000_000,
	}
}

// StockData is the metric bundle scoring operates on. PE fields are nil
// when the vendor did not report them; the rest default to zero.
type StockData struct {
	Name           string
	Sector         string
	Industry       string
	Description    string
	MarketCap      float64
	Beta           float64
	DividendYield  float64
	DebtToEquity   float64
	ProfitMargins  float64
	TrailingPE     *float64
	ForwardPE      *float64
	RevenueGrowth  float64
	ReturnOnEquity float64
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// RiskScore computes the 0..100 safety score (higher = safer) as a weighted
// blend of beta, dividend, debt, and margin sub-scores.
func RiskScore(d StockData, t Thresholds) int {
	betaScore := clamp(100 - math.Abs(d.Beta-t.BetaBaseline)*t.BetaSensitivity)
	divScore := clamp(d.DividendYield * (100 / t.DivYieldTarget))
	debtPenalty := math.Max(0, (d.DebtToEquity-t.DebtHealthy)*t.DebtSensitivity)
	debtScore := clamp(100 - debtPenalty)
	marginScore := clamp(d.ProfitMargins * t.MarginSensitivity)

	return int(math.Round(betaScore*0.3 + divScore*0.2 + debtScore*0.3 + marginScore*0.2))
}

// RiskStyle labels a risk score.
func RiskStyle(riskScore int, t Thresholds) string {
	switch {
	case riskScore >= t.RiskSafeThreshold:
		return StyleSafe
	case riskScore >= t.RiskModerateThreshold:
		return StyleModerate
	default:
		return StyleRisky
	}
}

// OverallScore blends valuation, growth, quality, and risk at 25% each.
// Valuation prefers forward PE; an unknown or non-positive PE scores 40.
func OverallScore(d StockData, riskScore int, t Thresholds) int {
	pe := d.ForwardPE
	if pe == nil {
		pe = d.TrailingPE
	}

	valScore := 40.0
	if pe != nil && *pe > 0 {
		valScore = clamp(100 - math.Abs(*pe-t.PEFairValue)*t.PESensitivity)
	}

	growthScore := clamp(50 + d.RevenueGrowth*t.GrowthSensitivity)
	roeScore := clamp(d.ReturnOnEquity * t.ROESensitivity)
	marginScore := clamp(d.ProfitMargins * t.MarginSensitivity)
	qualityScore := (roeScore + marginScore) / 2

	return int(math.Round(valScore*0.25 + growthScore*0.25 + qualityScore*0.25 + float64(riskScore)*0.25))
}

// LetterGrade converts a numeric score to a letter grade.
func LetterGrade(score int) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B+"
	case score >= 60:
		return "B"
	case score >= 50:
		return "C"
	default:
		return "D"
	}
}

// sectorOverrides pins specific tickers to a bucket regardless of their
// reported sector.
var sectorOverrides = map[string]string{}

// sectorKeywords drives the fallback classification when the GICS sector
// matches no rule. Counted against the description and industry strings.
// Ordered so ties resolve deterministically.
var sectorKeywords = []struct {
	bucket   string
	keywords []string
}{
	{BucketNewEconomy, []string{"software", "cloud", "semiconductor", "artificial intelligence", "e-commerce"}},
	{BucketOldEconomy, []string{"oil", "gas", "mining", "manufacturing", "airline"}},
	{BucketHealthcare, []string{"pharmaceutical", "biotech", "medical", "health"}},
	{BucketFinancials, []string{"bank", "insurance", "asset management"}},
	{BucketInfra, []string{"utility", "pipeline", "telecom", "tower"}},
	{BucketConsumer, []string{"retail", "beverage", "restaurant", "apparel"}},
	{BucketEntertainment, []string{"media", "streaming", "gaming", "entertainment"}},
}

// SectorBucket classifies a ticker. Priority: explicit override, then
// sector rules, then keyword counting over description and industry.
func SectorBucket(ticker string, d StockData, t Thresholds) string {
	ticker = strings.ToUpper(ticker)
	if bucket, ok := sectorOverrides[ticker]; ok {
		return bucket
	}

	sector := strings.ToLower(d.Sector)
	industry := strings.ToLower(d.Industry)
	desc := strings.ToLower(d.Description)

	containsAny := func(s string, kws ...string) bool {
		for _, kw := range kws {
			if strings.Contains(s, kw) {
				return true
			}
		}
		return false
	}

	switch {
	case strings.Contains(sector, "technology") || strings.Contains(industry, "software"):
		if d.MarketCap > t.MegaCapThreshold {
			return BucketMegaTech
		}
		return BucketNewEconomy
	case strings.Contains(sector, "energy"):
		return BucketOldEconomy
	case strings.Contains(sector, "industrials"):
		if containsAny(desc, "electric vehicle", "renewable", "solar") {
			return BucketNewEconomy
		}
		return BucketOldEconomy
	case strings.Contains(sector, "materials"):
		return BucketMaterials
	case strings.Contains(sector, "consumer"):
		if containsAny(desc, "electric", "ride", "delivery", "fintech", "app", "platform") {
			return BucketNewEconomy
		}
		return BucketConsumer
	case strings.Contains(sector, "health"):
		return BucketHealthcare
	case strings.Contains(sector, "financial"):
		return BucketFinancials
	case strings.Contains(sector, "utilities") || strings.Contains(sector, "utility"):
		return BucketInfra
	case strings.Contains(sector, "real estate"):
		return BucketRealEstate
	case strings.Contains(sector, "communication"):
		if containsAny(desc, "telecom", "tower", "wireless", "broadband") {
			return BucketInfra
		}
		return BucketEntertainment
	}

	best := BucketOldEconomy
	bestScore := 0
	for _, entry := range sectorKeywords {
		score := 0
		for _, kw := range entry.keywords {
			if strings.Contains(desc, kw) || strings.Contains(industry, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = entry.bucket
		}
	}
	return best
}

// Package fundamental derives company-level quality metrics from a vendor
// info payload. All computations are pure; missing inputs are modelled as
// nil pointers and simply skip their contribution.
package fundamental

// Moat strength tiers.
const (
	MoatStrong   = "strong"
	MoatModerate = "moderate"
	MoatWeak     = "weak"
)

// Default predicate thresholds.
const (
	DefaultMinQuality     = 70.0
	DefaultMinROE         = 0.1
	DefaultMinGrowth      = 0.1
	DefaultMaxPE          = 20.0
	DefaultMaxPB          = 2.0
	DefaultShiftThreshold = 0.1
)

// Metrics is the input bundle. Nil means the vendor did not report the
// field.
type Metrics struct {
	PERatio       *float64
	PBRatio       *float64
	MarketCap     *float64
	Beta          *float64
	DividendYield *float64
	ROE           *float64
	RevenueGrowth *float64
	EPSGrowth     *float64
	Sector        string
}

// NormalizedDividendYield returns the yield as a decimal fraction. Vendors
// disagree on units; anything above 1 is treated as a percentage.
func (m Metrics) NormalizedDividendYield() *float64 {
	if m.DividendYield == nil {
		return nil
	}
	y := *m.DividendYield
	if y > 1 {
		y /= 100
	}
	return &y
}

// QualityScore buckets P/E, market cap, beta, dividend presence, and sector
// presence into an additive 0..100 score.
func QualityScore(m Metrics) int {
	score := 0

	if m.PERatio != nil && *m.PERatio > 0 {
		switch pe := *m.PERatio; {
		case pe < 15:
			score += 25
		case pe < 25:
			score += 15
		case pe < 40:
			score += 5
		}
	}

	if m.MarketCap != nil {
		switch mc := *m.MarketCap; {
		case mc > 10_000_000_000:
			score += 25
		case mc > 2_000_000_000:
			score += 15
		case mc > 300_000_000:
			score += 10
		}
	}

	if m.Beta != nil && *m.Beta != 0 {
		switch b := *m.Beta; {
		case b < 0.8:
			score += 20
		case b < 1.2:
			score += 15
		case b < 1.5:
			score += 10
		}
	}

	if y := m.NormalizedDividendYield(); y != nil && *y > 0 {
		score += 10
	}

	if m.Sector != "" && m.Sector != "N/A" {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

// ConvictionScore blends quality (40%) with growth, valuation, and
// profitability buckets, capped at 100.
func ConvictionScore(m Metrics) int {
	score := float64(QualityScore(m)) * 0.4

	if m.RevenueGrowth != nil {
		switch g := *m.RevenueGrowth; {
		case g > 0.2:
			score += 20
		case g > 0.1:
			score += 15
		case g > 0.05:
			score += 10
		}
	}

	if m.PERatio != nil && *m.PERatio > 0 {
		switch pe := *m.PERatio; {
		case pe < 15:
			score += 20
		case pe < 25:
			score += 15
		case pe < 35:
			score += 10
		}
	}

	if m.ROE != nil {
		switch r := *m.ROE; {
		case r > 0.2:
			score += 20
		case r > 0.15:
			score += 15
		case r > 0.1:
			score += 10
		}
	}

	if score > 100 {
		score = 100
	}
	return int(score)
}

var strongMoatSectors = map[string]bool{
	"Technology":             true,
	"Healthcare":             true,
	"Consumer Defensive":     true,
	"Utilities":              true,
	"Communication Services": true,
}

var moderateMoatSectors = map[string]bool{
	"Industrials":        true,
	"Consumer Cyclical":  true,
	"Financial Services": true,
}

// MoatStrength maps the sector to a base tier and promotes one tier for
// companies above $50B market cap.
func MoatStrength(m Metrics) string {
	if m.Sector == "" || m.Sector == "N/A" {
		return MoatWeak
	}

	base := MoatWeak
	if strongMoatSectors[m.Sector] {
		base = MoatStrong
	} else if moderateMoatSectors[m.Sector] {
		base = MoatModerate
	}

	if m.MarketCap != nil && *m.MarketCap > 50_000_000_000 {
		switch base {
		case MoatModerate:
			return MoatStrong
		case MoatWeak:
			return MoatModerate
		}
	}
	return base
}

// MeetsQuality reports whether the quality score reaches minQuality.
func MeetsQuality(m Metrics, minQuality float64) bool {
	return float64(QualityScore(m)) >= minQuality
}

// MeetsROE reports whether ROE reaches minROE. Nil when ROE is unknown.
func MeetsROE(m Metrics, minROE float64) *bool {
	if m.ROE == nil {
		return nil
	}
	ok := *m.ROE >= minROE
	return &ok
}

// MeetsGrowth checks the better of revenue and EPS growth against
// minGrowth. Nil when neither is known.
func MeetsGrowth(m Metrics, minGrowth float64) *bool {
	var best *float64
	if m.RevenueGrowth != nil {
		best = m.RevenueGrowth
	}
	if m.EPSGrowth != nil && (best == nil || *m.EPSGrowth > *best) {
		best = m.EPSGrowth
	}
	if best == nil {
		return nil
	}
	ok := *best >= minGrowth
	return &ok
}

// MeetsValuation checks P/E and P/B ceilings. A missing ratio passes; nil
// is returned only when both are unknown.
func MeetsValuation(m Metrics, maxPE, maxPB float64) *bool {
	if m.PERatio == nil && m.PBRatio == nil {
		return nil
	}
	ok := (m.PERatio == nil || *m.PERatio <= maxPE) &&
		(m.PBRatio == nil || *m.PBRatio <= maxPB)
	return &ok
}

// HasFundamentalShift reports deterioration: revenue or EPS growth below
// -threshold, or quality below 50.
func HasFundamentalShift(m Metrics, threshold float64) bool {
	if m.RevenueGrowth != nil && *m.RevenueGrowth < -threshold {
		return true
	}
	if m.EPSGrowth != nil && *m.EPSGrowth < -threshold {
		return true
	}
	return QualityScore(m) < 50
}

package strategies

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Params is a strategy's open-ended parameter bag.
type Params map[string]interface{}

// Defaults applied where a strategy does not set its own value.
var defaultParams = Params{
	"max_position_size_percent":  10.0,
	"max_portfolio_risk_percent": 25.0,
	"stop_loss_percent":          5.0,
	"take_profit_percent":        15.0,
	"rsi_oversold":               30.0,
	"rsi_overbought":             70.0,
	"min_volume":                 1_000_000.0,
	"max_positions":              10.0,
}

// fundamentalKeys are the parameter keys whose presence activates
// fundamental analysis in the decision loop.
var fundamentalKeys = []string{
	"min_quality_score",
	"minimum_roe_percent",
	"min_revenue_growth",
	"min_eps_growth",
	"max_pe",
	"max_pb",
	"max_pe_ratio",
	"max_peg",
	"min_dividend_yield",
	"conviction_score_minimum",
	"preferred_industry_moat",
	"sell_on_fundamental_shift",
	"underlying_quality_required",
	"narrative_match_required",
	"discount_to_intrinsic_value",
	"required_margin_of_safety_percent",
}

// valuationKeys activate the valuation bonus in the composite score.
var valuationKeys = []string{
	"max_pe",
	"max_pb",
	"max_pe_ratio",
	"max_peg",
	"discount_to_intrinsic_value",
	"required_margin_of_safety_percent",
}

// ParseParams accepts either a JSON object document or an empty string and
// merges the result over the defaults table.
func ParseParams(raw string) Params {
	merged := make(Params, len(defaultParams))
	for k, v := range defaultParams {
		merged[k] = v
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return merged
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return merged
	}
	for k, v := range doc {
		merged[k] = v
	}
	return merged
}

// Merge overlays p on the defaults table; a nil map yields pure defaults.
func (p Params) Merge() Params {
	merged := make(Params, len(defaultParams)+len(p))
	for k, v := range defaultParams {
		merged[k] = v
	}
	for k, v := range p {
		merged[k] = v
	}
	return merged
}

// Has reports whether the key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Float returns the parameter as float64, accepting JSON numbers, integers,
// and numeric strings. Missing or unparseable values yield def.
func (p Params) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return def
}

// Int returns the parameter as int.
func (p Params) Int(key string, def int) int {
	return int(p.Float(key, float64(def)))
}

// Bool returns the parameter as bool, accepting booleans, numbers and the
// usual truthy strings.
func (p Params) Bool(key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		lower := strings.ToLower(strings.TrimSpace(b))
		return lower == "true" || lower == "1" || lower == "yes" || lower == "on"
	}
	return def
}

// String returns the parameter as a string.
func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok {
		return def
	}
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

// HasFundamentalKeys reports whether any fundamental-analysis key is set.
func (p Params) HasFundamentalKeys() bool {
	for _, k := range fundamentalKeys {
		if p.Has(k) {
			return true
		}
	}
	return false
}

// HasValuationKeys reports whether any valuation threshold is set.
func (p Params) HasValuationKeys() bool {
	for _, k := range valuationKeys {
		if p.Has(k) {
			return true
		}
	}
	return false
}

// Encode serializes the bag as a JSON document for storage.
func (p Params) Encode() (string, error) {
	if p == nil {
		return "", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

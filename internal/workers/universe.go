package workers

import (
	"encoding/json"
	"strings"
)

// ParseUniverse accepts a stored stock list as a JSON array, a comma- or
// semicolon-separated string, or a newline-separated block. Symbols are
// uppercased, trimmed, and deduplicated in order.
func ParseUniverse(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var tokens []string
	if strings.HasPrefix(raw, "[") {
		var doc []string
		if err := json.Unmarshal([]byte(raw), &doc); err == nil {
			tokens = doc
		}
	}
	if tokens == nil {
		tokens = strings.FieldsFunc(raw, func(r rune) bool {
			return r == ',' || r == ';' || r == '\n' || r == '\r'
		})
	}

	seen := make(map[string]bool, len(tokens))
	var symbols []string
	for _, tok := range tokens {
		sym := strings.ToUpper(strings.TrimSpace(tok))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		symbols = append(symbols, sym)
	}
	return symbols
}

// DefaultUniverse buckets an AI prompt into a stock list by keyword when
// neither the AI platform nor a stored list produced anything.
func DefaultUniverse(prompt string) []string {
	lower := strings.ToLower(prompt)

	contains := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("tech", "technology"):
		return []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META"}
	case contains("finance", "bank"):
		return []string{"JPM", "BAC", "WFC", "C", "GS", "MS"}
	case contains("health", "pharma"):
		return []string{"JNJ", "PFE", "MRK", "ABT", "UNH", "LLY"}
	case contains("energy", "oil"):
		return []string{"XOM", "CVX", "COP", "SLB", "EOG", "MPC"}
	case contains("consumer", "retail"):
		return []string{"WMT", "TGT", "COST", "HD", "LOW", "AMZN"}
	case contains("industrial"):
		return []string{"CAT", "BA", "HON", "GE", "MMM", "UTX"}
	default:
		return []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA", "META", "JPM", "V", "JNJ"}
	}
}

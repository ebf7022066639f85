package ai

import (
	"regexp"
	"strings"
)

// Common English words that match the ticker shape but never are tickers.
var symbolBlacklist = map[string]bool{
	"THE": true, "AND": true, "FOR": true, "WITH": true, "THIS": true,
	"THAT": true, "FROM": true, "HAVE": true, "WILL": true, "ARE": true,
	"NOT": true,
}

var (
	tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)
	tickerScan    = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
	listSplitter  = regexp.MustCompile(`[,;|\s]+`)
	leadingBullet = regexp.MustCompile(`^\s*[-*•\d.)]+\s*`)
	labelPrefixes = []string{"symbols:", "stocks:", "tickers:", "recommendations:", "stock list:", "list:"}
)

// ParseStockList extracts ticker symbols from free-form AI output. Lines
// are stripped of bullets and labels, split on list separators, and
// filtered to the ticker shape minus the common-word blacklist. When no
// line yields symbols, the whole text is scanned for ticker-shaped words.
func ParseStockList(text string) []string {
	var symbols []string
	seen := map[string]bool{}

	// Only tokens already written in uppercase count; prose words like
	// "is" or "Growth" are not tickers.
	add := func(token string) {
		token = strings.TrimSpace(token)
		if !tickerPattern.MatchString(token) || seen[token] || symbolBlacklist[token] {
			return
		}
		seen[token] = true
		symbols = append(symbols, token)
	}

	for _, line := range strings.Split(text, "\n") {
		line = leadingBullet.ReplaceAllString(line, "")
		lower := strings.ToLower(line)
		for _, prefix := range labelPrefixes {
			if strings.HasPrefix(lower, prefix) {
				line = line[len(prefix):]
				break
			}
		}
		for _, token := range listSplitter.Split(strings.TrimSpace(line), -1) {
			add(token)
		}
	}

	if len(symbols) > 0 {
		return symbols
	}

	// No line split cleanly; scan the whole text for ticker-shaped words.
	for _, token := range tickerScan.FindAllString(text, -1) {
		add(token)
	}
	return symbols
}

package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommaSeparatedList(t *testing.T) {
	got := ParseStockList("AAPL, MSFT, GOOGL, AMZN, TSLA")
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"}, got)
}

func TestParseStripsLabelsAndBullets(t *testing.T) {
	text := "Symbols: AAPL, MSFT\n- GOOGL\n* AMZN\n1. NVDA"
	got := ParseStockList(text)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA"}, got)
}

func TestParseAlternateSeparators(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL"}, ParseStockList("AAPL; MSFT | GOOGL"))
	assert.Equal(t, []string{"AAPL", "MSFT"}, ParseStockList("AAPL MSFT"))
}

func TestParseRejectsBlacklistAndProse(t *testing.T) {
	text := "THE best stocks FOR growth ARE: AAPL AND MSFT"
	got := ParseStockList(text)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestParseRejectsLowercaseAndLongTokens(t *testing.T) {
	got := ParseStockList("consider AAPL, msft, ALPHABET")
	assert.Equal(t, []string{"AAPL"}, got)
}

func TestParseDeduplicates(t *testing.T) {
	got := ParseStockList("AAPL, MSFT, AAPL")
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestParseRegexFallbackOverWholeText(t *testing.T) {
	// No token splits cleanly, so the whole text is scanned instead.
	text := "picks:AAPL(tech) then:JPM(banking)"
	got := ParseStockList(text)
	assert.Contains(t, got, "AAPL")
	assert.Contains(t, got, "JPM")
}

func TestParseEmptyInput(t *testing.T) {
	assert.Empty(t, ParseStockList(""))
	assert.Empty(t, ParseStockList("no tickers here, just words"))
}

func TestParseIdempotentUnderNormalization(t *testing.T) {
	first := ParseStockList("Stocks: AAPL, MSFT, GOOGL")
	second := ParseStockList(joinComma(first))
	assert.Equal(t, first, second)
}

func joinComma(symbols []string) string {
	out := ""
	for i, s := range symbols {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func TestCacheKeyDeterministic(t *testing.T) {
	a := Key("tech growth stocks", "deepseek")
	b := Key("tech growth stocks", "deepseek")
	c := Key("tech growth stocks", "openai")
	d := Key("value stocks", "deepseek")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Contains(t, a, "ai_stock_list_cache_")
	assert.Contains(t, a, "_deepseek")
}

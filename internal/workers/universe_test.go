package workers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUniverse(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"comma separated", "AAPL, MSFT, GOOGL", []string{"AAPL", "MSFT", "GOOGL"}},
		{"newline separated", "AAPL\nMSFT\nGOOGL", []string{"AAPL", "MSFT", "GOOGL"}},
		{"json array", `["AAPL", "msft"]`, []string{"AAPL", "MSFT"}},
		{"mixed separators", "AAPL;MSFT,GOOGL", []string{"AAPL", "MSFT", "GOOGL"}},
		{"lowercase uppercased", "aapl, msft", []string{"AAPL", "MSFT"}},
		{"duplicates dropped", "AAPL,MSFT,AAPL", []string{"AAPL", "MSFT"}},
		{"empty", "", nil},
		{"whitespace only", "  \n ", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseUniverse(tc.raw))
		})
	}
}

func TestDefaultUniverseKeywordBuckets(t *testing.T) {
	assert.Contains(t, DefaultUniverse("best technology picks"), "NVDA")
	assert.Contains(t, DefaultUniverse("solid bank stocks"), "JPM")
	assert.Contains(t, DefaultUniverse("pharma leaders"), "PFE")
	assert.Contains(t, DefaultUniverse("oil and gas"), "XOM")
	assert.Contains(t, DefaultUniverse("retail winners"), "WMT")
	assert.Contains(t, DefaultUniverse("industrial giants"), "CAT")

	// Unmatched prompts land on the broad default list.
	def := DefaultUniverse("anything else entirely")
	assert.Contains(t, def, "AAPL")
	assert.Contains(t, def, "TSLA")
	assert.Len(t, def, 10)
}

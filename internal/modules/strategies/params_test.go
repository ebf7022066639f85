package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasValuationKeys(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{"max_pe", `{"max_pe": 25}`, true},
		{"max_pb", `{"max_pb": 3}`, true},
		{"discount to intrinsic value", `{"discount_to_intrinsic_value": 15}`, true},
		{"margin of safety", `{"required_margin_of_safety_percent": 20}`, true},
		{"non-valuation fundamental key", `{"min_roe": 0.15}`, false},
		{"empty", ``, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseParams(tc.raw).HasValuationKeys())
		})
	}
}

func TestHasFundamentalKeys(t *testing.T) {
	assert.True(t, ParseParams(`{"required_margin_of_safety_percent": 20}`).HasFundamentalKeys())
	assert.True(t, ParseParams(`{"min_quality_score": 60}`).HasFundamentalKeys())
	assert.False(t, ParseParams(`{"rsi_oversold": 25}`).HasFundamentalKeys())
}

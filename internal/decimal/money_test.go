package decimal_test

import (
	"testing"

	dec "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/docintel/internal/decimal"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"comma thousands dot decimal", "1,234.56", "1234.56"},
		{"dot thousands comma decimal", "1.234,56", "1234.56"},
		{"comma thousands only", "2,500", "2500"},
		{"decimal comma", "3,5", "3.5"},
		{"multiple comma groups", "1,234,567", "1234567"},
		{"negative with symbol", "-$150.00", "-150.00"},
		{"unicode minus", "−150.00", "-150.00"},
		{"non-breaking space", "1\u00a0234,50", "1234.50"},
		{"plain integer", "1234", "1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, decimal.NormalizeAmount(tt.input))
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1,234.56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"2,500", "2500"},
		{"3,5", "3.5"},
		{"USD 3,835.00", "3835"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, ok := decimal.ParseAmount(tt.input)
			require.True(t, ok)
			assert.True(t, d.Equal(dec.RequireFromString(tt.expected)),
				"input=%s: got %s, want %s", tt.input, d.String(), tt.expected)
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "-", "1.234.567"} {
		_, ok := decimal.ParseAmount(input)
		assert.False(t, ok, "input=%q", input)
	}
}

func TestAbsBelow(t *testing.T) {
	three := dec.NewFromInt(3)
	assert.True(t, decimal.AbsBelow(dec.RequireFromString("2.99"), three))
	assert.True(t, decimal.AbsBelow(dec.RequireFromString("-1"), three))
	assert.False(t, decimal.AbsBelow(dec.NewFromInt(3), three))
	assert.False(t, decimal.AbsBelow(dec.NewFromInt(-10), three))
}

func TestLargestAbs(t *testing.T) {
	values := []dec.Decimal{
		dec.NewFromInt(100),
		dec.NewFromInt(-500),
		dec.NewFromInt(500),
		dec.NewFromInt(20),
	}
	// First of the tied magnitudes wins
	assert.Equal(t, 1, decimal.LargestAbs(values))
	assert.Equal(t, -1, decimal.LargestAbs(nil))
}

func TestKey(t *testing.T) {
	a := dec.RequireFromString("3250.00")
	b := dec.NewFromInt(3250)
	assert.Equal(t, decimal.Key(a), decimal.Key(b))
}

func TestSum(t *testing.T) {
	values := []dec.Decimal{
		dec.NewFromInt(100),
		dec.NewFromInt(200),
		dec.NewFromInt(300),
	}
	result := decimal.Sum(values)
	assert.True(t, result.Equal(dec.NewFromInt(600)))
}

func TestSum_Empty(t *testing.T) {
	result := decimal.Sum([]dec.Decimal{})
	assert.True(t, result.IsZero())
}

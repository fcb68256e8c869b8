package decimal

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

var (
	thousandsComma = regexp.MustCompile(`,\d{3}\b`)
	nonNumeric     = regexp.MustCompile(`[^\d.\-]`)
)

// NormalizeAmount rewrites a locale-formatted numeric literal into plain
// dot-decimal form.
//
// When both ',' and '.' occur, whichever appears last is the decimal point.
// A lone ',' is a thousands separator only when followed by exactly three
// digits at a word boundary; otherwise it is a decimal comma.
func NormalizeAmount(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u2212", "-")

	hasComma := strings.Contains(s, ",")
	if hasComma && strings.Contains(s, ".") {
		if strings.LastIndex(s, ",") < strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		}
	} else if hasComma && thousandsComma.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}

	return nonNumeric.ReplaceAllString(s, "")
}

// ParseAmount normalizes and parses a numeric literal.
// Returns false when the literal cannot be converted.
func ParseAmount(s string) (decimal.Decimal, bool) {
	n := NormalizeAmount(s)
	if n == "" {
		return Zero, false
	}
	d, err := decimal.NewFromString(n)
	if err != nil {
		return Zero, false
	}
	return d, true
}

// AbsBelow reports whether |d| is strictly below threshold
func AbsBelow(d, threshold decimal.Decimal) bool {
	return d.Abs().LessThan(threshold)
}

// LargestAbs returns the index of the first value with the largest
// magnitude, or -1 for an empty slice.
func LargestAbs(values []decimal.Decimal) int {
	best := -1
	for i, v := range values {
		if best == -1 || v.Abs().GreaterThan(values[best].Abs()) {
			best = i
		}
	}
	return best
}

// Key returns a canonical string form, equal for numerically equal values
func Key(d decimal.Decimal) string {
	return d.String()
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

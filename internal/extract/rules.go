package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rezonia/docintel/internal/model"
)

// Currency codes accepted before or after a numeric literal
const currencyCodes = `USD|EUR|INR|GBP|AUD|CAD|JPY`

// AmountLabelRule assigns Label when every keyword occurs in the lowercased line
type AmountLabelRule struct {
	Label    model.AmountLabel
	Keywords []string
}

// Match reports whether all keywords occur in lower
func (r AmountLabelRule) Match(lower string) bool {
	for _, k := range r.Keywords {
		if !strings.Contains(lower, k) {
			return false
		}
	}
	return len(r.Keywords) > 0
}

// DateLabelRule assigns Label when any keyword occurs in the lowercased window
type DateLabelRule struct {
	Label    model.DateLabel
	Keywords []string
}

// Match reports whether any keyword occurs in lower
func (r DateLabelRule) Match(lower string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Rules holds the pattern tables, keyword lists and thresholds used by the
// engine. A Rules value is shared by concurrent extractions and must not be
// modified once passed to NewEngine.
type Rules struct {
	// Amount matches one money token. Named groups: sign, lcode, sym, amt, code.
	Amount *regexp.Regexp
	// Masks mark spans that never yield amount tokens (dates, periods,
	// percentages, identifiers, phone numbers). Only consulted with Guards.
	Masks []*regexp.Regexp
	// Phone is the phone-number shape used by the second noise pass
	Phone *regexp.Regexp
	// TwoDecimal matches a ",dd" or ".dd" suffix
	TwoDecimal *regexp.Regexp

	CurrencySymbols map[string]string

	// AmountLabels is evaluated in order; first match wins
	AmountLabels []AmountLabelRule

	// MinMagnitude drops unlabelled, currency-less amounts below it
	MinMagnitude decimal.Decimal
	// MaxBareDigits is the digit count above which a currency-less amount
	// without a two-decimal suffix is noise
	MaxBareDigits int
	// MaxDigits is the digit count above which any currency-less amount is noise
	MaxDigits int

	Date *regexp.Regexp
	// ISODate matches Y-M-D ordering
	ISODate *regexp.Regexp
	// DateLabels is evaluated in order; first match wins
	DateLabels []DateLabelRule
	// DateWindow is the number of characters inspected on each side of a date
	DateWindow int

	// VendorLines is the number of leading lines searched for a vendor
	VendorLines int
	VendorSuffix *regexp.Regexp
	// VendorStrip patterns are removed from a suffix-matched vendor line
	VendorStrip []*regexp.Regexp
	// VendorMaxLen bounds the capitalised-words fallback
	VendorMaxLen int

	InvoiceAnchor   *regexp.Regexp
	InvoiceFallback *regexp.Regexp

	// Guards enables the token guards: Masks, skipping currency-less
	// numbers glued to letters, and dropping bare integers on a line that
	// also holds a priced amount.
	Guards         bool
	// LineFirstDates labels a date from its own line before falling back
	// to the DateWindow.
	LineFirstDates bool
}

// DefaultRules returns the built-in rule set
func DefaultRules() Rules {
	datePattern := `\b(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}[/-]\d{1,2}[/-]\d{1,2}|[A-Za-z]{3,9}\s+\d{1,2},\s*\d{4})\b`

	return Rules{
		Amount: regexp.MustCompile(`(?i)(?P<sign>[-−])?` +
			`(?:\b(?P<lcode>` + currencyCodes + `)\s*)?` +
			`(?:(?P<sym>[$€£₹¥])\s*)?` +
			`(?P<amt>\d{1,3}(?:[,.]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d+)?)` +
			`(?:\s*(?P<code>` + currencyCodes + `)\b)?`),
		Masks: []*regexp.Regexp{
			regexp.MustCompile(datePattern),
			regexp.MustCompile(`(?i)\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(?:\d{1,2}\s+)?\d{4}\b`),
			regexp.MustCompile(`\d+(?:[.,]\d+)?\s*%`),
			regexp.MustCompile(`\b[A-Za-z]+[-_/#]\d[\w\-/]*`),
			regexp.MustCompile(`\+\d[\d\s\-()]{6,}\d`),
			regexp.MustCompile(`(?:\(\d{3}\)\s*|\b\d{3}[.\-])\d{3}[.\-]\d{4}\b`),
			regexp.MustCompile(`(?i)\b(?:phone|tel|mobile|fax|ph)\b\.?[:\s]*\+?\d[\d\s\-().]{5,}\d`),
		},
		Phone:      regexp.MustCompile(`\+?\d[\d\s\-()]{6,}\d`),
		TwoDecimal: regexp.MustCompile(`[,.]\d{2}\b`),
		CurrencySymbols: map[string]string{
			"$": "USD",
			"€": "EUR",
			"£": "GBP",
			"₹": "INR",
			"¥": "JPY",
		},
		AmountLabels: []AmountLabelRule{
			{Label: model.LabelSubtotal, Keywords: []string{"subtotal"}},
			{Label: model.LabelTax, Keywords: []string{"tax"}},
			{Label: model.LabelTotalDue, Keywords: []string{"total", "due"}},
		},
		MinMagnitude:  decimal.NewFromInt(3),
		MaxBareDigits: 10,
		MaxDigits:     12,

		Date:    regexp.MustCompile(datePattern),
		ISODate: regexp.MustCompile(`^\d{4}[/-]\d{1,2}[/-]\d{1,2}$`),
		DateLabels: []DateLabelRule{
			{Label: model.DateIssue, Keywords: []string{"issue", "issued"}},
			{Label: model.DateDue, Keywords: []string{"due"}},
			{Label: model.DateDelivery, Keywords: []string{"delivery", "deliv"}},
		},
		DateWindow: 40,

		VendorLines:  8,
		VendorSuffix: regexp.MustCompile(`(?i)\b(?:ltd|inc|corp|corporation|llc|llp|solutions|global)\b|\bco\.`),
		VendorStrip: []*regexp.Regexp{
			regexp.MustCompile(`\s*\|.*$`),
			regexp.MustCompile(`(?i)\b(?:phone|tel|ph)\.?[:\s]*\+?\d[\d\-\s()]*`),
			regexp.MustCompile(`\+?\d[\d\s\-()]{6,}\d`),
		},
		VendorMaxLen: 60,

		InvoiceAnchor:   regexp.MustCompile(`(?i)\b(?:invoice|inv)\b(?:[ \t]*(?:#|no\b\.?|number\b|num\b\.?))?[ \t]*[:#.]?[ \t]*([A-Z0-9][A-Z0-9\-_/]*)`),
		InvoiceFallback: regexp.MustCompile(`(?i)\b(INV[-\d/]+)`),
	}
}

// GuardedRules returns DefaultRules with the token guards and line-first
// date labelling switched on, and "invoice date" and "bill date" accepted as
// issue labels. It trades recall on unusual layouts for fewer noise amounts.
func GuardedRules() Rules {
	r := DefaultRules()
	r.Guards = true
	r.LineFirstDates = true

	labels := make([]DateLabelRule, len(r.DateLabels))
	copy(labels, r.DateLabels)
	labels[0] = DateLabelRule{
		Label:    model.DateIssue,
		Keywords: []string{"issue", "issued", "invoice date", "bill date"},
	}
	r.DateLabels = labels
	return r
}

// LabelAmount returns the label of the first rule matching line
func (r Rules) LabelAmount(line string) model.AmountLabel {
	lower := strings.ToLower(line)
	for _, rule := range r.AmountLabels {
		if rule.Match(lower) {
			return rule.Label
		}
	}
	return model.LabelNone
}

// LabelDate returns the label of the first rule matching window, or
// DateOther when none does.
func (r Rules) LabelDate(window string) model.DateLabel {
	lower := strings.ToLower(window)
	for _, rule := range r.DateLabels {
		if rule.Match(lower) {
			return rule.Label
		}
	}
	return model.DateOther
}

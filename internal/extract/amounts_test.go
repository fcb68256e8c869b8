package extract_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/docintel/internal/extract"
	"github.com/rezonia/docintel/internal/model"
)

func scan(text string) []model.AmountCandidate {
	return extract.NewEngine().ScanAmounts(extract.SplitLines(text))
}

func TestScanAmounts_Normalization(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
		currency string
	}{
		{"comma thousands", "Consulting fee $1,234.56", "1234.56", "USD"},
		{"dot thousands", "Beratung 1.234,56 EUR", "1234.56", "EUR"},
		{"thousands comma only", "Hardware £2,500", "2500", "GBP"},
		{"decimal comma", "Fee 3,5 EUR", "3.5", "EUR"},
		{"leading code", "Licence INR12,340.00", "12340", "INR"},
		{"rupee symbol", "Licence ₹12,340.00", "12340", "INR"},
		{"yen symbol", "Service ¥5000", "5000", "JPY"},
		{"euro symbol", "Service €75.20", "75.2", "EUR"},
		{"lowercase code", "Service 450.00 usd", "450", "USD"},
		{"negative", "Credit note -$150.00", "-150", "USD"},
		{"unicode minus", "Credit note −150.00 CAD", "-150", "CAD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scan(tt.line)
			require.Len(t, got, 1, "line=%q", tt.line)
			assert.True(t, got[0].Value.Equal(decimal.RequireFromString(tt.expected)),
				"got %s, want %s", got[0].Value.String(), tt.expected)
			require.NotNil(t, got[0].Currency)
			assert.Equal(t, tt.currency, *got[0].Currency)
		})
	}
}

func TestScanAmounts_CurrencyPriority(t *testing.T) {
	// A trailing code beats the symbol
	got := scan("Charge $100.00 CAD")
	require.Len(t, got, 1)
	assert.Equal(t, "CAD", *got[0].Currency)
	assert.Equal(t, "$100.00 CAD", got[0].Raw)

	// The symbol beats a leading code
	got = scan("Charge EUR £100.00")
	require.Len(t, got, 1)
	assert.Equal(t, "GBP", *got[0].Currency)
}

func guardedScan(text string) []model.AmountCandidate {
	e := extract.NewEngine(extract.WithRules(extract.GuardedRules()))
	return e.ScanAmounts(extract.SplitLines(text))
}

func values(candidates []model.AmountCandidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Value.String()
	}
	return out
}

func TestScanAmounts_NoiseFiltering(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"bare 10-digit phone", "Call us: 5551234567"},
		{"account number", "Account 123456789012345"},
		{"long reference", "Ref 12345678901"},
		{"thirteen digits with cents", "IBAN 1234567890123.45"},
		{"small bare number", "Page 2"},
		{"small negative", "Adjustment -2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, scan(tt.text), "text=%q", tt.text)
		})
	}
}

func TestScanAmounts_BareNumbersKept(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"quantity beside price", "Widget 10 $2.50", []string{"10", "2.5"}},
		{"percentage", "Discount 15% applied", []string{"15"}},
		{"date", "Issued 03/09/2025", []string{"3", "9", "2025"}},
		{"identifier", "Invoice #: INV-2025-0098", []string{"-2025", "-98"}},
		{"glued to letters", "Model X200 ships", []string{"200"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, values(scan(tt.text)))
		})
	}
}

func TestExtract_BareNumberTotals(t *testing.T) {
	res := extract.Extract("Widget 10 $2.50")
	require.Len(t, res.Amounts, 2)
	assertDecimal(t, "10", res.Totals.TotalDue)

	res = extract.Extract("Discount 15% applied")
	require.Len(t, res.Amounts, 1)
	assertDecimal(t, "15", res.Totals.TotalDue)
}

func TestScanAmounts_GuardedNoiseFiltering(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"bare 10-digit phone", "Call us: 5551234567"},
		{"formatted phone", "Support line 555-123-4567"},
		{"international phone", "Tel +44 20 7946 0958"},
		{"phone label with spaces", "Phone: 555 123 4567"},
		{"account number", "Account 123456789012345"},
		{"date", "Issued 03/09/2025"},
		{"iso date", "Shipped 2025-10-03"},
		{"period", "Service period March 2025"},
		{"percentage", "Discount 15%"},
		{"identifier", "PO-12 attached"},
		{"invoice id", "Invoice #: INV-2025-0098"},
		{"small bare number", "Page 2"},
		{"glued to letters", "Model X200 ships in 4pcs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, guardedScan(tt.text), "text=%q", tt.text)
		})
	}
}

func TestScanAmounts_SmallAmountWithCurrency(t *testing.T) {
	got := scan("Bank fee $1.50")
	require.Len(t, got, 1)
	assert.True(t, got[0].Value.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, got[0].HasCurrency())
}

func TestScanAmounts_SmallLabelledAmount(t *testing.T) {
	got := scan("Tax: 2")
	require.Len(t, got, 1)
	assert.Equal(t, model.LabelTax, got[0].Label)
	assert.False(t, got[0].HasCurrency())
}

func TestScanAmounts_GuardedQuantityDemoted(t *testing.T) {
	got := guardedScan("Widget 12 $48.00")
	require.Len(t, got, 1)
	assert.True(t, got[0].Value.Equal(decimal.NewFromInt(48)))

	// Without a price on the line the integer stays
	got = guardedScan("Widgets ordered 12")
	require.Len(t, got, 1)
	assert.True(t, got[0].Value.Equal(decimal.NewFromInt(12)))
}

func TestScanAmounts_Labels(t *testing.T) {
	tests := []struct {
		line     string
		expected model.AmountLabel
	}{
		{"Subtotal: $100.00", model.LabelSubtotal},
		{"SUBTOTAL $100.00", model.LabelSubtotal},
		{"Sales tax $8.00", model.LabelTax},
		{"Total Due: $108.00", model.LabelTotalDue},
		{"Amount due in total $108.00", model.LabelTotalDue},
		{"Total $108.00", model.LabelNone},
		{"Due now $108.00", model.LabelNone},
		{"Widget $50.00", model.LabelNone},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := scan(tt.line)
			require.Len(t, got, 1)
			assert.Equal(t, tt.expected, got[0].Label)
		})
	}
}

func TestScanAmounts_Order(t *testing.T) {
	got := scan(`Widget $10.00
Gadget $20.00
Subtotal: $30.00
Tax: $3.00
Total Due: $33.00`)

	require.Len(t, got, 5)
	assert.Equal(t, model.LabelTotalDue, got[0].Label)
	assert.Equal(t, model.LabelTax, got[1].Label)
	assert.Equal(t, model.LabelSubtotal, got[2].Label)
	assert.Equal(t, "$10.00", got[3].Raw)
	assert.Equal(t, "$20.00", got[4].Raw)
}

func TestScanAmounts_Context(t *testing.T) {
	got := scan(`Consulting services
$500.00
Travel $120.00`)

	require.Len(t, got, 2)
	assert.Equal(t, "Consulting services | $500.00", got[0].Context)
	assert.Equal(t, "$500.00", got[0].Line)
	assert.Equal(t, 1, got[0].LineIndex)

	// The previous line holds an amount, so context is the own line
	assert.Equal(t, "Travel $120.00", got[1].Context)
	assert.Equal(t, 7, got[1].Start)
}

func TestScanAmounts_Dedup(t *testing.T) {
	got := scan(`Consulting $500.00
Consulting $500.00
Consulting $500.00`)

	require.Len(t, got, 1)
}

func TestScanAmounts_Empty(t *testing.T) {
	assert.Empty(t, scan(""))
	assert.Empty(t, scan("no numbers here"))
}

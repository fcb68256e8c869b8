package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	moneyutil "github.com/rezonia/docintel/internal/decimal"
)

// AmountLabel tags an amount with its role on the document
type AmountLabel string

const (
	LabelNone     AmountLabel = ""
	LabelSubtotal AmountLabel = "subtotal"
	LabelTax      AmountLabel = "tax"
	LabelTotalDue AmountLabel = "total_due"
)

// DateLabel tags a date with its role on the document
type DateLabel string

const (
	DateIssue    DateLabel = "issue"
	DateDue      DateLabel = "due"
	DateDelivery DateLabel = "delivery"
	DateOther    DateLabel = "other"
)

// Line is a trimmed, non-blank line of the source text
type Line struct {
	Index int
	Text  string
}

// AmountCandidate is a token provisionally identified as money
type AmountCandidate struct {
	Value     decimal.Decimal
	Currency  *string
	Raw       string
	Context   string
	Line      string
	LineIndex int
	Start     int // byte offset of Raw within Line
	Label     AmountLabel
}

// HasCurrency reports whether the candidate carries an explicit currency marker
func (c AmountCandidate) HasCurrency() bool {
	return c.Currency != nil
}

// Key returns the deduplication key: value, currency, raw text and the
// first 60 runes of context.
func (c AmountCandidate) Key() string {
	cur := ""
	if c.Currency != nil {
		cur = *c.Currency
	}
	ctx := []rune(c.Context)
	if len(ctx) > 60 {
		ctx = ctx[:60]
	}
	return strings.Join([]string{moneyutil.Key(c.Value), cur, c.Raw, string(ctx)}, "\x00")
}

// DateCandidate is a date-like span found in the text
type DateCandidate struct {
	Raw      string
	Resolved *time.Time
	Label    DateLabel
}

// Dates holds the labelled dates of a document
type Dates struct {
	Issue    *time.Time
	Due      *time.Time
	Delivery *time.Time
	Other    []*time.Time
}

// LineItem is an amount linked to its descriptive text
type LineItem struct {
	Description *string
	Quantity    *string
	Amount      decimal.Decimal
	Currency    *string
	Label       *string
}

// Key returns the deduplication key: amount and lowercased description
func (i LineItem) Key() string {
	desc := ""
	if i.Description != nil {
		desc = strings.ToLower(*i.Description)
	}
	return moneyutil.Key(i.Amount) + "\x00" + desc
}

// Totals holds the reconciled document totals
type Totals struct {
	Subtotal *decimal.Decimal
	Tax      *decimal.Decimal
	TotalDue *decimal.Decimal
}

// ExtractionResult is the structured record derived from one document
type ExtractionResult struct {
	Vendor        *string
	InvoiceNumber *string
	Dates         Dates
	Amounts       []LineItem
	Totals        Totals
}

// NewExtractionResult returns an empty, structurally complete result
func NewExtractionResult() *ExtractionResult {
	return &ExtractionResult{
		Dates:   Dates{Other: []*time.Time{}},
		Amounts: []LineItem{},
	}
}

// IsEmpty reports whether no field was extracted
func (r *ExtractionResult) IsEmpty() bool {
	return r.Vendor == nil &&
		r.InvoiceNumber == nil &&
		r.Dates.Issue == nil &&
		r.Dates.Due == nil &&
		r.Dates.Delivery == nil &&
		len(r.Dates.Other) == 0 &&
		len(r.Amounts) == 0 &&
		r.Totals.Subtotal == nil &&
		r.Totals.Tax == nil &&
		r.Totals.TotalDue == nil
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

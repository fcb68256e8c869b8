// Package docintel provides a public API for extracting invoice fields from
// documents.
//
// Example usage:
//
//	proc := docintel.NewDefaultProcessor()
//	res, err := proc.Process(ctx, "invoice.pdf", reader)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(*res.Fields.Totals.TotalDue)
//
// Plain text can be handed to Extract directly:
//
//	fields := docintel.Extract(ocrText)
package docintel

import (
	"context"

	"github.com/rezonia/docintel/internal/extract"
	"github.com/rezonia/docintel/internal/model"
)

// Re-export core types for public API
type (
	Fields      = model.ExtractionResult
	Dates       = model.Dates
	LineItem    = model.LineItem
	Totals      = model.Totals
	Record      = model.Record
	AmountLabel = model.AmountLabel
	DateLabel   = model.DateLabel
)

// Re-export amount labels
const (
	LabelNone     = model.LabelNone
	LabelSubtotal = model.LabelSubtotal
	LabelTax      = model.LabelTax
	LabelTotalDue = model.LabelTotalDue
)

// Re-export date labels
const (
	DateIssue    = model.DateIssue
	DateDue      = model.DateDue
	DateDelivery = model.DateDelivery
	DateOther    = model.DateOther
)

// Re-export error types
type (
	ProviderError   = model.ProviderError
	ValidationError = model.ValidationError
	ExtractionError = model.ExtractionError
)

// TextProvider turns document bytes into text
type TextProvider interface {
	Name() string
	Supports(mimeType string) bool
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Summarizer writes a short summary of document text
type Summarizer interface {
	Summarize(ctx context.Context, text string, sentences int) (string, error)
}

// Extract runs the field extraction engine with the built-in rules on text
func Extract(text string) *Fields {
	return extract.Extract(text)
}

// ParseFields validates a JSON field document against the result schema and
// decodes it
func ParseFields(data []byte) (*Fields, error) {
	return model.ParseCorrection(data)
}

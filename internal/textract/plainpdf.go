package textract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PlainPDF reads the text layer of a PDF with github.com/ledongthuc/pdf,
// which decodes font-encoded glyphs the content stream reader cannot.
type PlainPDF struct{}

// NewPlainPDF creates the ledongthuc/pdf provider
func NewPlainPDF() *PlainPDF {
	return &PlainPDF{}
}

// Name implements Provider
func (*PlainPDF) Name() string { return "ledongthuc-pdf" }

// Supports implements Provider
func (*PlainPDF) Supports(mimeType string) bool { return mimeType == MimePDF }

// ExtractText implements Provider
func (*PlainPDF) ExtractText(_ context.Context, data []byte, _ string) (text string, err error) {
	// the reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read PDF text: %w", err)
	}

	text = strings.ToValidUTF8(buf.String(), "�")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("ledongthuc-pdf: %w", ErrNoText)
	}
	return text, nil
}

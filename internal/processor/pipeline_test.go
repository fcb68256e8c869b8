package processor_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/docintel/internal/model"
	"github.com/rezonia/docintel/internal/processor"
	"github.com/rezonia/docintel/internal/textract"
)

const sampleInvoice = "Acme Widgets Ltd. | Phone: +1 555 123 4567\r\n" +
	"Invoice #: INV-2025-0098\r\n" +
	"Invoice Date: 15/09/2025\r\n" +
	"Due Date: 2025-10-03\r\n" +
	"Bill To: Globex Corporation\r\n" +
	"\r\n" +
	"Description Qty Amount\r\n" +
	"Professional consulting (Nov 2025) 10 $2,000.00\r\n" +
	"Software license 5 $1,250.00\r\n" +
	"Subtotal: $3,250.00\r\n" +
	"Tax (18%): $585.00\r\n" +
	"Total Due: $3,835.00\r\n"

// stubProvider returns fixed text for any supported type
type stubProvider struct {
	text  string
	err   error
	calls atomic.Int32

	mu    sync.Mutex
	mimes []string
}

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) Supports(string) bool { return true }
func (s *stubProvider) ExtractText(_ context.Context, _ []byte, mimeType string) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.mimes = append(s.mimes, mimeType)
	s.mu.Unlock()
	return s.text, s.err
}

type stubSummarizer struct {
	out string
	err error
}

func (s stubSummarizer) Summarize(context.Context, string, int) (string, error) {
	return s.out, s.err
}

func TestNewPipeline(t *testing.T) {
	p := processor.NewPipeline()
	require.NotNil(t, p)
}

func TestNewPipeline_WithOptions(t *testing.T) {
	p := processor.NewPipeline(
		processor.WithTextProvider(nil),
		processor.WithEngine(nil),
		processor.WithSummarizer(nil),
		processor.WithSummarySentences(2),
	)
	require.NotNil(t, p)
}

func TestProcessDocument(t *testing.T) {
	provider := &stubProvider{text: sampleInvoice}
	p := processor.NewPipeline(processor.WithTextProvider(provider))

	result := p.ProcessDocument(context.Background(), "invoice.pdf", []byte("%PDF-1.7 ..."))
	require.Nil(t, result.Error)

	assert.Equal(t, "invoice.pdf", result.Filename)
	assert.Equal(t, processor.FormatPDF, result.Format)
	assert.Equal(t, []string{textract.MimePDF}, provider.mimes)
	assert.Equal(t, sampleInvoice, result.Text)
	assert.NotContains(t, result.CleanText, "\r")

	require.NotNil(t, result.Fields)
	require.NotNil(t, result.Fields.InvoiceNumber)
	assert.Equal(t, "INV-2025-0098", *result.Fields.InvoiceNumber)
	require.NotNil(t, result.Fields.Totals.TotalDue)
	assert.Equal(t, "3835", result.Fields.Totals.TotalDue.String())
	require.NotEmpty(t, result.Fields.Amounts)
	assert.Equal(t, "total_due", *result.Fields.Amounts[0].Label)
	require.NotNil(t, result.Fields.Dates.Due)
	assert.Equal(t, "2025-09-15", result.Fields.Dates.Due.Format(model.DateLayout))

	assert.NotEmpty(t, result.Summary)
	assert.Empty(t, result.Warnings)
}

func TestProcessDocument_ProviderFailure(t *testing.T) {
	cause := errors.New("tesseract missing")
	p := processor.NewPipeline(processor.WithTextProvider(&stubProvider{err: cause}))

	result := p.ProcessDocument(context.Background(), "scan.png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A})
	require.Error(t, result.Error)
	assert.Nil(t, result.Fields)
	assert.Empty(t, result.Text)

	var extErr *model.ExtractionError
	require.ErrorAs(t, result.Error, &extErr)
	assert.Equal(t, "ocr", extErr.Method)
	assert.ErrorIs(t, result.Error, cause)
}

func TestProcessDocument_Unsupported(t *testing.T) {
	provider := &stubProvider{text: "x"}
	p := processor.NewPipeline(processor.WithTextProvider(provider))

	result := p.ProcessDocument(context.Background(), "blob.bin", []byte{0x00, 0x01, 0x02, 0x03})
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "unsupported document type")
	assert.Equal(t, int32(0), provider.calls.Load())
}

func TestProcessDocument_NoProviderForType(t *testing.T) {
	chain := textract.NewChain([]textract.Provider{textract.NewPlainText()})
	p := processor.NewPipeline(processor.WithTextProvider(chain))

	result := p.ProcessDocument(context.Background(), "invoice.pdf", []byte("%PDF-1.7 ..."))
	require.Error(t, result.Error)

	var extErr *model.ExtractionError
	require.ErrorAs(t, result.Error, &extErr)
	assert.Equal(t, "detect", extErr.Method)

	var perr *model.ProviderError
	require.ErrorAs(t, result.Error, &perr)
	assert.True(t, perr.Unsupported())
}

func TestProcessDocument_DefaultChainText(t *testing.T) {
	p := processor.NewPipeline()

	result := p.ProcessDocument(context.Background(), "invoice.txt", []byte(sampleInvoice))
	require.Nil(t, result.Error)
	require.NotNil(t, result.Fields.Vendor)
	assert.Contains(t, *result.Fields.Vendor, "Acme Widgets Ltd.")
}

func TestProcessDocument_XMLInvoice(t *testing.T) {
	p := processor.NewPipeline()
	data := []byte(`<?xml version="1.0"?>
<Invoice>
	<InvoiceNo>INV-77</InvoiceNo>
	<DueDate>2025-10-03</DueDate>
	<TotalDue>USD 120.00</TotalDue>
</Invoice>`)

	result := p.ProcessDocument(context.Background(), "einvoice", data)
	require.Nil(t, result.Error)
	assert.Equal(t, "Invoice No: INV-77\nDue Date: 2025-10-03\nTotal Due: USD 120.00", result.CleanText)
	require.NotNil(t, result.Fields.InvoiceNumber)
	assert.Equal(t, "INV-77", *result.Fields.InvoiceNumber)
	require.NotNil(t, result.Fields.Totals.TotalDue)
	assert.Equal(t, "120", result.Fields.Totals.TotalDue.String())
}

func TestProcessDocument_SummaryFailure(t *testing.T) {
	p := processor.NewPipeline(
		processor.WithTextProvider(&stubProvider{text: sampleInvoice}),
		processor.WithSummarizer(stubSummarizer{err: errors.New("quota exceeded")}),
	)

	result := p.ProcessDocument(context.Background(), "invoice.pdf", []byte("%PDF"))
	require.Nil(t, result.Error)
	assert.NotNil(t, result.Fields)
	assert.Empty(t, result.Summary)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "quota exceeded")
}

func TestExtractText(t *testing.T) {
	p := processor.NewPipeline(processor.WithTextProvider(&stubProvider{text: "a\r\nb"}))

	result := p.ExtractText(context.Background(), "scan.jpg", []byte{0xFF, 0xD8, 0xFF, 0xE0})
	require.Nil(t, result.Error)
	assert.Equal(t, "a\r\nb", result.Text)
	assert.Equal(t, "a\nb", result.CleanText)
	assert.Nil(t, result.Fields)
}

func TestProcessText_Warnings(t *testing.T) {
	text := "subtotal: $100.00\ntax: $10.00\ntotal due: $120.00\n" +
		"issue date: 2025-03-10\nsomething unrelated here\nand more filler text\ndue date: 2025-03-01"
	p := processor.NewPipeline(processor.WithSummarizer(stubSummarizer{out: "s"}))

	result := p.ProcessText(context.Background(), "notes.txt", text)
	require.Nil(t, result.Error)
	assert.Equal(t, "s", result.Summary)
	assert.Contains(t, result.Warnings, "vendor not found")
	assert.Contains(t, result.Warnings, "invoice number not found")
	assert.Contains(t, result.Warnings, "subtotal + tax (110.00) does not match total due (120.00)")
	assert.Contains(t, result.Warnings, "due date is before issue date")
	assert.NotContains(t, result.Warnings, "no amounts found")
}

func TestProcessText_Empty(t *testing.T) {
	p := processor.NewPipeline(processor.WithSummarizer(nil))

	result := p.ProcessText(context.Background(), "empty.txt", "")
	require.Nil(t, result.Error)
	require.NotNil(t, result.Fields)
	assert.True(t, result.Fields.IsEmpty())
	assert.Contains(t, result.Warnings, "no amounts found")
	assert.Empty(t, result.Summary)
}

func TestProcessBatch(t *testing.T) {
	provider := &stubProvider{text: sampleInvoice}
	p := processor.NewPipeline(processor.WithTextProvider(provider), processor.WithSummarizer(nil))

	docs := make([]processor.Document, 6)
	for i := range docs {
		docs[i] = processor.Document{Filename: fmt.Sprintf("doc-%d.txt", i), Data: []byte("Total Due: $1.00")}
	}
	docs[3] = processor.Document{Filename: "doc-3.bin", Data: []byte{0x00, 0x00}}

	results, err := p.ProcessBatch(context.Background(), docs, 2)
	require.NoError(t, err)
	require.Len(t, results, len(docs))

	for i, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, docs[i].Filename, r.Filename)
		if i == 3 {
			assert.Error(t, r.Error)
			continue
		}
		assert.NoError(t, r.Error)
	}
}

func TestProcessBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := processor.NewPipeline(processor.WithTextProvider(&stubProvider{text: "x"}))
	_, err := p.ProcessBatch(ctx, []processor.Document{{Filename: "a.txt", Data: []byte("a")}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResult_Record(t *testing.T) {
	p := processor.NewPipeline(processor.WithSummarizer(stubSummarizer{out: "summary"}))
	rec := p.ProcessText(context.Background(), "a.txt", "Total Due: $5.00").Record()

	assert.Equal(t, "a.txt", rec.Filename)
	require.NotNil(t, rec.Summary)
	assert.Equal(t, "summary", *rec.Summary)
	assert.Nil(t, rec.Error)
	assert.True(t, rec.HasFields())

	failed := &processor.Result{Filename: "b.pdf", Error: errors.New("boom")}
	rec = failed.Record()
	assert.Nil(t, rec.Summary)
	require.NotNil(t, rec.Error)
	assert.Equal(t, "boom", *rec.Error)
	assert.False(t, rec.HasFields())
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected processor.Format
	}{
		{
			name:     "PDF",
			data:     []byte("%PDF-1.4\n%some content"),
			expected: processor.FormatPDF,
		},
		{
			name:     "PNG image",
			data:     []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
			expected: processor.FormatImage,
		},
		{
			name:     "JPEG image",
			data:     []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46},
			expected: processor.FormatImage,
		},
		{
			name:     "TIFF little-endian",
			data:     []byte{0x49, 0x49, 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00},
			expected: processor.FormatImage,
		},
		{
			name:     "TIFF big-endian",
			data:     []byte{0x4D, 0x4D, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08},
			expected: processor.FormatImage,
		},
		{
			name:     "Plain text",
			data:     []byte("Invoice #: 42\r\nTotal: $5.00\n"),
			expected: processor.FormatText,
		},
		{
			name:     "Binary",
			data:     []byte{0x00, 0x01, 0x02, 0x03, 0x04},
			expected: processor.FormatUnknown,
		},
		{
			name:     "Invalid UTF-8",
			data:     []byte{'a', 0xFF, 0xFE, 'b'},
			expected: processor.FormatUnknown,
		},
		{
			name:     "Empty data",
			data:     []byte{},
			expected: processor.FormatUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format := processor.DetectFormat(tt.data)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		expected string
	}{
		{"pdf content", "upload", []byte("%PDF-1.4"), textract.MimePDF},
		{"png content", "scan.pdf", []byte{0x89, 0x50, 0x4E, 0x47}, textract.MimePNG},
		{"text content", "notes.txt", []byte("hello"), textract.MimeText},
		{"text named pdf", "fake.pdf", []byte("hello"), textract.MimeText},
		{"xml content", "upload", []byte("\ufeff<?xml version=\"1.0\"?><Invoice/>"), textract.MimeXML},
		{"xml by extension", "einvoice.xml", []byte("<Invoice/>"), textract.MimeXML},
		{"unknown content by extension", "scan.tiff", []byte{0x00, 0x01}, textract.MimeTIFF},
		{"unknown", "blob.bin", []byte{0x00, 0x01}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, processor.DetectMimeType(tt.filename, tt.data))
		})
	}
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		format   processor.Format
		expected string
	}{
		{processor.FormatPDF, "pdf"},
		{processor.FormatImage, "image"},
		{processor.FormatText, "text"},
		{processor.FormatUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.format.String())
		})
	}
}

func TestCheckFields(t *testing.T) {
	dec := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}
	day := func(d int) *time.Time {
		v := time.Date(2025, time.September, d, 0, 0, 0, 0, time.UTC)
		return &v
	}
	complete := func() *model.ExtractionResult {
		r := model.NewExtractionResult()
		r.Vendor = model.StringPtr("Acme Ltd")
		r.InvoiceNumber = model.StringPtr("INV-1")
		r.Amounts = []model.LineItem{{Amount: decimal.NewFromInt(110)}}
		r.Totals = model.Totals{Subtotal: dec("100"), Tax: dec("10"), TotalDue: dec("110")}
		r.Dates.Issue = day(1)
		r.Dates.Due = day(30)
		return r
	}

	tests := []struct {
		name   string
		modify func(r *model.ExtractionResult) *model.ExtractionResult
		want   []string
	}{
		{
			name:   "complete",
			modify: func(r *model.ExtractionResult) *model.ExtractionResult { return r },
		},
		{
			name:   "nil fields",
			modify: func(*model.ExtractionResult) *model.ExtractionResult { return nil },
			want:   []string{"no fields extracted"},
		},
		{
			name: "missing identity",
			modify: func(r *model.ExtractionResult) *model.ExtractionResult {
				r.Vendor, r.InvoiceNumber, r.Amounts = nil, nil, nil
				return r
			},
			want: []string{"vendor not found", "invoice number not found", "no amounts found"},
		},
		{
			name: "totals mismatch",
			modify: func(r *model.ExtractionResult) *model.ExtractionResult {
				r.Totals.TotalDue = dec("120.5")
				return r
			},
			want: []string{"subtotal + tax (110.00) does not match total due (120.50)"},
		},
		{
			name: "totals agree to the cent",
			modify: func(r *model.ExtractionResult) *model.ExtractionResult {
				r.Totals.Subtotal = dec("100.004")
				r.Totals.Tax = dec("10")
				r.Totals.TotalDue = dec("110.001")
				return r
			},
		},
		{
			name: "totals differ by a cent",
			modify: func(r *model.ExtractionResult) *model.ExtractionResult {
				r.Totals.TotalDue = dec("110.01")
				return r
			},
			want: []string{"subtotal + tax (110.00) does not match total due (110.01)"},
		},
		{
			name: "partial totals are not compared",
			modify: func(r *model.ExtractionResult) *model.ExtractionResult {
				r.Totals.Tax = nil
				r.Totals.TotalDue = dec("999")
				return r
			},
		},
		{
			name: "due before issue",
			modify: func(r *model.ExtractionResult) *model.ExtractionResult {
				r.Dates.Issue, r.Dates.Due = day(20), day(5)
				return r
			},
			want: []string{"due date is before issue date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := processor.CheckFields(tt.modify(complete()))
			assert.Equal(t, tt.want, got)
		})
	}
}

// Benchmark tests

func BenchmarkDetectFormat_PDF(b *testing.B) {
	data := []byte("%PDF-1.4\n%some content here")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		processor.DetectFormat(data)
	}
}

func BenchmarkProcessText(b *testing.B) {
	ctx := context.Background()
	p := processor.NewPipeline()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.ProcessText(ctx, "invoice.txt", sampleInvoice)
	}
}

// Package processor runs documents through text extraction, field
// extraction and summarizing.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	moneyutil "github.com/rezonia/docintel/internal/decimal"
	"github.com/rezonia/docintel/internal/extract"
	"github.com/rezonia/docintel/internal/model"
	"github.com/rezonia/docintel/internal/summary"
	"github.com/rezonia/docintel/internal/textract"
)

// DefaultSummarySentences is the summary length for processed documents
const DefaultSummarySentences = 4

// Format is the document kind detected from content
type Format int

const (
	FormatUnknown Format = iota
	FormatPDF
	FormatImage
	FormatText
)

// String returns the format name
func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatImage:
		return "image"
	case FormatText:
		return "text"
	default:
		return "unknown"
	}
}

// DetectFormat classifies data by its magic bytes. Data that is valid UTF-8
// without binary control characters is text.
func DetectFormat(data []byte) Format {
	if len(data) == 0 {
		return FormatUnknown
	}
	if imageMime(data) != "" {
		return FormatImage
	}
	if len(data) >= 4 && string(data[:4]) == "%PDF" {
		return FormatPDF
	}
	if looksLikeText(data) {
		return FormatText
	}
	return FormatUnknown
}

// DetectMimeType returns the MIME type of data, falling back to the
// filename extension when the content is not recognised.
func DetectMimeType(filename string, data []byte) string {
	switch DetectFormat(data) {
	case FormatPDF:
		return textract.MimePDF
	case FormatImage:
		return imageMime(data)
	case FormatText:
		if m := textract.MimeTypeFor(filename); m != "" && m != textract.MimePDF {
			return m
		}
		if looksLikeXML(data) {
			return textract.MimeXML
		}
		return textract.MimeText
	}
	return textract.MimeTypeFor(filename)
}

func imageMime(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	switch {
	case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return textract.MimePNG
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return textract.MimeJPEG
	case data[0] == 0x49 && data[1] == 0x49 && data[2] == 0x2A && data[3] == 0x00,
		data[0] == 0x4D && data[1] == 0x4D && data[2] == 0x00 && data[3] == 0x2A:
		return textract.MimeTIFF
	}
	return ""
}

func looksLikeXML(data []byte) bool {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("<?xml"))
}

func looksLikeText(data []byte) bool {
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
		// do not split a trailing rune
		for i := 0; i < utf8.UTFMax && !utf8.Valid(sample); i++ {
			sample = sample[:len(sample)-1]
		}
	}
	if !utf8.Valid(sample) {
		return false
	}
	for _, b := range sample {
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' && b != '\f' {
			return false
		}
	}
	return true
}

// Result represents the outcome of processing one document
type Result struct {
	Filename  string
	Format    Format
	Text      string
	CleanText string
	Fields    *model.ExtractionResult
	Summary   string
	Warnings  []string
	Error     error
	Duration  time.Duration
}

// Record converts the result to its persisted form
func (r *Result) Record() *model.Record {
	rec := &model.Record{
		Filename:  r.Filename,
		Text:      r.Text,
		CleanText: r.CleanText,
		Fields:    r.Fields,
		Warnings:  r.Warnings,
	}
	if r.Fields != nil {
		rec.Summary = model.StringPtr(r.Summary)
	}
	if r.Error != nil {
		rec.Error = model.StringPtr(r.Error.Error())
	}
	return rec
}

// Document is one input of a batch
type Document struct {
	Filename string
	Data     []byte
}

// Pipeline orchestrates document processing
type Pipeline struct {
	provider   textract.Provider
	engine     *extract.Engine
	summarizer summary.Summarizer
	sentences  int
	log        zerolog.Logger
}

// PipelineOption configures the pipeline
type PipelineOption func(*Pipeline)

// WithTextProvider sets the text extraction provider
func WithTextProvider(p textract.Provider) PipelineOption {
	return func(pl *Pipeline) {
		if p != nil {
			pl.provider = p
		}
	}
}

// WithEngine sets the field extraction engine
func WithEngine(e *extract.Engine) PipelineOption {
	return func(pl *Pipeline) {
		if e != nil {
			pl.engine = e
		}
	}
}

// WithSummarizer sets the summarizer; nil disables summaries
func WithSummarizer(s summary.Summarizer) PipelineOption {
	return func(pl *Pipeline) {
		pl.summarizer = s
	}
}

// WithSummarySentences sets the summary length
func WithSummarySentences(n int) PipelineOption {
	return func(pl *Pipeline) {
		if n > 0 {
			pl.sentences = n
		}
	}
}

// WithLogger sets the pipeline logger
func WithLogger(l zerolog.Logger) PipelineOption {
	return func(pl *Pipeline) {
		pl.log = l
	}
}

// NewPipeline creates a new processing pipeline
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		provider:   textract.DefaultChain(nil),
		engine:     extract.NewEngine(),
		summarizer: summary.Extractive{},
		sentences:  DefaultSummarySentences,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ExtractText returns the raw and carriage-return-free text of a document
// without running field extraction.
func (p *Pipeline) ExtractText(ctx context.Context, filename string, data []byte) *Result {
	start := time.Now()
	result := &Result{Filename: filename, Format: DetectFormat(data)}

	mimeType := DetectMimeType(filename, data)
	if mimeType == "" {
		result.Error = model.NewExtractionError("detect", "unsupported document type", nil)
		return result
	}

	text, err := p.provider.ExtractText(ctx, data, mimeType)
	if err != nil {
		var perr *model.ProviderError
		if errors.As(err, &perr) && perr.Unsupported() {
			result.Error = model.NewExtractionError("detect", "no provider for "+mimeType, err)
			return result
		}
		p.log.Warn().Str("filename", filename).Str("mime", mimeType).Err(err).Msg("text extraction failed")
		result.Error = model.NewExtractionError("ocr", "text extraction failed", err)
		return result
	}

	result.Text = text
	result.CleanText = strings.ReplaceAll(text, "\r", "")
	result.Duration = time.Since(start)
	return result
}

// ProcessDocument extracts text from data and runs field extraction and
// summarizing on it.
func (p *Pipeline) ProcessDocument(ctx context.Context, filename string, data []byte) *Result {
	start := time.Now()

	result := p.ExtractText(ctx, filename, data)
	if result.Error != nil {
		return result
	}

	p.analyse(ctx, result)
	result.Duration = time.Since(start)

	p.log.Info().
		Str("filename", filename).
		Str("format", result.Format.String()).
		Int("amounts", len(result.Fields.Amounts)).
		Int("warnings", len(result.Warnings)).
		Dur("duration", result.Duration).
		Msg("document processed")
	return result
}

// ProcessText runs field extraction and summarizing on already extracted text
func (p *Pipeline) ProcessText(ctx context.Context, filename, text string) *Result {
	start := time.Now()
	result := &Result{
		Filename:  filename,
		Format:    FormatText,
		Text:      text,
		CleanText: strings.ReplaceAll(text, "\r", ""),
	}
	p.analyse(ctx, result)
	result.Duration = time.Since(start)
	return result
}

func (p *Pipeline) analyse(ctx context.Context, result *Result) {
	result.Fields = p.engine.Extract(result.CleanText)
	result.Warnings = append(result.Warnings, CheckFields(result.Fields)...)

	if p.summarizer == nil {
		return
	}
	s, err := p.summarizer.Summarize(ctx, result.CleanText, p.sentences)
	if err != nil {
		p.log.Warn().Str("filename", result.Filename).Err(err).Msg("summary failed")
		result.Warnings = append(result.Warnings, fmt.Sprintf("summary failed: %v", err))
		return
	}
	result.Summary = s
}

// ProcessBatch processes documents with at most limit running at once.
// Results keep the input order; per-document failures are reported in
// Result.Error.
func (p *Pipeline) ProcessBatch(ctx context.Context, docs []Document, limit int) ([]*Result, error) {
	results := make([]*Result, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = p.ProcessDocument(ctx, doc.Filename, doc.Data)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// CheckFields reports fields that look incomplete or inconsistent
func CheckFields(f *model.ExtractionResult) []string {
	if f == nil {
		return []string{"no fields extracted"}
	}
	var warnings []string

	if f.Vendor == nil {
		warnings = append(warnings, "vendor not found")
	}
	if f.InvoiceNumber == nil {
		warnings = append(warnings, "invoice number not found")
	}
	if len(f.Amounts) == 0 {
		warnings = append(warnings, "no amounts found")
	}

	t := f.Totals
	if t.Subtotal != nil && t.Tax != nil && t.TotalDue != nil {
		// compared as rendered, to the cent
		sum := moneyutil.Sum([]decimal.Decimal{*t.Subtotal, *t.Tax}).StringFixed(2)
		if due := t.TotalDue.StringFixed(2); sum != due {
			warnings = append(warnings, fmt.Sprintf("subtotal + tax (%s) does not match total due (%s)", sum, due))
		}
	}
	if f.Dates.Issue != nil && f.Dates.Due != nil && f.Dates.Due.Before(*f.Dates.Issue) {
		warnings = append(warnings, "due date is before issue date")
	}

	return warnings
}

package docintel

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/rezonia/docintel/internal/extract"
	"github.com/rezonia/docintel/internal/llm"
	"github.com/rezonia/docintel/internal/model"
	"github.com/rezonia/docintel/internal/processor"
	"github.com/rezonia/docintel/internal/summary"
	"github.com/rezonia/docintel/internal/textract"
)

// Options configures a Processor
type Options struct {
	// Tesseract settings for scans and images
	TesseractPath string
	OCRLang       string

	// LLM settings; an empty key disables the model-backed summarizer and
	// image transcription
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMVisionModel string

	SummarySentences int
	// Concurrency bounds ProcessBatch; 0 means unbounded
	Concurrency      int
	// Guarded skips dates, percentages, identifiers and quantities when
	// scanning amounts, and labels dates from their own line first
	Guarded          bool

	// TextProvider and Summarizer replace the built-in ones when set
	TextProvider TextProvider
	Summarizer   Summarizer

	Logger zerolog.Logger
}

// DefaultOptions returns options for an offline processor
func DefaultOptions() Options {
	return Options{
		OCRLang:          "eng",
		SummarySentences: processor.DefaultSummarySentences,
		Concurrency:      4,
		Logger:           zerolog.Nop(),
	}
}

// Result is the outcome of processing one document
type Result struct {
	Filename string
	Text     string
	Fields   *Fields
	Summary  string
	Warnings []string
	Duration time.Duration
}

// Input is one document of a batch
type Input struct {
	Filename string
	Reader   io.Reader
}

// Processor runs documents through text extraction, field extraction and
// summarizing
type Processor struct {
	pipeline *processor.Pipeline
	options  Options
}

// NewProcessor creates a processor with the given options
func NewProcessor(opts Options) *Processor {
	log := opts.Logger

	var provider textract.Provider = opts.TextProvider
	var primary summary.Summarizer = opts.Summarizer
	if provider == nil {
		ocr := textract.NewTesseract(
			textract.TesseractConfig{Binary: opts.TesseractPath, Lang: opts.OCRLang},
			textract.WithTesseractLogger(log),
		)
		provider = textract.DefaultChain(ocr, textract.WithLogger(log))
	}

	if opts.LLMAPIKey != "" {
		client := llm.NewClient(opts.LLMAPIKey,
			llm.WithBaseURL(opts.LLMBaseURL),
			llm.WithDefaultModel(opts.LLMModel),
		)
		if opts.TextProvider == nil {
			provider = textract.NewChain(
				[]textract.Provider{provider, llm.NewTranscriber(client, opts.LLMVisionModel)},
				textract.WithLogger(log),
			)
		}
		if opts.Summarizer == nil {
			primary = llm.NewSummarizer(client)
		}
	}

	rules := extract.DefaultRules()
	if opts.Guarded {
		rules = extract.GuardedRules()
	}

	pipeline := processor.NewPipeline(
		processor.WithTextProvider(provider),
		processor.WithEngine(extract.NewEngine(extract.WithRules(rules), extract.WithLogger(log))),
		processor.WithSummarizer(summary.NewFallback(primary, log)),
		processor.WithSummarySentences(opts.SummarySentences),
		processor.WithLogger(log),
	)

	return &Processor{
		pipeline: pipeline,
		options:  opts,
	}
}

// NewDefaultProcessor creates a processor with default options
func NewDefaultProcessor() *Processor {
	return NewProcessor(DefaultOptions())
}

// Process reads a document from r and extracts its fields. filename is used
// to pick a text provider when the content alone is ambiguous.
func (p *Processor) Process(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewExtractionError("read", "failed to read input", err)
	}
	return toResult(p.pipeline.ProcessDocument(ctx, filename, data))
}

// ProcessText extracts fields from text that is already available
func (p *Processor) ProcessText(ctx context.Context, filename, text string) (*Result, error) {
	return toResult(p.pipeline.ProcessText(ctx, filename, text))
}

// ProcessBatch processes inputs concurrently. Results keep the input order;
// a failed input leaves a nil result and the first error is returned.
func (p *Processor) ProcessBatch(ctx context.Context, inputs []Input) ([]*Result, error) {
	docs := make([]processor.Document, len(inputs))
	for i, in := range inputs {
		data, err := io.ReadAll(in.Reader)
		if err != nil {
			return nil, model.NewExtractionError("read", fmt.Sprintf("failed to read %s", in.Filename), err)
		}
		docs[i] = processor.Document{Filename: in.Filename, Data: data}
	}

	processed, err := p.pipeline.ProcessBatch(ctx, docs, p.options.Concurrency)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(processed))
	var firstErr error
	for i, r := range processed {
		res, err := toResult(r)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		results[i] = res
	}
	return results, firstErr
}

// Check reports incomplete or inconsistent fields
func Check(fields *Fields) []string {
	return processor.CheckFields(fields)
}

func toResult(r *processor.Result) (*Result, error) {
	if r.Error != nil {
		return nil, r.Error
	}
	return &Result{
		Filename: r.Filename,
		Text:     r.CleanText,
		Fields:   r.Fields,
		Summary:  r.Summary,
		Warnings: r.Warnings,
		Duration: r.Duration,
	}, nil
}

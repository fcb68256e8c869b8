// Package extract derives structured invoice fields from unstructured
// document text with ordered, table-driven heuristics.
package extract

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/rezonia/docintel/internal/model"
)

// Engine runs the extraction stages. It holds no mutable state after
// NewEngine returns and is safe for concurrent use.
type Engine struct {
	rules Rules
	dates DateParser
	log   zerolog.Logger
}

// Option configures the engine
type Option func(*Engine)

// WithRules replaces the built-in rule set
func WithRules(r Rules) Option {
	return func(e *Engine) {
		e.rules = r
	}
}

// WithDateParser sets the date parsing capability
func WithDateParser(p DateParser) Option {
	return func(e *Engine) {
		if p != nil {
			e.dates = p
		}
	}
}

// WithLogger sets the debug logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// NewEngine creates an engine with the default rules and date parser
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rules: DefaultRules(),
		dates: NaturalDateParser{},
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the engine's rule set
func (e *Engine) Rules() Rules {
	return e.rules
}

// Extract derives an ExtractionResult from text. It never fails: blank input
// and unrecognised content produce empty fields.
func (e *Engine) Extract(text string) *model.ExtractionResult {
	text = strings.TrimSpace(Normalize(text))
	if text == "" {
		return model.NewExtractionResult()
	}

	lines := SplitLines(text)
	candidates := e.ScanAmounts(lines)

	res := model.NewExtractionResult()
	res.Vendor = e.FindVendor(lines)
	res.InvoiceNumber = e.FindInvoiceNumber(text)
	res.Dates = e.ResolveDates(text)
	res.Amounts = LinkItems(candidates)
	res.Totals = ReconcileTotals(candidates)

	e.log.Debug().
		Int("lines", len(lines)).
		Int("amounts", len(res.Amounts)).
		Bool("vendor", res.Vendor != nil).
		Bool("invoice_number", res.InvoiceNumber != nil).
		Msg("extraction complete")
	return res
}

var defaultEngine = NewEngine()

// Extract runs the default engine on text
func Extract(text string) *model.ExtractionResult {
	return defaultEngine.Extract(text)
}

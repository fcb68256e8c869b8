package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rezonia/docintel/internal/extract"
	"github.com/rezonia/docintel/internal/llm"
	"github.com/rezonia/docintel/internal/processor"
	"github.com/rezonia/docintel/internal/store"
	"github.com/rezonia/docintel/internal/summary"
	"github.com/rezonia/docintel/internal/textract"
)

var (
	version = "1.0.0"

	// Global flags
	verbose        bool
	outputFormat   string
	apiKey         string
	llmBaseURL     string
	llmModel       string
	llmVisionModel string
	dataDir        string
	storeKind      string
	storeDSN       string
	tesseractPath  string
	ocrLang        string
	sentences      int
	guarded        bool
)

var rootCmd = &cobra.Command{
	Use:   "docintel",
	Short: "Extract invoice fields from documents",
	Long: `docintel reads invoices and receipts (PDF, images, plain text), extracts
vendor, invoice number, dates, amounts and totals, and writes a short summary.

Text is taken from the PDF text layer when there is one and from tesseract
OCR otherwise. With an API key, images can also be transcribed and summaries
written by an OpenAI-compatible model.

Examples:
  # Extract fields from a PDF
  docintel extract invoice.pdf

  # Extract a folder as a table and keep the results
  docintel extract invoices/ -f table --save

  # Serve the HTTP API
  docintel serve --address :8080

  # Process files dropped into a folder
  docintel watch inbox/`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, csv, table)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for LLM provider (env: LLM_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&llmBaseURL, "llm-base-url", "", "LLM API base URL (env: LLM_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&llmModel, "llm-model", "", "LLM model for summaries (env: LLM_MODEL)")
	rootCmd.PersistentFlags().StringVar(&llmVisionModel, "llm-vision-model", "", "LLM model for image transcription (env: LLM_VISION_MODEL)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for stored results (env: DOCINTEL_DATA_DIR, default: uploads)")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "", "Result store: file, sqlite, postgres (env: DOCINTEL_STORE)")
	rootCmd.PersistentFlags().StringVar(&storeDSN, "dsn", "", "SQLite path or Postgres connection string (env: DOCINTEL_DSN)")
	rootCmd.PersistentFlags().StringVar(&tesseractPath, "tesseract", "", "tesseract binary (env: TESSERACT_PATH)")
	rootCmd.PersistentFlags().StringVar(&ocrLang, "ocr-lang", "", "OCR language (env: TESSERACT_LANG)")
	rootCmd.PersistentFlags().IntVar(&sentences, "summary-sentences", processor.DefaultSummarySentences, "Sentences per summary")
	rootCmd.PersistentFlags().BoolVar(&guarded, "guarded", false, "Skip dates, percentages, identifiers and quantities when scanning amounts, and label dates from their own line first")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	if apiKey == "" {
		apiKey = os.Getenv("LLM_API_KEY")
	}
	if llmBaseURL == "" {
		llmBaseURL = os.Getenv("LLM_BASE_URL")
	}
	if llmModel == "" {
		llmModel = os.Getenv("LLM_MODEL")
	}
	if llmVisionModel == "" {
		llmVisionModel = os.Getenv("LLM_VISION_MODEL")
	}
	if dataDir == "" {
		dataDir = envOr("DOCINTEL_DATA_DIR", "uploads")
	}
	if storeKind == "" {
		storeKind = envOr("DOCINTEL_STORE", string(store.KindFile))
	}
	if storeDSN == "" {
		storeDSN = os.Getenv("DOCINTEL_DSN")
	}
	if tesseractPath == "" {
		tesseractPath = os.Getenv("TESSERACT_PATH")
	}
	if ocrLang == "" {
		ocrLang = os.Getenv("TESSERACT_LANG")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newLogger writes human-readable logs to stderr
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// newPipeline wires text providers and summarizers from the global flags
func newPipeline(log zerolog.Logger) *processor.Pipeline {
	ocr := textract.NewTesseract(
		textract.TesseractConfig{Binary: tesseractPath, Lang: ocrLang},
		textract.WithTesseractLogger(log),
	)
	chain := textract.DefaultChain(ocr, textract.WithLogger(log))

	var (
		provider textract.Provider = chain
		primary  summary.Summarizer
	)
	if apiKey != "" {
		client := llm.NewClient(apiKey, llm.WithBaseURL(llmBaseURL), llm.WithDefaultModel(llmModel))
		provider = textract.NewChain(
			[]textract.Provider{chain, llm.NewTranscriber(client, llmVisionModel)},
			textract.WithLogger(log),
		)
		primary = llm.NewSummarizer(client)
		printVerbose("LLM enabled (model: %s)\n", client.DefaultModel())
	}

	return processor.NewPipeline(
		processor.WithTextProvider(provider),
		processor.WithEngine(newEngine(log)),
		processor.WithSummarizer(summary.NewFallback(primary, log)),
		processor.WithSummarySentences(sentences),
		processor.WithLogger(log),
	)
}

func newEngine(log zerolog.Logger) *extract.Engine {
	rules := extract.DefaultRules()
	if guarded {
		rules = extract.GuardedRules()
		printVerbose("Guarded extraction rules enabled\n")
	}
	return extract.NewEngine(extract.WithRules(rules), extract.WithLogger(log))
}

func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		Kind: store.Kind(storeKind),
		Dir:  dataDir,
		DSN:  storeDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", storeKind, err)
	}
	return st, nil
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

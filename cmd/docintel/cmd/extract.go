package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rezonia/docintel/internal/model"
	"github.com/rezonia/docintel/internal/processor"
)

var (
	outputFile  string
	timeout     time.Duration
	concurrency int
	saveResults bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Extract fields from documents",
	Long: `Extract vendor, invoice number, dates, amounts and totals from one or more
documents and print them.

Supported formats:
  - PDF: .pdf (text layer, OCR for scans)
  - Images: .png, .jpg, .jpeg, .tiff
  - Text: .txt, .xml

Examples:
  docintel extract invoice.pdf
  docintel extract scans/*.png -f table
  docintel extract invoices/ -o results.json --save`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	extractCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Timeout for the whole run")
	extractCmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Documents processed at once")
	extractCmd.Flags().BoolVar(&saveResults, "save", false, "Store results in the configured store")
}

func runExtract(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to process")
	}
	printVerbose("Found %d files to process\n", len(files))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := newLogger()
	pipeline := newPipeline(log)

	docs := make([]processor.Document, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		docs = append(docs, processor.Document{Filename: file, Data: data})
	}

	results, err := pipeline.ProcessBatch(ctx, docs, concurrency)
	if err != nil {
		return fmt.Errorf("processing interrupted: %w", err)
	}

	if saveResults {
		if err := saveAll(ctx, results); err != nil {
			return err
		}
	}

	out := make([]*ExtractResult, 0, len(results))
	for _, r := range results {
		printVerbose("%s: %s in %s\n", r.Filename, r.Format, r.Duration.Round(time.Millisecond))
		out = append(out, newExtractResult(r))
	}
	return outputResults(out)
}

func saveAll(ctx context.Context, results []*processor.Result) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, r := range results {
		rec := r.Record()
		rec.Filename = filepath.Base(r.Filename)
		if err := st.Save(ctx, rec); err != nil {
			return fmt.Errorf("failed to save %s: %w", rec.Filename, err)
		}
		printVerbose("Saved %s\n", rec.Filename)
	}
	return nil
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		// Check if it's a glob pattern
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}
			matches = []string{arg}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			switch {
			case info.IsDir():
				found, err := walkDir(match)
				if err != nil {
					return nil, err
				}
				files = append(files, found...)
			case len(matches) == 1 && match == arg:
				// named explicitly, let the pipeline decide
				files = append(files, match)
			case isSupportedFile(match):
				files = append(files, match)
			}
		}
	}

	return files, nil
}

func walkDir(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && isSupportedFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".png", ".jpg", ".jpeg", ".tiff", ".tif", ".txt", ".xml":
		return true
	default:
		return false
	}
}

// ExtractResult holds the printed outcome of one document
type ExtractResult struct {
	File     string                  `json:"file"`
	Format   string                  `json:"format"`
	Fields   *model.ExtractionResult `json:"fields,omitempty"`
	Summary  string                  `json:"summary,omitempty"`
	Warnings []string                `json:"warnings,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

func newExtractResult(r *processor.Result) *ExtractResult {
	out := &ExtractResult{
		File:     r.Filename,
		Format:   r.Format.String(),
		Fields:   r.Fields,
		Summary:  r.Summary,
		Warnings: r.Warnings,
	}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return out
}

func outputResults(results []*ExtractResult) error {
	var writer io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	switch outputFormat {
	case "json":
		return outputJSON(writer, results)
	case "table":
		return outputTable(writer, results)
	case "csv":
		return outputCSV(writer, results)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func outputJSON(w io.Writer, results []*ExtractResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func outputTable(w io.Writer, results []*ExtractResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tVENDOR\tNUMBER\tISSUED\tDUE\tTOTAL\tWARNINGS")
	fmt.Fprintln(tw, "----\t------\t------\t------\t---\t-----\t--------")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\tERROR: %s\t\t\t\t\t\n", r.File, r.Error)
			continue
		}
		if r.Fields == nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.File,
			deref(r.Fields.Vendor),
			deref(r.Fields.InvoiceNumber),
			formatDate(r.Fields.Dates.Issue),
			formatDate(r.Fields.Dates.Due),
			totalDue(r.Fields),
			len(r.Warnings),
		)
	}

	return tw.Flush()
}

func outputCSV(w io.Writer, results []*ExtractResult) error {
	fmt.Fprintln(w, "file,vendor,invoice_number,issue_date,due_date,delivery_date,subtotal,tax,total_due,currency,summary,error")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "%s,,,,,,,,,,,%s\n", escapeCSV(r.File), escapeCSV(r.Error))
			continue
		}
		if r.Fields == nil {
			continue
		}
		f := r.Fields
		fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,\n",
			escapeCSV(r.File),
			escapeCSV(deref(f.Vendor)),
			escapeCSV(deref(f.InvoiceNumber)),
			formatDate(f.Dates.Issue),
			formatDate(f.Dates.Due),
			formatDate(f.Dates.Delivery),
			formatAmount(f.Totals.Subtotal),
			formatAmount(f.Totals.Tax),
			totalDue(f),
			currencyOf(f),
			escapeCSV(r.Summary),
		)
	}

	return nil
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(model.DateLayout)
}

func totalDue(f *model.ExtractionResult) string {
	return formatAmount(f.Totals.TotalDue)
}

// currencyOf returns the currency of the first amount that carries one
func currencyOf(f *model.ExtractionResult) string {
	for _, it := range f.Amounts {
		if it.Currency != nil {
			return *it.Currency
		}
	}
	return ""
}

func formatAmount(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/docintel/internal/model"
	"github.com/rezonia/docintel/internal/report"
	"github.com/rezonia/docintel/internal/store"
)

var (
	exportAs  string
	exportOut string
)

var exportCmd = &cobra.Command{
	Use:   "export <filename>",
	Short: "Export a stored record",
	Long: `Write a stored record as JSON, an XLSX workbook or a Latin-1 text report.

Examples:
  docintel export invoice.pdf
  docintel export invoice.pdf --as xlsx -o invoice.xlsx
  docintel export invoice.pdf --as text --store sqlite`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored records",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(listCmd)

	exportCmd.Flags().StringVar(&exportAs, "as", "json", "Export format (json, xlsx, text)")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Output file (default: stdout, or <name>.xlsx for xlsx)")
}

func runExport(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Get(cmd.Context(), args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no stored record for %s", args[0])
	}
	if err != nil {
		return err
	}

	data, ext, err := renderRecord(rec, exportAs)
	if err != nil {
		return err
	}

	out := exportOut
	if out == "" && ext == ".xlsx" {
		out = strings.TrimSuffix(rec.Filename, filepath.Ext(rec.Filename)) + ext
	}
	if out == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	printVerbose("Wrote %s\n", out)
	return nil
}

// renderRecord returns the encoded record and its file extension
func renderRecord(rec *model.Record, format string) ([]byte, string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, "", err
		}
		return append(data, '\n'), ".json", nil
	case "xlsx":
		data, err := report.XLSX(rec)
		return data, ".xlsx", err
	case "text":
		data, err := report.Text(rec)
		return data, ".txt", err
	default:
		return nil, "", fmt.Errorf("unsupported export format: %s", format)
	}
}

func runList(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	return listRecords(os.Stdout, recs)
}

func listRecords(w io.Writer, recs []*model.Record) error {
	if outputFormat == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(recs)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tID\tVENDOR\tTOTAL\tUPDATED")
	for _, r := range recs {
		vendor, total := "", ""
		if r.Fields != nil {
			vendor = deref(r.Fields.Vendor)
			total = totalDue(r.Fields)
		}
		if r.Error != nil {
			vendor = "ERROR: " + *r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Filename, r.ID, vendor, total, r.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

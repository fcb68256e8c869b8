package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rawText bool

var textCmd = &cobra.Command{
	Use:   "text <file>",
	Short: "Print the text of a document",
	Long: `Run text extraction only (PDF text layer or OCR) and print the result.

Examples:
  docintel text scan.png
  docintel text invoice.pdf --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runText,
}

func init() {
	rootCmd.AddCommand(textCmd)

	textCmd.Flags().BoolVar(&rawText, "raw", false, "Print text as extracted, before cleanup")
}

func runText(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	pipeline := newPipeline(newLogger())
	result := pipeline.ExtractText(cmd.Context(), args[0], data)
	if result.Error != nil {
		return result.Error
	}

	printVerbose("Format: %s\n", result.Format)
	if rawText {
		fmt.Println(result.Text)
	} else {
		fmt.Println(result.CleanText)
	}
	return nil
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/docintel/internal/model"
	"github.com/rezonia/docintel/internal/processor"
)

var strictValidation bool

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate extracted fields",
	Long: `Check extracted fields for completeness and consistency.

JSON files are read as field documents (for example hand-corrected results)
and checked against the result schema. Other files are run through the
extraction pipeline first.

Checks performed:
  - Schema (JSON files only)
  - Vendor, invoice number and amounts present
  - Subtotal + tax = total due
  - Due date not before issue date

Examples:
  docintel validate corrected.json
  docintel validate invoices/*.pdf --strict`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&strictValidation, "strict", false, "Treat warnings as failures")
}

func runValidate(cmd *cobra.Command, args []string) error {
	var files []string
	for _, arg := range args {
		if strings.EqualFold(filepath.Ext(arg), ".json") {
			files = append(files, arg)
			continue
		}
		found, err := collectFiles([]string{arg})
		if err != nil {
			return err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to validate")
	}

	pipeline := newPipeline(newLogger())
	results := make([]*ValidationResult, 0, len(files))
	allValid := true

	for _, file := range files {
		result := validateFile(cmd.Context(), pipeline, file)
		results = append(results, result)
		if !result.Valid {
			allValid = false
		}
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Printf("✓ %s: VALID\n", r.File)
			} else {
				fmt.Printf("✗ %s: INVALID\n", r.File)
				for _, e := range r.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}
			for _, w := range r.Warnings {
				fmt.Printf("  ⚠ %s\n", w)
			}
		}
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}
	return nil
}

func validateFile(ctx context.Context, pipeline *processor.Pipeline, filePath string) *ValidationResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	result := &ValidationResult{File: filePath}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read file: %v", err))
		return result
	}

	var fields *model.ExtractionResult
	if strings.EqualFold(filepath.Ext(filePath), ".json") {
		fields, err = model.ParseCorrection(data)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			return result
		}
	} else {
		processed := pipeline.ProcessDocument(ctx, filePath, data)
		if processed.Error != nil {
			result.Errors = append(result.Errors, processed.Error.Error())
			return result
		}
		fields = processed.Fields
	}

	result.Warnings = processor.CheckFields(fields)
	result.Valid = !strictValidation || len(result.Warnings) == 0
	return result
}

// ValidationResult holds the outcome of validating one file
type ValidationResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

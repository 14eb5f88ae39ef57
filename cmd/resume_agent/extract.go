package main

import (
	"fmt"
	"io"

	"github.com/jonathan/resume-review/internal/llm"
	"github.com/jonathan/resume-review/internal/schemas"
	"github.com/spf13/cobra"
)

var (
	extractInput  string
	extractKind   string
	extractOutput string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Recover and validate JSON from saved model output",
	Long: `Run the response extractor and schema validator over raw model output,
for example a response that failed to parse during a review.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractInput, "in", "i", "", "Path to the raw model output, or - for stdin (required)")
	extractCmd.Flags().StringVar(&extractKind, "kind", string(schemas.KindDocument), "Expected payload: document or report")
	extractCmd.Flags().StringVarP(&extractOutput, "out", "o", "", "Write the validated JSON here instead of stdout")
	_ = extractCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	kind, err := schemas.ParseKind(extractKind)
	if err != nil {
		return err
	}
	raw, err := readInput(extractInput)
	if err != nil {
		return err
	}
	return extractResponse(string(raw), kind, extractOutput, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// extractResponse writes the validated payload and reports which strategy recovered it
func extractResponse(raw string, kind schemas.Kind, outPath string, stdout, stderr io.Writer) error {
	ext, err := llm.Extract(raw, llm.DefaultStrategies...)
	if err != nil {
		return err
	}

	var payload any
	switch kind {
	case schemas.KindMatchReport:
		payload, err = schemas.ValidateReport([]byte(ext.JSON))
	default:
		payload, err = schemas.ValidateDocument([]byte(ext.JSON))
	}
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stderr, "Recovered %s with %s\n", kind, ext.Strategy)
	return writeJSON(stdout, outPath, payload)
}

var (
	validateSchema string
	validateJSON   string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON file against a JSON Schema",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "Embedded schema (document or report) or path to a JSON Schema file (required)")
	validateCmd.Flags().StringVar(&validateJSON, "json", "", "Path to the JSON file (required)")
	_ = validateCmd.MarkFlagRequired("schema")
	_ = validateCmd.MarkFlagRequired("json")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	if err := schemas.ValidateJSON(validateSchema, validateJSON); err != nil {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Validation failed")
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Validation passed")
	return nil
}

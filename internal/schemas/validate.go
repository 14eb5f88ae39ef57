// Package schemas validates model output and user-supplied documents against
// the embedded JSON Schemas and decodes them into typed values.
package schemas

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents a schema validation error with field paths.
// Errors are sorted by field so the first entry is stable across runs.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// Path returns the first offending field path
func (ve *ValidationError) Path() string {
	if len(ve.Errors) == 0 {
		return rootField
	}
	return ve.Errors[0].Field
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// ValidateJSON validates the JSON file at jsonPath. schema is either the name
// of an embedded schema ("document" or "report") or the path of a JSON Schema
// file. Embedded schemas are applied as-is: no normalization or id backfill.
func ValidateJSON(schema, jsonPath string) error {
	doc, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if !json.Valid(doc) {
		return fmt.Errorf("%s is not valid JSON", jsonPath)
	}

	if file, ok := schemaFiles[Kind(strings.ToLower(schema))]; ok {
		compiled, err := schemaFor(Kind(strings.ToLower(schema)))
		if err != nil {
			return err
		}
		return check(file, func() (*gojsonschema.Result, error) {
			return compiled.Validate(gojsonschema.NewBytesLoader(doc))
		})
	}

	raw, err := os.ReadFile(schema)
	if err != nil {
		return &SchemaLoadError{Path: schema, Message: "failed to read schema", Cause: err}
	}
	return validateBytes(schema, raw, doc)
}

// ValidateJSONString validates JSON content against schema content
func ValidateJSONString(schemaContent, jsonContent string) error {
	return validateBytes("(string schema)", []byte(schemaContent), []byte(jsonContent))
}

func validateBytes(schemaName string, schema, doc []byte) error {
	return check(schemaName, func() (*gojsonschema.Result, error) {
		return gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(doc))
	})
}

// check runs one validation; load failures of either side are reported against the schema
func check(schemaName string, validate func() (*gojsonschema.Result, error)) error {
	result, err := validate()
	if err != nil {
		return &SchemaLoadError{Path: schemaName, Message: "failed to validate", Cause: err}
	}
	if result.Valid() {
		return nil
	}
	return newValidationError(result)
}

const rootField = "(root)"

func newValidationError(result *gojsonschema.Result) *ValidationError {
	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   fieldPath(desc),
			Message: desc.Description(),
		})
	}
	validationErr.sort()
	return validationErr
}

// fieldPath names the offending field. A missing required property is reported
// at the property itself rather than at its parent object.
func fieldPath(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if field == "" {
		field = rootField
	}
	if desc.Type() != "required" {
		return field
	}
	property, ok := desc.Details()["property"].(string)
	if !ok || property == "" {
		return field
	}
	if field == rootField {
		return property
	}
	return field + "." + property
}

func (ve *ValidationError) sort() {
	sort.SliceStable(ve.Errors, func(i, j int) bool {
		return ve.Errors[i].Field < ve.Errors[j].Field
	})
}

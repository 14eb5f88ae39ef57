package llm

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	schemafiles "github.com/jonathan/resume-review/schemas"
)

// ExtractionSchema describes the single JSON object a prompt asks for
type ExtractionSchema struct {
	Name     string
	Preamble string
	Fields   []SchemaField
}

// SchemaField is one top-level property of an ExtractionSchema.
// Hint is written verbatim after the field name, e.g. number or ["string"].
type SchemaField struct {
	Name        string
	Hint        string
	Description string
	Required    bool
}

const recruiterPreamble = `You are an experienced technical recruiter. Compare the candidate profile with the job description.
Judge only from what the profile states; do not assume skills that are not written down.`

// MatchReportSchema derives the report prompt shape from the embedded
// match report JSON Schema, so the prompt and the validator describe the
// same object. The server-assigned id is left out.
func MatchReportSchema() (ExtractionSchema, error) {
	fields, err := fieldsFromSchema(schemafiles.MatchReportFile, "id")
	if err != nil {
		return ExtractionSchema{}, err
	}
	return ExtractionSchema{Name: "MatchReport", Preamble: recruiterPreamble, Fields: fields}, nil
}

type jsonSchemaProperty struct {
	Type        string              `json:"type"`
	Description string              `json:"description"`
	Items       *jsonSchemaProperty `json:"items"`
}

// fieldsFromSchema lists required properties in schema order, then the
// optional ones by name.
func fieldsFromSchema(file string, skip ...string) ([]SchemaField, error) {
	raw, err := schemafiles.FS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", file, err)
	}
	var doc struct {
		Required   []string                      `json:"required"`
		Properties map[string]jsonSchemaProperty `json:"properties"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", file, err)
	}

	var fields []SchemaField
	seen := map[string]bool{}
	for _, name := range skip {
		seen[name] = true
	}
	add := func(name string, required bool) {
		prop, ok := doc.Properties[name]
		if !ok || seen[name] {
			return
		}
		seen[name] = true
		fields = append(fields, SchemaField{Name: name, Hint: typeHint(prop), Description: prop.Description, Required: required})
	}

	for _, name := range doc.Required {
		add(name, true)
	}
	optional := make([]string, 0, len(doc.Properties))
	for name := range doc.Properties {
		optional = append(optional, name)
	}
	slices.Sort(optional)
	for _, name := range optional {
		add(name, false)
	}
	return fields, nil
}

func typeHint(p jsonSchemaProperty) string {
	switch p.Type {
	case "array":
		item := `"string"`
		if p.Items != nil {
			item = typeHint(*p.Items)
		}
		return "[" + item + "]"
	case "", "string":
		return `"string"`
	default:
		return p.Type
	}
}

// BuildExtractionPrompt asks for exactly one object shaped like schema,
// grounded in inputText.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	lines := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		line := fmt.Sprintf("  %q: %s", f.Name, f.Hint)
		if f.Required {
			line += " (required)"
		}
		if f.Description != "" {
			line += " // " + f.Description
		}
		lines = append(lines, line)
	}

	var b strings.Builder
	b.WriteString(schema.Preamble)
	b.WriteString("\n\nRespond with one JSON object of this shape:\n{\n")
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n}\n\nRules:\n")
	b.WriteString("- Every value must come from the text below. Do not invent facts.\n")
	b.WriteString("- Output the object alone: no markdown fences, no commentary.\n\n")
	fmt.Fprintf(&b, "Input text:\n\"\"\"\n%s\n\"\"\"\n", inputText)
	return b.String()
}

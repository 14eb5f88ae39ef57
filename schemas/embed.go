// Package schemas holds the JSON Schema files for documents the model is asked to produce.
package schemas

import "embed"

// FS contains every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS

// Schema file names
const (
	DocumentFile    = "document.schema.json"
	MatchReportFile = "match_report.schema.json"
)

package schemas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/resume-review/internal/review"
	"github.com/jonathan/resume-review/internal/types"
	schemafiles "github.com/jonathan/resume-review/schemas"
	"github.com/xeipuuv/gojsonschema"
)

// Kind selects the target schema for model output
type Kind string

const (
	// KindDocument is a resume profile
	KindDocument Kind = "document"
	// KindMatchReport is a profile-to-job fit assessment
	KindMatchReport Kind = "report"
)

var schemaFiles = map[Kind]string{
	KindDocument:    schemafiles.DocumentFile,
	KindMatchReport: schemafiles.MatchReportFile,
}

// ParseKind maps a kind name to a Kind
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "document", "profile":
		return KindDocument, nil
	case "report", "match_report":
		return KindMatchReport, nil
	default:
		return "", fmt.Errorf("unknown schema kind: %q", name)
	}
}

var (
	compiledMu sync.Mutex
	compiled   = map[Kind]*gojsonschema.Schema{}

	structValidator = newStructValidator()
)

func schemaFor(kind Kind) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if s, ok := compiled[kind]; ok {
		return s, nil
	}
	file, ok := schemaFiles[kind]
	if !ok {
		return nil, &SchemaLoadError{Path: string(kind), Message: "unknown schema kind"}
	}
	data, err := schemafiles.FS.ReadFile(file)
	if err != nil {
		return nil, &SchemaLoadError{Path: file, Message: "failed to read embedded schema", Cause: err}
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &SchemaLoadError{Path: file, Message: "failed to compile schema", Cause: err}
	}
	compiled[kind] = s
	return s, nil
}

// Validate checks an untyped JSON tree against the schema for kind.
// A tree that fails is normalized and backfilled, then validated once more.
// The returned tree is always normalized and has its identifiers filled in.
func Validate(kind Kind, tree any) (map[string]any, error) {
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, &ValidationError{Errors: []FieldError{{Field: rootField, Message: "expected a JSON object"}}}
	}

	schema, err := schemaFor(kind)
	if err != nil {
		return nil, err
	}

	first, err := schema.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil {
		return nil, &SchemaLoadError{Path: schemaFiles[kind], Message: "failed to validate document", Cause: err}
	}

	normalized := Normalize(obj).(map[string]any)
	Backfill(kind, normalized)

	if first.Valid() {
		return normalized, nil
	}

	second, err := schema.Validate(gojsonschema.NewGoLoader(normalized))
	if err != nil {
		return nil, &SchemaLoadError{Path: schemaFiles[kind], Message: "failed to validate document", Cause: err}
	}
	if !second.Valid() {
		return nil, newValidationError(second)
	}
	return normalized, nil
}

// ValidateDocument decodes recovered model output into a Document.
func ValidateDocument(raw []byte) (*types.Document, error) {
	var doc types.Document
	if err := validateInto(KindDocument, raw, &doc); err != nil {
		return nil, err
	}
	if err := checkKeys(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ValidateReport decodes recovered model output into a MatchReport.
func ValidateReport(raw []byte) (*types.MatchReport, error) {
	var report types.MatchReport
	if err := validateInto(KindMatchReport, raw, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func validateInto(kind Kind, raw []byte, out any) error {
	tree, err := decodeTree(raw)
	if err != nil {
		return err
	}

	normalized, err := Validate(kind, tree)
	if err != nil {
		return err
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("failed to marshal normalized %s: %w", kind, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ValidationError{Errors: []FieldError{{Field: rootField, Message: err.Error()}}}
	}
	return checkStruct(out)
}

func decodeTree(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, &ValidationError{Errors: []FieldError{{Field: rootField, Message: fmt.Sprintf("invalid JSON: %v", err)}}}
	}
	return tree, nil
}

// Normalize returns a copy of tree in which explicit nulls are treated as absent:
// object keys holding null are removed and null array items are dropped.
func Normalize(tree any) any {
	switch v := tree.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if val == nil {
				continue
			}
			out[k] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			out = append(out, Normalize(item))
		}
		return out
	default:
		return v
	}
}

// Backfill generates identifiers the schema requires but the tree lacks:
// the top-level id and, for documents, the id of each work item. A work id
// already used by an earlier item is replaced too, so work ids are unique.
// Order is preserved. Returns the number of identifiers generated.
func Backfill(kind Kind, obj map[string]any) int {
	assigned := 0
	if missingID(obj) {
		obj["id"] = uuid.NewString()
		assigned++
	}
	if kind != KindDocument {
		return assigned
	}
	work, _ := obj["work"].([]any)
	seen := make(map[string]bool, len(work))
	for _, item := range work {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, isString := entry["id"].(string)
		if missingID(entry) || (isString && seen[id]) {
			id, isString = uuid.NewString(), true
			entry["id"] = id
			assigned++
		}
		if isString {
			seen[id] = true
		}
	}
	return assigned
}

func missingID(obj map[string]any) bool {
	id, ok := obj["id"]
	if !ok {
		return true
	}
	s, isString := id.(string)
	return isString && strings.TrimSpace(s) == ""
}

// checkKeys rejects item keys that cannot be reviewed: duplicate skill
// category names and keys that read back as a sub-field path.
func checkKeys(doc *types.Document) error {
	var errs []FieldError
	for i, w := range doc.Work {
		if review.AmbiguousKey(review.CollectionWork, w.ID) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("work.%d.id", i),
				Message: fmt.Sprintf("id %q must not end in a field name", w.ID),
			})
		}
	}
	first := make(map[string]int, len(doc.Skills))
	for i, s := range doc.Skills {
		field := fmt.Sprintf("skills.%d.name", i)
		if j, dup := first[s.Name]; dup {
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("category %q is already defined at skills.%d", s.Name, j)})
			continue
		}
		first[s.Name] = i
		if review.AmbiguousKey(review.CollectionSkills, s.Name) {
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("category %q must not end in a field name", s.Name)})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	validationErr := &ValidationError{Errors: errs}
	validationErr.sort()
	return validationErr
}

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct runs the struct tag rules that JSON Schema cannot express on the decoded value.
func checkStruct(out any) error {
	err := structValidator.Struct(out)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate struct: %w", err)
	}
	validationErr := &ValidationError{Errors: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   namespacePath(fe.Namespace()),
			Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
		})
	}
	validationErr.sort()
	return validationErr
}

// namespacePath turns "Document.work[0].company" into "work.0.company".
func namespacePath(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return rootField
	}
	rest = strings.ReplaceAll(rest, "[", ".")
	return strings.ReplaceAll(rest, "]", "")
}

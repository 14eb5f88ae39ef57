// Package review represents a field-level diff between an original and a proposed
// Document, resolves it from sparse accept/reject decisions, and owns the
// lifecycle of a review session.
package review

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jonathan/resume-review/internal/types"
)

// Kind tags the variant held by a ChangePath
type Kind int

const (
	// KindScalar addresses a single scalar field, e.g. basics.name
	KindScalar Kind = iota
	// KindItem addresses an identified collection item or one of its fields, e.g. work.<id>.highlights
	KindItem
	// KindCategory addresses a category-keyed item or one of its fields, e.g. skills.<name>.keywords
	KindCategory
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindItem:
		return "item"
	case KindCategory:
		return "category"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Section and collection names used in paths
const (
	SectionBasics    = "basics"
	CollectionWork   = "work"
	CollectionSkills = "skills"
)

// ChangePath names one addressable unit of a Document. It is a value type and
// its String form is a safe map key; it is never evaluated as an expression.
type ChangePath struct {
	Kind       Kind
	Field      string // scalar field name (KindScalar)
	Collection string // basics, work or skills
	Key        string // item id or category name
	SubField   string // optional field within the item
}

// Scalar returns the path of a basics field
func Scalar(field string) ChangePath {
	return ChangePath{Kind: KindScalar, Collection: SectionBasics, Field: field}
}

// Item returns the path of a work entry, or of one of its fields when field is non-empty
func Item(id, field string) ChangePath {
	return ChangePath{Kind: KindItem, Collection: CollectionWork, Key: id, SubField: field}
}

// Category returns the path of a skill category, or of one of its fields when field is non-empty
func Category(name, field string) ChangePath {
	return ChangePath{Kind: KindCategory, Collection: CollectionSkills, Key: name, SubField: field}
}

// IsItem reports whether the path names a whole collection item
func (p ChangePath) IsItem() bool {
	return p.Kind != KindScalar && p.SubField == ""
}

// Parent returns the item-level path of a sub-field path
func (p ChangePath) Parent() ChangePath {
	p.SubField = ""
	return p
}

func (p ChangePath) String() string {
	switch p.Kind {
	case KindScalar:
		return p.Collection + "." + p.Field
	default:
		s := p.Collection + "." + p.Key
		if p.SubField != "" {
			s += "." + p.SubField
		}
		return s
	}
}

// ParsePath parses a dot-delimited path. Keys may contain dots: a trailing
// segment is only read as a sub-field when it names a known field of the collection.
func ParsePath(s string) (ChangePath, error) {
	section, rest, ok := strings.Cut(s, ".")
	if !ok || rest == "" {
		return ChangePath{}, &PathError{Path: s, Reason: "expected <section>.<name>"}
	}

	switch section {
	case SectionBasics:
		if !slices.Contains(basicsFields, rest) {
			return ChangePath{}, &PathError{Path: s, Reason: "unknown basics field"}
		}
		return Scalar(rest), nil
	case CollectionWork:
		key, field := splitSubField(rest, workFields)
		if key == "" {
			return ChangePath{}, &PathError{Path: s, Reason: "empty work id"}
		}
		return Item(key, field), nil
	case CollectionSkills:
		key, field := splitSubField(rest, skillFields)
		if key == "" {
			return ChangePath{}, &PathError{Path: s, Reason: "empty category name"}
		}
		return Category(key, field), nil
	default:
		return ChangePath{}, &PathError{Path: s, Reason: fmt.Sprintf("%q is not a reviewed section", section)}
	}
}

// AmbiguousKey reports whether key, used as an item key of collection, would
// read back as a sub-field path of a shorter key, e.g. a category named
// "Cloud.keywords". Such keys cannot be addressed unambiguously.
func AmbiguousKey(collection, key string) bool {
	var fields []string
	switch collection {
	case CollectionWork:
		fields = workFields
	case CollectionSkills:
		fields = skillFields
	default:
		return false
	}
	_, field := splitSubField(key, fields)
	return field != ""
}

func splitSubField(rest string, fields []string) (key, field string) {
	if i := strings.LastIndex(rest, "."); i >= 0 && slices.Contains(fields, rest[i+1:]) {
		return rest[:i], rest[i+1:]
	}
	return rest, ""
}

// Paths enumerates every path of doc in document order. The same logical
// field yields the same path in any two documents.
func Paths(doc *types.Document) []ChangePath {
	if doc == nil {
		return nil
	}
	paths := make([]ChangePath, 0, len(basicsFields)+len(doc.Work)*(len(workFields)+1)+len(doc.Skills)*(len(skillFields)+1))
	for _, f := range basicsFields {
		paths = append(paths, Scalar(f))
	}
	paths = appendItemPaths(paths, workCollection, doc.Work)
	paths = appendItemPaths(paths, skillCollection, doc.Skills)
	return paths
}

func appendItemPaths[T any](paths []ChangePath, c collection[T], items []T) []ChangePath {
	for _, item := range items {
		key := c.key(item)
		paths = append(paths, c.path(key, ""))
		for _, f := range c.fields {
			paths = append(paths, c.path(key, f.name))
		}
	}
	return paths
}

// ChangedPaths lists the paths whose values differ between original and proposed:
// changed scalars, changed sub-fields of shared items, and whole items present on one side only.
func ChangedPaths(original, proposed *types.Document) []ChangePath {
	original, proposed = orEmpty(original), orEmpty(proposed)

	var changed []ChangePath
	for _, f := range scalarFields {
		if !f.equal(original.Basics, proposed.Basics) {
			changed = append(changed, Scalar(f.name))
		}
	}
	changed = appendChangedItems(changed, workCollection, original.Work, proposed.Work)
	changed = appendChangedItems(changed, skillCollection, original.Skills, proposed.Skills)
	return changed
}

func appendChangedItems[T any](changed []ChangePath, c collection[T], original, proposed []T) []ChangePath {
	proposedByKey := c.index(proposed)
	originalByKey := c.index(original)

	for _, o := range original {
		key := c.key(o)
		p, ok := proposedByKey[key]
		if !ok {
			changed = append(changed, c.path(key, ""))
			continue
		}
		for _, f := range c.fields {
			if !f.equal(o, p) {
				changed = append(changed, c.path(key, f.name))
			}
		}
	}
	added := make(map[string]bool)
	for _, p := range proposed {
		key := c.key(p)
		if _, ok := originalByKey[key]; !ok && !added[key] {
			changed = append(changed, c.path(key, ""))
			added[key] = true
		}
	}
	return changed
}

// PathError reports a path that cannot be parsed or does not exist in the review
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("invalid change path %q: %s", e.Path, e.Reason)
}

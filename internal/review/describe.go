package review

import (
	"strings"

	"github.com/jonathan/resume-review/internal/types"
)

// Describe renders the value doc holds at p for display. Whole items render as
// their fields; ok is false when doc has nothing at p.
func Describe(doc *types.Document, p ChangePath) (string, bool) {
	doc = orEmpty(doc)
	switch p.Kind {
	case KindScalar:
		for _, f := range scalarFields {
			if f.name == p.Field {
				return f.show(doc.Basics), true
			}
		}
	case KindItem:
		return describeItem(workCollection, doc.Work, p)
	case KindCategory:
		return describeItem(skillCollection, doc.Skills, p)
	}
	return "", false
}

func describeItem[T any](c collection[T], items []T, p ChangePath) (string, bool) {
	item, ok := c.index(items)[p.Key]
	if !ok {
		return "", false
	}
	if p.SubField == "" {
		parts := make([]string, len(c.fields))
		for i, f := range c.fields {
			parts[i] = f.name + "=" + f.show(item)
		}
		return "{" + strings.Join(parts, " ") + "}", true
	}
	for _, f := range c.fields {
		if f.name == p.SubField {
			return f.show(item), true
		}
	}
	return "", false
}

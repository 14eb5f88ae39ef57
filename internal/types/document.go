// Package types provides type definitions for structured data used throughout the resume-review system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"slices"

	"github.com/google/uuid"
)

// Document is the canonical resume profile that variants are derived from.
// Field names follow the JSON Resume conventions so model output can be decoded directly.
type Document struct {
	ID        string           `json:"id" validate:"required"`
	Basics    Basics           `json:"basics"`
	Work      []WorkEntry      `json:"work" validate:"dive"`
	Education []EducationEntry `json:"education"`
	Skills    []SkillCategory  `json:"skills" validate:"dive"`
	Projects  []*Project       `json:"projects,omitempty"`
}

// Basics holds the scalar identity and contact fields
type Basics struct {
	Name     string `json:"name" validate:"required"`
	Label    string `json:"label,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	URL      string `json:"url,omitempty"`
	Location string `json:"location,omitempty"`
}

// WorkEntry is a position held. ID is stable for the lifetime of the entry.
type WorkEntry struct {
	ID         string   `json:"id" validate:"required"`
	Company    string   `json:"company" validate:"required"`
	Position   string   `json:"position,omitempty"`
	StartDate  string   `json:"startDate,omitempty"`
	EndDate    *string  `json:"endDate,omitempty"` // nil means current position
	Highlights []string `json:"highlights"`
}

// EducationEntry is compared by position or institution; it carries no stable id.
type EducationEntry struct {
	Institution string `json:"institution"`
	Area        string `json:"area,omitempty"`
	StudyType   string `json:"studyType,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

// SkillCategory groups keywords under a human-readable category name, which acts as its key.
type SkillCategory struct {
	Name     string   `json:"name" validate:"required"`
	Keywords []string `json:"keywords"`
}

// Project is a side project. Entries in Document.Projects may be nil.
type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
}

// NewID returns a fresh identifier for documents and work entries.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy. Nil slices stay nil so clones compare equal to their source.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		ID:        d.ID,
		Basics:    d.Basics,
		Education: slices.Clone(d.Education),
	}
	if d.Work != nil {
		out.Work = make([]WorkEntry, len(d.Work))
		for i, w := range d.Work {
			out.Work[i] = w.Clone()
		}
	}
	if d.Skills != nil {
		out.Skills = make([]SkillCategory, len(d.Skills))
		for i, s := range d.Skills {
			out.Skills[i] = s.Clone()
		}
	}
	if d.Projects != nil {
		out.Projects = make([]*Project, len(d.Projects))
		for i, p := range d.Projects {
			if p != nil {
				cp := *p
				cp.Highlights = slices.Clone(p.Highlights)
				out.Projects[i] = &cp
			}
		}
	}
	return out
}

// Clone returns a deep copy of the work entry.
func (w WorkEntry) Clone() WorkEntry {
	out := w
	if w.EndDate != nil {
		end := *w.EndDate
		out.EndDate = &end
	}
	out.Highlights = slices.Clone(w.Highlights)
	return out
}

// Clone returns a deep copy of the skill category.
func (s SkillCategory) Clone() SkillCategory {
	out := s
	out.Keywords = slices.Clone(s.Keywords)
	return out
}

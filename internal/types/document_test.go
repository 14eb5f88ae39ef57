package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func sampleDocument() *Document {
	return &Document{
		ID:     "doc-1",
		Basics: Basics{Name: "Ada Lovelace", Email: "ada@example.com"},
		Work: []WorkEntry{
			{ID: "w1", Company: "Acme", Position: "Engineer", StartDate: "2020-01", EndDate: strPtr("2022-06"), Highlights: []string{"Built things"}},
			{ID: "w2", Company: "Globex", Highlights: []string{}},
		},
		Education: []EducationEntry{{Institution: "MIT", Area: "CS"}},
		Skills:    []SkillCategory{{Name: "Languages", Keywords: []string{"Go", "Python"}}},
		Projects:  []*Project{{Name: "engine", Highlights: []string{"fast"}}, nil},
	}
}

func TestDocument_JSONUsesResumeFieldNames(t *testing.T) {
	doc := sampleDocument()

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"startDate":"2020-01"`)
	assert.Contains(t, string(data), `"endDate":"2022-06"`)
	assert.NotContains(t, string(data), `"endDate":null`)
}

func TestDocument_CloneIsDeep(t *testing.T) {
	doc := sampleDocument()
	clone := doc.Clone()

	require.Equal(t, doc, clone)

	clone.Work[0].Highlights[0] = "changed"
	*clone.Work[0].EndDate = "2099-01"
	clone.Skills[0].Keywords[0] = "Rust"
	clone.Projects[0].Name = "other"

	assert.Equal(t, "Built things", doc.Work[0].Highlights[0])
	assert.Equal(t, "2022-06", *doc.Work[0].EndDate)
	assert.Equal(t, "Go", doc.Skills[0].Keywords[0])
	assert.Equal(t, "engine", doc.Projects[0].Name)
}

func TestDocument_ClonePreservesNilSlices(t *testing.T) {
	doc := &Document{ID: "x"}
	clone := doc.Clone()

	assert.Nil(t, clone.Work)
	assert.Nil(t, clone.Skills)
	assert.Nil(t, clone.Projects)
	assert.Equal(t, doc, clone)
}

func TestNormalizeFolderPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty is root", input: "", expected: ""},
		{name: "slash is root", input: "/", expected: ""},
		{name: "single segment", input: "/jobs", expected: "/jobs"},
		{name: "missing leading slash", input: "jobs", expected: "/jobs"},
		{name: "deeper path keeps first segment", input: "/jobs/backend/2024", expected: "/jobs"},
		{name: "repeated slashes", input: "//jobs//x", expected: "/jobs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeFolderPath(tt.input))
		})
	}
}

func TestVariantOf_CarriesFolderAndOwner(t *testing.T) {
	source := &Profile{ID: "p1", OwnerID: "u1", Name: "Base", FolderPath: "/applications", Document: sampleDocument()}

	variant := VariantOf(source, "", source.Document)

	assert.Equal(t, "u1", variant.OwnerID)
	assert.Equal(t, "/applications", variant.FolderPath)
	assert.Equal(t, "Base (tailored)", variant.Name)
	require.NotNil(t, variant.SourceProfileID)
	assert.Equal(t, "p1", *variant.SourceProfileID)
	assert.NotEqual(t, source.Document.ID, variant.Document.ID)
	assert.Equal(t, variant.ID, variant.Document.ID)
	assert.Equal(t, "doc-1", source.Document.ID)
}

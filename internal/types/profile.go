package types

import (
	"strings"
	"time"
)

// Profile is a stored Document together with its ownership and organization metadata.
type Profile struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Name            string    `json:"name"`
	FolderPath      string    `json:"folder_path,omitempty"`
	SourceProfileID *string   `json:"source_profile_id,omitempty"`
	Document        *Document `json:"document"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NormalizeFolderPath returns "" for the root folder or "/<name>".
// Folders are one level deep; deeper paths keep only their first segment.
func NormalizeFolderPath(path string) string {
	for _, segment := range strings.Split(path, "/") {
		segment = strings.TrimSpace(segment)
		if segment != "" {
			return "/" + segment
		}
	}
	return ""
}

// VariantOf derives a new profile that carries the source's owner and folder unchanged.
func VariantOf(source *Profile, name string, doc *Document) *Profile {
	sourceID := source.ID
	if name == "" {
		name = source.Name + " (tailored)"
	}
	doc = doc.Clone()
	doc.ID = NewID()
	return &Profile{
		ID:              doc.ID,
		OwnerID:         source.OwnerID,
		Name:            name,
		FolderPath:      NormalizeFolderPath(source.FolderPath),
		SourceProfileID: &sourceID,
		Document:        doc,
	}
}

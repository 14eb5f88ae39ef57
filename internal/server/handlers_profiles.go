package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/resume-review/internal/db"
	"github.com/jonathan/resume-review/internal/schemas"
	"github.com/jonathan/resume-review/internal/tailoring"
	"github.com/jonathan/resume-review/internal/types"
)

// ListProfilesResponse represents the response for listing profiles
type ListProfilesResponse struct {
	Profiles []*types.Profile `json:"profiles"`
	Count    int              `json:"count"`
}

// SaveProfileRequest creates or replaces a profile
type SaveProfileRequest struct {
	Name       string          `json:"name" validate:"required,max=200"`
	FolderPath string          `json:"folder_path" validate:"max=200"`
	Document   json.RawMessage `json:"document" validate:"required"`
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 100, 500)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	filter := db.ProfileFilter{Limit: limit}
	if r.URL.Query().Has("folder") {
		folder := types.NormalizeFolderPath(r.URL.Query().Get("folder"))
		filter.Folder = &folder
	}

	profiles, err := s.profiles.ListProfiles(r.Context(), ownerID, filter)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if profiles == nil {
		profiles = []*types.Profile{}
	}
	s.jsonResponse(w, http.StatusOK, ListProfilesResponse{Profiles: profiles, Count: len(profiles)})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	profile, err := s.profiles.GetProfile(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if profile == nil {
		s.errorResponse(w, r, tailoring.ErrProfileNotFound)
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

// handlePutProfile validates the document against the profile schema and
// stores it under the path id; ids inside the document are backfilled.
func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	var req SaveProfileRequest
	if err := s.decode(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := s.check(&req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	doc, err := schemas.ValidateDocument(req.Document)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	id := r.PathValue("id")
	ctx := r.Context()
	existing, err := s.profiles.GetProfile(ctx, ownerID, id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	doc.ID = id
	profile := &types.Profile{
		ID:         id,
		OwnerID:    ownerID,
		Name:       req.Name,
		FolderPath: types.NormalizeFolderPath(req.FolderPath),
		Document:   doc,
	}
	status := http.StatusCreated
	if existing != nil {
		profile.SourceProfileID = existing.SourceProfileID
		status = http.StatusOK
	}
	if err := s.profiles.SaveProfile(ctx, profile); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	saved, err := s.profiles.GetProfile(ctx, ownerID, id)
	if err != nil || saved == nil {
		saved = profile
	}
	s.jsonResponse(w, status, saved)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	if err := s.profiles.DeleteProfile(r.Context(), ownerID, r.PathValue("id")); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

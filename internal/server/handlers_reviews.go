package server

import (
	"net/http"

	"github.com/jonathan/resume-review/internal/tailoring"
)

// DecisionRequest accepts or rejects one change path
type DecisionRequest struct {
	Path     string `json:"path" validate:"required,max=500"`
	Accepted *bool  `json:"accepted" validate:"required"`
}

// KeepRequest commits a review
type KeepRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=replace variant"`
	Name string `json:"name" validate:"max=200"`
}

// regenerateInstruction is used when a regenerate request names no task
const regenerateInstruction = "Propose a different revision of the profile than before, keeping every fact accurate."

func (s *Server) handleStartReview(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	task, ok := s.task(w, r, false)
	if !ok {
		return
	}

	snap, err := s.reviews.StartReview(r.Context(), ownerID, r.PathValue("id"), task)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, snap)
}

func (s *Server) handleMatchReport(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	task, ok := s.task(w, r, false)
	if !ok {
		return
	}

	report, err := s.reviews.MatchReport(r.Context(), ownerID, r.PathValue("id"), task)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	snap, err := s.reviews.Snapshot(ownerID, r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	doc, err := s.reviews.Preview(ownerID, r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	var req DecisionRequest
	if err := s.decode(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := s.check(&req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	snap, err := s.reviews.Decide(r.Context(), ownerID, r.PathValue("id"), req.Path, *req.Accepted)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

func (s *Server) handleResetDecision(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		s.errorResponse(w, r, badRequest(nil, "path query parameter is required"))
		return
	}

	snap, err := s.reviews.Reset(r.Context(), ownerID, r.PathValue("id"), path)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	task, ok := s.task(w, r, true)
	if !ok {
		return
	}

	snap, err := s.reviews.Regenerate(r.Context(), ownerID, r.PathValue("id"), task)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

func (s *Server) handleKeep(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	var req KeepRequest
	if err := s.decode(w, r, &req, true); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := s.check(&req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	mode, err := tailoring.ParseCommitMode(req.Mode)
	if err != nil {
		s.errorResponse(w, r, badRequest(err, "invalid mode"))
		return
	}

	profile, err := s.reviews.Keep(r.Context(), ownerID, r.PathValue("id"), mode, req.Name)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	original, err := s.reviews.Undo(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, original)
}

// task reads a generation task. With optional set, an empty body asks for
// another revision.
func (s *Server) task(w http.ResponseWriter, r *http.Request, optional bool) (tailoring.Task, bool) {
	var task tailoring.Task
	if err := s.decode(w, r, &task, optional); err != nil {
		s.errorResponse(w, r, err)
		return task, false
	}
	if optional && task == (tailoring.Task{}) {
		task.Instruction = regenerateInstruction
	}
	if err := s.check(&task); err != nil {
		s.errorResponse(w, r, err)
		return task, false
	}
	return task, true
}

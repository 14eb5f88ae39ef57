package review

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-review/internal/types"
)

// State is the lifecycle state of a Session
type State int

const (
	// Idle sessions have no ChangeSet yet
	Idle State = iota
	// Reviewing sessions accept decisions
	Reviewing
	// Kept sessions ended by committing the resolved document
	Kept
	// Abandoned sessions ended by undo; the original stands
	Abandoned
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reviewing:
		return "reviewing"
	case Kept:
		return "kept"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Terminated reports whether no further operations are allowed
func (s State) Terminated() bool {
	return s == Kept || s == Abandoned
}

// Session owns one ChangeSet from Start until Keep or Undo.
// All methods are safe for concurrent use.
type Session struct {
	mu         sync.Mutex
	id         string
	documentID string
	state      State
	changes    *ChangeSet
	resolved   *types.Document
	updatedAt  time.Time
}

// NewSession creates an Idle session for a document
func NewSession(documentID string) *Session {
	return &Session{
		id:         uuid.NewString(),
		documentID: documentID,
		state:      Idle,
		updatedAt:  time.Now(),
	}
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// DocumentID returns the id of the document under review
func (s *Session) DocumentID() string { return s.documentID }

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins the review of proposed against original
func (s *Session) Start(original, proposed *types.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return &StateError{Op: "start", State: s.state}
	}
	s.changes = NewChangeSet(original, proposed)
	s.transition(Reviewing)
	return nil
}

// Decide accepts or rejects one path. The path must exist in either document.
func (s *Session) Decide(path string, accepted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookup("decide", path)
	if err != nil {
		return err
	}
	s.changes.Decide(p, accepted)
	s.touch()
	return nil
}

// Reset returns one path to pending
func (s *Session) Reset(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookup("reset", path)
	if err != nil {
		return err
	}
	s.changes.Reset(p)
	s.touch()
	return nil
}

// ReplaceProposed installs a regenerated proposal; the original is kept and all decisions are cleared
func (s *Session) ReplaceProposed(proposed *types.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Reviewing {
		return &StateError{Op: "replace proposed document", State: s.state}
	}
	s.changes.Replace(proposed)
	s.touch()
	return nil
}

// Preview resolves the current decisions without ending the session
func (s *Session) Preview() (*types.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Reviewing {
		return nil, &StateError{Op: "preview", State: s.state}
	}
	return s.changes.Resolve(), nil
}

// Keep accepts every undecided path, resolves, and ends the session
func (s *Session) Keep() (*types.Document, error) {
	return s.KeepWith(nil)
}

// KeepWith is Keep with a persist step that runs before the session ends.
// If persist fails the session stays Reviewing with its decisions unchanged.
func (s *Session) KeepWith(persist func(resolved *types.Document) error) (*types.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Reviewing {
		return nil, &StateError{Op: "keep", State: s.state}
	}

	decisions := s.changes.DecisionsCopy()
	for _, p := range s.changes.Pending() {
		decisions[p.String()] = true
	}
	resolved := Resolve(s.changes.Original, s.changes.Proposed, decisions)

	if persist != nil {
		if err := persist(resolved.Clone()); err != nil {
			return nil, err
		}
	}

	s.changes.Decisions = decisions
	s.resolved = resolved
	s.transition(Kept)
	return resolved.Clone(), nil
}

// Undo ends the session with the original document unchanged
func (s *Session) Undo() (*types.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Reviewing {
		return nil, &StateError{Op: "undo", State: s.state}
	}
	s.resolved = s.changes.Original.Clone()
	s.transition(Abandoned)
	return s.resolved.Clone(), nil
}

// Snapshot is a read-only copy of a session
type Snapshot struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"document_id"`
	State      string          `json:"state"`
	Original   *types.Document `json:"original,omitempty"`
	Proposed   *types.Document `json:"proposed,omitempty"`
	Decisions  map[string]bool `json:"decisions"`
	Changed    []string        `json:"changed"`
	Pending    int             `json:"pending"`
	Resolved   *types.Document `json:"resolved,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Snapshot copies the current session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:         s.id,
		DocumentID: s.documentID,
		State:      s.state.String(),
		Decisions:  map[string]bool{},
		Changed:    []string{},
		Resolved:   s.resolved.Clone(),
		UpdatedAt:  s.updatedAt,
	}
	if s.changes == nil {
		return snap
	}
	snap.Original = s.changes.Original.Clone()
	snap.Proposed = s.changes.Proposed.Clone()
	snap.Decisions = s.changes.DecisionsCopy()
	for _, p := range ChangedPaths(s.changes.Original, s.changes.Proposed) {
		snap.Changed = append(snap.Changed, p.String())
	}
	if s.state == Reviewing {
		snap.Pending = len(s.changes.Pending())
	}
	return snap
}

// UpdatedAt returns the time of the last transition or decision
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) lookup(op, path string) (ChangePath, error) {
	if s.state != Reviewing {
		return ChangePath{}, &StateError{Op: op, State: s.state}
	}
	p, err := ParsePath(path)
	if err != nil {
		return ChangePath{}, err
	}
	if !s.changes.Has(p) {
		return ChangePath{}, &PathError{Path: path, Reason: "not present in the original or proposed document"}
	}
	return p, nil
}

func (s *Session) transition(to State) {
	s.state = to
	s.touch()
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}

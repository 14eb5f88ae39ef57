package tailoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/resume-review/internal/review"
	"github.com/jonathan/resume-review/internal/types"
)

var (
	// ErrProfileNotFound is returned when the owner has no profile with the given id
	ErrProfileNotFound = errors.New("profile not found")
	// ErrJobURLUnsupported is returned for a job URL when no job source is configured
	ErrJobURLUnsupported = errors.New("job URLs are not supported here; send the job text instead")
)

// ProfileStore loads and saves profiles. GetProfile returns (nil, nil) when the
// profile does not exist.
type ProfileStore interface {
	GetProfile(ctx context.Context, ownerID, id string) (*types.Profile, error)
	SaveProfile(ctx context.Context, profile *types.Profile) error
}

// Archiver keeps an immutable copy of every committed profile
type Archiver interface {
	Put(ctx context.Context, profile *types.Profile) error
}

// JobSource resolves a job posting URL to its text
type JobSource interface {
	JobText(ctx context.Context, url string) (string, error)
}

// CommitMode selects where Keep writes the resolved document
type CommitMode string

const (
	// CommitReplace overwrites the source profile
	CommitReplace CommitMode = "replace"
	// CommitVariant saves the result as a new profile in the source's folder
	CommitVariant CommitMode = "variant"
)

// ParseCommitMode maps user input to a CommitMode; empty means replace
func ParseCommitMode(s string) (CommitMode, error) {
	switch CommitMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", CommitReplace:
		return CommitReplace, nil
	case CommitVariant:
		return CommitVariant, nil
	default:
		return "", fmt.Errorf("unknown commit mode %q (want replace or variant)", s)
	}
}

// Deps are the collaborators of a Service. Archive and Jobs are optional.
type Deps struct {
	Store     ProfileStore
	Registry  *review.Registry
	Generator *Generator
	Archive   Archiver
	Jobs      JobSource
	Logger    *slog.Logger
}

// Service drives a review from the first proposal to a committed profile
type Service struct {
	store     ProfileStore
	registry  *review.Registry
	generator *Generator
	archive   Archiver
	jobs      JobSource
	logger    *slog.Logger
}

// NewService wires a Service from its collaborators
func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := d.Registry
	if registry == nil {
		registry = review.NewRegistry(nil, review.DefaultLockTTL, logger)
	}
	return &Service{
		store:     d.Store,
		registry:  registry,
		generator: d.Generator,
		archive:   d.Archive,
		jobs:      d.Jobs,
		logger:    logger,
	}
}

// StartReview opens a review of a profile and installs the first proposal.
// If generation fails the review is closed so the profile can be retried.
func (s *Service) StartReview(ctx context.Context, ownerID, profileID string, task Task) (review.Snapshot, error) {
	profile, err := s.profile(ctx, ownerID, profileID)
	if err != nil {
		return review.Snapshot{}, err
	}
	task, err = s.resolveJob(ctx, task)
	if err != nil {
		return review.Snapshot{}, err
	}

	session, err := s.registry.Open(ctx, ownerID, profileID)
	if err != nil {
		return review.Snapshot{}, err
	}
	if err := s.generator.Generate(ctx, session, profile.Document, task); err != nil {
		s.end(ctx, session)
		return review.Snapshot{}, err
	}

	s.logger.Info("review started", "session", session.ID(), "profile", profileID)
	return session.Snapshot(), nil
}

// Regenerate replaces the proposal of an active review; decisions are cleared
func (s *Service) Regenerate(ctx context.Context, ownerID, sessionID string, task Task) (review.Snapshot, error) {
	session, err := s.registry.Get(ownerID, sessionID)
	if err != nil {
		return review.Snapshot{}, err
	}
	original := session.Snapshot().Original
	if original == nil {
		return review.Snapshot{}, &review.StateError{Op: "regenerate", State: session.State()}
	}
	task, err = s.resolveJob(ctx, task)
	if err != nil {
		return review.Snapshot{}, err
	}
	if err := s.generator.Generate(ctx, session, original, task); err != nil {
		return review.Snapshot{}, err
	}
	s.touch(ctx, session)
	return session.Snapshot(), nil
}

// Decide records one accept or reject decision
func (s *Service) Decide(ctx context.Context, ownerID, sessionID, path string, accepted bool) (review.Snapshot, error) {
	session, err := s.registry.Get(ownerID, sessionID)
	if err != nil {
		return review.Snapshot{}, err
	}
	if err := session.Decide(path, accepted); err != nil {
		return review.Snapshot{}, err
	}
	s.touch(ctx, session)
	return session.Snapshot(), nil
}

// Reset returns one path to pending
func (s *Service) Reset(ctx context.Context, ownerID, sessionID, path string) (review.Snapshot, error) {
	session, err := s.registry.Get(ownerID, sessionID)
	if err != nil {
		return review.Snapshot{}, err
	}
	if err := session.Reset(path); err != nil {
		return review.Snapshot{}, err
	}
	s.touch(ctx, session)
	return session.Snapshot(), nil
}

// Snapshot returns the current state of a review
func (s *Service) Snapshot(ownerID, sessionID string) (review.Snapshot, error) {
	session, err := s.registry.Get(ownerID, sessionID)
	if err != nil {
		return review.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Preview resolves the current decisions without committing
func (s *Service) Preview(ownerID, sessionID string) (*types.Document, error) {
	session, err := s.registry.Get(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Preview()
}

// Keep commits the review. Undecided paths are accepted, the resolved document
// is saved according to mode, and the review ends. A failed save leaves the
// review open.
func (s *Service) Keep(ctx context.Context, ownerID, sessionID string, mode CommitMode, name string) (*types.Profile, error) {
	session, err := s.registry.Get(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	source, err := s.profile(ctx, ownerID, session.DocumentID())
	if err != nil {
		return nil, err
	}

	var saved *types.Profile
	_, err = session.KeepWith(func(resolved *types.Document) error {
		saved = commitTarget(source, resolved, mode, name)
		if err := s.store.SaveProfile(ctx, saved); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.archiveCopy(ctx, saved)
	s.end(ctx, session)
	s.logger.Info("review kept", "session", sessionID, "profile", saved.ID, "mode", string(mode))
	return saved, nil
}

// Undo ends the review and leaves the stored profile unchanged
func (s *Service) Undo(ctx context.Context, ownerID, sessionID string) (*types.Document, error) {
	session, err := s.registry.Get(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	original, err := session.Undo()
	if err != nil {
		return nil, err
	}
	s.end(ctx, session)
	s.logger.Info("review abandoned", "session", sessionID)
	return original, nil
}

// MatchReport scores a stored profile against a job
func (s *Service) MatchReport(ctx context.Context, ownerID, profileID string, task Task) (*types.MatchReport, error) {
	profile, err := s.profile(ctx, ownerID, profileID)
	if err != nil {
		return nil, err
	}
	task, err = s.resolveJob(ctx, task)
	if err != nil {
		return nil, err
	}
	return s.generator.MatchReport(ctx, profile.Document, task)
}

// ActiveReviews reports how many reviews are open in this process
func (s *Service) ActiveReviews() int {
	return s.registry.Active()
}

func (s *Service) profile(ctx context.Context, ownerID, id string) (*types.Profile, error) {
	profile, err := s.store.GetProfile(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil || profile.Document == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

func (s *Service) resolveJob(ctx context.Context, task Task) (Task, error) {
	if task.JobURL == "" || strings.TrimSpace(task.JobText) != "" {
		return task, nil
	}
	if s.jobs == nil {
		return task, ErrJobURLUnsupported
	}
	text, err := s.jobs.JobText(ctx, task.JobURL)
	if err != nil {
		return task, err
	}
	task.JobText = text
	return task, nil
}

func (s *Service) touch(ctx context.Context, session *review.Session) {
	if err := s.registry.Touch(ctx, session.ID()); err != nil {
		s.logger.Warn("failed to refresh review lock", "session", session.ID(), "error", err)
	}
}

func (s *Service) end(ctx context.Context, session *review.Session) {
	s.registry.Close(ctx, session.ID())
	s.generator.Forget(session.ID())
}

func (s *Service) archiveCopy(ctx context.Context, profile *types.Profile) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Put(ctx, profile); err != nil {
		s.logger.Warn("failed to archive profile", "profile", profile.ID, "error", err)
	}
}

func commitTarget(source *types.Profile, resolved *types.Document, mode CommitMode, name string) *types.Profile {
	if mode == CommitVariant {
		return types.VariantOf(source, name, resolved)
	}
	updated := *source
	updated.Document = resolved
	updated.Document.ID = source.ID
	if name != "" {
		updated.Name = name
	}
	return &updated
}

package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonathan/resume-review/internal/lock"
)

// DefaultLockTTL bounds how long an untouched review keeps its document locked
const DefaultLockTTL = 30 * time.Minute

type registered struct {
	session *Session
	ownerID string
	token   string
}

// Registry tracks active sessions and allows at most one per document.
// The document lock is taken through a lock.Locker so replicas sharing a
// Redis instance also see each other's reviews.
type Registry struct {
	mu         sync.Mutex
	sessions   map[string]*registered // by session id
	byDocument map[string]string      // document id -> session id
	locker     lock.Locker
	ttl        time.Duration
	logger     *slog.Logger
}

// NewRegistry creates a registry. A nil locker uses an in-process lock.
func NewRegistry(locker lock.Locker, ttl time.Duration, logger *slog.Logger) *Registry {
	if locker == nil {
		locker = lock.NewMemory()
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions:   make(map[string]*registered),
		byDocument: make(map[string]string),
		locker:     locker,
		ttl:        ttl,
		logger:     logger,
	}
}

// Open creates an Idle session for documentID owned by ownerID.
// Returns ErrReviewActive if the document is already under review.
func (r *Registry) Open(ctx context.Context, ownerID, documentID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byDocument[documentID]; ok {
		if existing := r.sessions[id]; existing != nil && !r.expired(existing.session) {
			return nil, ErrReviewActive
		}
		r.removeLocked(ctx, id)
	}

	token, err := r.locker.Acquire(ctx, documentID, r.ttl)
	if errors.Is(err, lock.ErrLocked) {
		return nil, ErrReviewActive
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock document %s: %w", documentID, err)
	}

	session := NewSession(documentID)
	r.sessions[session.ID()] = &registered{session: session, ownerID: ownerID, token: token}
	r.byDocument[documentID] = session.ID()
	r.logger.Debug("review opened", "session", session.ID(), "document", documentID)
	return session, nil
}

// Get returns the session with id if ownerID owns it
func (r *Registry) Get(ownerID, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.sessions[id]
	if !ok || reg.ownerID != ownerID {
		return nil, ErrSessionNotFound
	}
	return reg.session, nil
}

// Touch extends the document lock of an active session
func (r *Registry) Touch(ctx context.Context, id string) error {
	r.mu.Lock()
	reg, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if err := r.locker.Refresh(ctx, reg.session.DocumentID(), reg.token, r.ttl); err != nil {
		return fmt.Errorf("failed to refresh review lock: %w", err)
	}
	return nil
}

// Close forgets a session and releases its document
func (r *Registry) Close(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(ctx, id)
}

// Active returns the number of registered sessions
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// expired sessions have ended or sat untouched for longer than the lock TTL
func (r *Registry) expired(s *Session) bool {
	return s.State().Terminated() || time.Since(s.UpdatedAt()) > r.ttl
}

func (r *Registry) removeLocked(ctx context.Context, id string) {
	reg, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	if r.byDocument[reg.session.DocumentID()] == id {
		delete(r.byDocument, reg.session.DocumentID())
	}
	if err := r.locker.Release(ctx, reg.session.DocumentID(), reg.token); err != nil && !errors.Is(err, lock.ErrNotHeld) {
		r.logger.Warn("failed to release review lock", "session", id, "error", err)
	}
	r.logger.Debug("review closed", "session", id, "state", reg.session.State().String())
}

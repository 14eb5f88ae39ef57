// Package lock provides advisory, expiring locks keyed by document id.
// A review session holds the lock for its document so that only one review
// is active per document, even across server replicas.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrLocked is returned when another holder owns the key
	ErrLocked = errors.New("lock is held by another owner")
	// ErrNotHeld is returned when refreshing or releasing a lock the caller no longer owns
	ErrNotHeld = errors.New("lock is not held")
)

// Locker acquires and releases expiring locks. Tokens identify the holder.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Refresh(ctx context.Context, key, token string, ttl time.Duration) error
	Release(ctx context.Context, key, token string) error
}

func newToken() string {
	return uuid.NewString()
}

package lock

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	token     string
	expiresAt time.Time
}

// Memory is an in-process Locker
type Memory struct {
	mu    sync.Mutex
	locks map[string]entry
	now   func() time.Time
}

// NewMemory creates an in-process Locker
func NewMemory() *Memory {
	return &Memory{locks: make(map[string]entry), now: time.Now}
}

// Acquire takes the lock for key if it is free or expired
func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.locks[key]; ok && m.now().Before(e.expiresAt) {
		return "", ErrLocked
	}
	token := newToken()
	m.locks[key] = entry{token: token, expiresAt: m.now().Add(ttl)}
	return token, nil
}

// Refresh extends the lock if token still holds it
func (m *Memory) Refresh(_ context.Context, key, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[key]
	if !ok || e.token != token || !m.now().Before(e.expiresAt) {
		return ErrNotHeld
	}
	e.expiresAt = m.now().Add(ttl)
	m.locks[key] = e
	return nil
}

// Release frees the lock if token still holds it. Releasing an expired or
// foreign lock returns ErrNotHeld and leaves the current holder untouched.
func (m *Memory) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[key]
	if !ok || e.token != token {
		return ErrNotHeld
	}
	delete(m.locks, key)
	return nil
}

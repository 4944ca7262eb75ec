package repository

import (
	"context"
	"sync"
	"time"
)

type expiring struct {
	value     string
	count     int
	expiresAt time.Time
}

// MemoryEphemeral keeps reset tokens and login counters in process memory.
// It serves single-instance deployments that run without Redis; state is
// lost on restart.
type MemoryEphemeral struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]expiring
}

// NewMemoryEphemeral returns an empty store using the wall clock.
func NewMemoryEphemeral() *MemoryEphemeral {
	return &MemoryEphemeral{now: time.Now, entries: make(map[string]expiring)}
}

// WithClock overrides the time source, for tests.
func (m *MemoryEphemeral) WithClock(now func() time.Time) *MemoryEphemeral {
	m.now = now
	return m
}

// lookup returns the live entry for key, dropping it if expired.
// Callers hold mu.
func (m *MemoryEphemeral) lookup(key string) (expiring, bool) {
	e, ok := m.entries[key]
	if !ok {
		return expiring{}, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return expiring{}, false
	}
	return e, true
}

// ResetTokens exposes the store as a ResetTokenRepository.
func (m *MemoryEphemeral) ResetTokens() ResetTokenRepository {
	return memoryResetTokens{m}
}

// LoginAttempts exposes the store as a LoginAttemptRepository.
func (m *MemoryEphemeral) LoginAttempts() LoginAttemptRepository {
	return memoryLoginAttempts{m}
}

type memoryResetTokens struct {
	m *MemoryEphemeral
}

func (r memoryResetTokens) Save(_ context.Context, digest, accountID string, ttl time.Duration) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.entries[resetKey(digest)] = expiring{value: accountID, expiresAt: r.m.now().Add(ttl)}
	return nil
}

func (r memoryResetTokens) Consume(_ context.Context, digest string) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := resetKey(digest)
	e, ok := r.m.lookup(key)
	if !ok {
		return "", ErrResetTokenNotFound
	}
	delete(r.m.entries, key)
	return e.value, nil
}

type memoryLoginAttempts struct {
	m *MemoryEphemeral
}

func (r memoryLoginAttempts) Failures(_ context.Context, key string) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, _ := r.m.lookup(loginFailKey(key))
	return e.count, nil
}

func (r memoryLoginAttempts) RecordFailure(_ context.Context, key string, window time.Duration) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	k := loginFailKey(key)
	e, ok := r.m.lookup(k)
	if !ok {
		e = expiring{expiresAt: r.m.now().Add(window)}
	}
	e.count++
	r.m.entries[k] = e
	return e.count, nil
}

func (r memoryLoginAttempts) Reset(_ context.Context, key string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.entries, loginFailKey(key))
	return nil
}

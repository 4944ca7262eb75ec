package auth

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

// ErrPasswordMismatch is returned when a password does not match its hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// DefaultBcryptCost matches the work factor existing hashes were created with.
const DefaultBcryptCost = 10

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordHasher runs bcrypt on a bounded pool so a burst of logins
// cannot occupy every CPU at once.
type PasswordHasher struct {
	cost    int
	slots   *semaphore.Weighted
	observe func(time.Duration)
}

// NewPasswordHasher builds a hasher allowing at most workers concurrent bcrypt calls.
func NewPasswordHasher(cost, workers int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &PasswordHasher{cost: cost, slots: semaphore.NewWeighted(int64(workers))}
}

// WithObserver sets a callback receiving the duration of each call, pool wait included.
func (h *PasswordHasher) WithObserver(fn func(time.Duration)) *PasswordHasher {
	h.observe = fn
	return h
}

// CheckPasswordLength rejects passwords bcrypt cannot hash.
func CheckPasswordLength(password string) error {
	if len(password) > MaxPasswordBytes {
		return apperrors.NewValidationError("Password must be at most 72 bytes long", nil)
	}
	return nil
}

// Hash hashes a plaintext password with the configured cost. Passwords
// longer than MaxPasswordBytes fail validation before a slot is taken.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := CheckPasswordLength(password); err != nil {
		return "", err
	}
	var hashed []byte
	err := h.run(ctx, func() error {
		var err error
		hashed, err = bcrypt.GenerateFromPassword([]byte(password), h.cost)
		return err
	})
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare verifies a password against its hash. It returns ErrPasswordMismatch
// for a wrong password and other errors for malformed hashes or cancellation.
func (h *PasswordHasher) Compare(ctx context.Context, hashed, plain string) error {
	return h.run(ctx, func() error {
		err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	})
}

// Verify reports whether plain matches hashed.
func (h *PasswordHasher) Verify(ctx context.Context, hashed, plain string) (bool, error) {
	err := h.Compare(ctx, hashed, plain)
	if errors.Is(err, ErrPasswordMismatch) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (h *PasswordHasher) run(ctx context.Context, fn func() error) error {
	start := time.Now()
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.slots.Release(1)
	err := fn()
	if h.observe != nil {
		h.observe(time.Since(start))
	}
	return err
}

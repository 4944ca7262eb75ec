package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/angocine/internal/auth"
	"github.com/spec-kit/angocine/internal/config"
	"github.com/spec-kit/angocine/internal/events"
	"github.com/spec-kit/angocine/internal/persistence"
	"github.com/spec-kit/angocine/internal/repository"
)

type capturedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturedEvents) handle(_ context.Context, e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *capturedEvents) ofType(t events.EventType) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	db       *sql.DB
	store    repository.Store
	tokens   *auth.TokenManager
	hasher   *auth.PasswordHasher
	events   *capturedEvents
	auth     *AuthService
	accounts *AccountService
	admin    *AdminService
	activity *ActivityService
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:        "test-access-secret",
		RefreshSecret:    "test-refresh-secret",
		AccessTokenTTL:   24 * time.Hour,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		PasswordResetTTL: 30 * time.Minute,
		BcryptCost:       bcrypt.MinCost,
		HashWorkers:      2,
		LoginMaxAttempts: 3,
		LoginLockout:     15 * time.Minute,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	sqlite, err := persistence.NewSQLite(ctx, config.SQLiteConfig{Path: persistence.MemoryPath}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(sqlite.Close)
	require.NoError(t, persistence.RunMigrations(ctx, sqlite.DB, goose.DialectSQLite3, zap.NewNop()))

	cfg := testAuthConfig()
	store := repository.NewSQLiteStore(sqlite.DB)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost, cfg.HashWorkers)
	tokens := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshSecret: cfg.RefreshSecret,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})

	captured := &capturedEvents{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range NotificationEvents {
		dispatcher.Subscribe(et, captured.handle)
	}

	ephemeral := repository.NewMemoryEphemeral()
	authSvc := NewAuthService(cfg, AuthDependencies{
		Store:         store,
		Hasher:        hasher,
		Tokens:        tokens,
		ResetTokens:   ephemeral.ResetTokens(),
		LoginAttempts: ephemeral.LoginAttempts(),
		Dispatcher:    dispatcher,
	})
	selector := NewProfileSelector(store)

	return &testEnv{
		db:       sqlite.DB,
		store:    store,
		tokens:   tokens,
		hasher:   hasher,
		events:   captured,
		auth:     authSvc,
		accounts: NewAccountService(store, hasher),
		admin:    NewAdminService(store, dispatcher, zap.NewNop()),
		activity: NewActivityService(selector, store),
	}
}

func (e *testEnv) register(t *testing.T, username string) RegisterInput {
	t.Helper()
	in := RegisterInput{Username: username, Email: username + "@angocine.test", Password: "secret1"}
	_, err := e.auth.Register(context.Background(), in)
	require.NoError(t, err)
	return in
}

func (e *testEnv) insertMovie(t *testing.T, title string, minutes int) string {
	t.Helper()
	id := uuid.NewString()
	_, err := e.db.Exec(`INSERT INTO movies (id, title, duration) VALUES (?, ?, ?)`, id, title, minutes)
	require.NoError(t, err)
	return id
}

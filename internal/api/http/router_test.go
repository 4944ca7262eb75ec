package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/angocine/internal/api/http/handlers"
	"github.com/spec-kit/angocine/internal/auth"
	"github.com/spec-kit/angocine/internal/config"
	"github.com/spec-kit/angocine/internal/events"
	"github.com/spec-kit/angocine/internal/observability"
	"github.com/spec-kit/angocine/internal/persistence"
	"github.com/spec-kit/angocine/internal/repository"
	"github.com/spec-kit/angocine/internal/service"
)

type testServer struct {
	app  *fiber.App
	db   *sql.DB
	auth *service.AuthService
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	sqlite, err := persistence.NewSQLite(ctx, config.SQLiteConfig{Path: persistence.MemoryPath}, logger)
	require.NoError(t, err)
	t.Cleanup(sqlite.Close)
	require.NoError(t, persistence.RunMigrations(ctx, sqlite.DB, goose.DialectSQLite3, logger))

	cfg := config.AuthConfig{
		JWTSecret:        "http-access-secret",
		RefreshSecret:    "http-refresh-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
		PasswordResetTTL: 30 * time.Minute,
		BcryptCost:       bcrypt.MinCost,
		HashWorkers:      2,
		LoginMaxAttempts: 5,
		LoginLockout:     time.Minute,
	}
	metrics := observability.NewMetrics()
	store := repository.NewSQLiteStore(sqlite.DB)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost, cfg.HashWorkers)
	tokens := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshSecret: cfg.RefreshSecret,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	dispatcher := events.NewInMemoryDispatcher()
	ephemeral := repository.NewMemoryEphemeral()

	authSvc := service.NewAuthService(cfg, service.AuthDependencies{
		Store:         store,
		Hasher:        hasher,
		Tokens:        tokens,
		ResetTokens:   ephemeral.ResetTokens(),
		LoginAttempts: ephemeral.LoginAttempts(),
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})
	selector := service.NewProfileSelector(store)

	app := NewApp("angocine-test", logger, metrics, 5*time.Second, RouteConfig{
		Health:         handlers.NewHealthHandler("angocine-test", "test", map[string]handlers.Pinger{"store": store}),
		Auth:           handlers.NewAuthHandler(authSvc),
		Accounts:       handlers.NewAccountHandler(service.NewAccountService(store, hasher)),
		Activity:       handlers.NewActivityHandler(service.NewActivityService(selector, store)),
		Admin:          handlers.NewAdminHandler(service.NewAdminService(store, dispatcher, logger)),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
		AuthRateLimit:  rateLimit,
		AuthRateWindow: time.Minute,
	})
	return &testServer{app: app, db: sqlite.DB, auth: authSvc}
}

type envelope struct {
	Error   bool            `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

type authData struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		Profiles []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"profiles"`
	} `json:"user"`
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (s *testServer) registerAndLogin(t *testing.T, username string) authData {
	t.Helper()
	email := username + "@angocine.test"
	status, _ := s.do(t, nethttp.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": username, "email": email, "password": "secret1",
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, env := s.do(t, nethttp.MethodPost, "/api/auth/login", "", fiber.Map{"email": email, "password": "secret1"})
	require.Equal(t, fiber.StatusOK, status)
	return decode[authData](t, env)
}

func (s *testServer) loginAdmin(t *testing.T) authData {
	t.Helper()
	_, err := s.auth.SeedAdmin(context.Background(), "root", "root@angocine.test", "rootpass")
	require.NoError(t, err)
	status, env := s.do(t, nethttp.MethodPost, "/api/auth/login", "", fiber.Map{"email": "root@angocine.test", "password": "rootpass"})
	require.Equal(t, fiber.StatusOK, status)
	return decode[authData](t, env)
}

func (s *testServer) insertMovie(t *testing.T, title, genre string, minutes int) string {
	t.Helper()
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO movies (id, title, genre, duration) VALUES (?, ?, ?, ?)`, id, title, genre, minutes)
	require.NoError(t, err)
	return id
}

func TestRegisterAndLoginFlow(t *testing.T) {
	srv := newTestServer(t, 0)

	status, env := srv.do(t, nethttp.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": "ana", "email": "ana@x.ao", "password": "secret1",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.False(t, env.Error)
	registered := decode[authData](t, env)
	assert.NotEmpty(t, registered.Token)
	assert.NotEmpty(t, registered.RefreshToken)
	assert.Equal(t, "ana", registered.User.Username)
	assert.Equal(t, "user", registered.User.Role)

	var profiles int
	require.NoError(t, srv.db.QueryRow(`SELECT COUNT(*) FROM profiles WHERE user_id = ? AND name = 'ana'`, registered.User.ID).Scan(&profiles))
	assert.Equal(t, 1, profiles)

	status, env = srv.do(t, nethttp.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ana@x.ao", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.True(t, env.Error)
	assert.Equal(t, "Invalid email or password", env.Message)

	status, env = srv.do(t, nethttp.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ghost@x.ao", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", env.Message)

	status, env = srv.do(t, nethttp.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ana@x.ao", "password": "secret1"})
	require.Equal(t, fiber.StatusOK, status)
	login := decode[authData](t, env)
	assert.NotEmpty(t, login.Token)
	assert.NotEmpty(t, login.RefreshToken)
	require.Len(t, login.User.Profiles, 1)
	assert.Equal(t, "ana", login.User.Profiles[0].Name)

	status, env = srv.do(t, nethttp.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": "ana2", "email": "ana@x.ao", "password": "secret1",
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Code)
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t, 0)

	status, env := srv.do(t, nethttp.MethodPost, "/api/auth/register", "", fiber.Map{"username": "ana", "email": "ana@x.ao"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Code)

	status, _ = srv.do(t, nethttp.MethodPost, "/api/auth/register", "", fiber.Map{"username": "ana", "email": "nope", "password": "secret1"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestRefreshToken(t *testing.T) {
	srv := newTestServer(t, 0)
	ana := srv.registerAndLogin(t, "ana")

	status, env := srv.do(t, nethttp.MethodPost, "/api/auth/refresh-token", "", fiber.Map{"refreshToken": ana.RefreshToken})
	require.Equal(t, fiber.StatusOK, status)
	refreshed := decode[struct {
		Token string `json:"token"`
	}](t, env)
	assert.NotEmpty(t, refreshed.Token)

	status, env = srv.do(t, nethttp.MethodPost, "/api/auth/refresh-token", "", fiber.Map{"refreshToken": "garbage"})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Invalid refresh token", env.Message)

	status, _ = srv.do(t, nethttp.MethodPost, "/api/auth/refresh-token", "", fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestForgotPasswordAnswersTheSame(t *testing.T) {
	srv := newTestServer(t, 0)
	srv.registerAndLogin(t, "ana")

	knownStatus, known := srv.do(t, nethttp.MethodPost, "/api/auth/forgot-password", "", fiber.Map{"email": "ana@angocine.test"})
	unknownStatus, unknown := srv.do(t, nethttp.MethodPost, "/api/auth/forgot-password", "", fiber.Map{"email": "ghost@angocine.test"})

	assert.Equal(t, fiber.StatusOK, knownStatus)
	assert.Equal(t, knownStatus, unknownStatus)
	assert.Equal(t, known, unknown)
	assert.Equal(t, "If your email is registered, you will receive a password reset link", known.Message)

	status, env := srv.do(t, nethttp.MethodPost, "/api/auth/reset-password", "", fiber.Map{"token": "bogus", "password": "secret2"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid or expired reset token", env.Message)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, 0)

	status, env := srv.do(t, nethttp.MethodGet, "/api/user/profiles", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Access denied. No token provided.", env.Message)

	status, env = srv.do(t, nethttp.MethodGet, "/api/user/profiles", "not.a.jwt", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Invalid token.", env.Message)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	srv := newTestServer(t, 0)
	ana := srv.registerAndLogin(t, "ana")

	status, _ := srv.do(t, nethttp.MethodGet, "/api/admin/users", ana.Token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	_, err := srv.auth.SeedAdmin(context.Background(), "root", "root@angocine.test", "rootpass")
	require.NoError(t, err)
	status, env := srv.do(t, nethttp.MethodPost, "/api/auth/login", "", fiber.Map{"email": "root@angocine.test", "password": "rootpass"})
	require.Equal(t, fiber.StatusOK, status)
	root := decode[authData](t, env)

	status, env = srv.do(t, nethttp.MethodGet, "/api/admin/users?search=ana", root.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	listing := decode[struct {
		Users []struct {
			ID string `json:"id"`
		} `json:"users"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}](t, env)
	assert.Equal(t, 1, listing.Pagination.Total)
	require.Len(t, listing.Users, 1)
	assert.Equal(t, ana.User.ID, listing.Users[0].ID)

	status, env = srv.do(t, nethttp.MethodPut, "/api/admin/users/"+root.User.ID+"/role", root.Token, fiber.Map{"role": "user"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_OPERATION", env.Code)

	status, _ = srv.do(t, nethttp.MethodPut, "/api/admin/users/"+ana.User.ID+"/role", root.Token, fiber.Map{"role": "owner"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = srv.do(t, nethttp.MethodDelete, "/api/admin/users/"+ana.User.ID, root.Token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = srv.do(t, nethttp.MethodDelete, "/api/admin/users/"+ana.User.ID, root.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestProfileRoutesAreOwnershipScoped(t *testing.T) {
	srv := newTestServer(t, 0)
	ana := srv.registerAndLogin(t, "ana")
	rui := srv.registerAndLogin(t, "rui")
	ruiProfile := rui.User.Profiles[0].ID

	status, env := srv.do(t, nethttp.MethodGet, "/api/user/history/"+ruiProfile, ana.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Profile not found", env.Message)

	status, _ = srv.do(t, nethttp.MethodGet, "/api/analytics/profiles/"+ruiProfile+"/events", ana.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = srv.do(t, nethttp.MethodPut, "/api/user/profiles/"+ruiProfile, ana.Token, fiber.Map{"name": "stolen"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = srv.do(t, nethttp.MethodDelete, "/api/user/profiles/"+ruiProfile, ana.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = srv.do(t, nethttp.MethodGet, "/api/user/history/"+ana.User.Profiles[0].ID, ana.Token, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestProfileLimit(t *testing.T) {
	srv := newTestServer(t, 0)
	ana := srv.registerAndLogin(t, "ana")

	for i := 0; i < 4; i++ {
		status, _ := srv.do(t, nethttp.MethodPost, "/api/user/profiles", ana.Token, fiber.Map{"name": fmt.Sprintf("p%d", i)})
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, env := srv.do(t, nethttp.MethodPost, "/api/user/profiles", ana.Token, fiber.Map{"name": "sixth"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "LIMIT_EXCEEDED", env.Code)
	assert.Equal(t, "Maximum profile limit reached (5)", env.Message)

	status, env = srv.do(t, nethttp.MethodGet, "/api/user/profiles", ana.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]json.RawMessage](t, env), 5)
}

func TestAccountSelfService(t *testing.T) {
	srv := newTestServer(t, 0)
	ana := srv.registerAndLogin(t, "ana")

	status, env := srv.do(t, nethttp.MethodGet, "/api/user/profile", ana.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	details := decode[struct {
		Username string            `json:"username"`
		Profiles []json.RawMessage `json:"profiles"`
		Stats    struct {
			HistoryCount int `json:"history_count"`
		} `json:"stats"`
	}](t, env)
	assert.Equal(t, "ana", details.Username)
	assert.Len(t, details.Profiles, 1)

	status, env = srv.do(t, nethttp.MethodPut, "/api/user/profile", ana.Token, fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "No updates provided", env.Message)

	status, _ = srv.do(t, nethttp.MethodPut, "/api/user/profile", ana.Token, fiber.Map{
		"current_password": "secret1", "new_password": "secret2",
	})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = srv.do(t, nethttp.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ana@angocine.test", "password": "secret2"})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRecordWatchHistory(t *testing.T) {
	srv := newTestServer(t, 0)
	ana := srv.registerAndLogin(t, "ana")
	profile := ana.User.Profiles[0].ID

	movie := uuid.NewString()
	_, err := srv.db.Exec(`INSERT INTO movies (id, title, duration) VALUES (?, ?, ?)`, movie, "Kuduro", 100)
	require.NoError(t, err)

	status, env := srv.do(t, nethttp.MethodPost, "/api/user/history/"+profile+"/"+movie, ana.Token, fiber.Map{"watch_time": 3000})
	require.Equal(t, fiber.StatusOK, status)
	entry := decode[struct {
		Progress int `json:"progress"`
	}](t, env)
	assert.Equal(t, 50, entry.Progress)

	status, _ = srv.do(t, nethttp.MethodPost, "/api/user/history/"+profile+"/"+uuid.NewString(), ana.Token, fiber.Map{"watch_time": 10})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, env = srv.do(t, nethttp.MethodGet, "/api/analytics/profiles/"+profile+"/events", ana.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]json.RawMessage](t, env), 1)
}

func TestAuthRateLimit(t *testing.T) {
	srv := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		status, _ := srv.do(t, nethttp.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ghost@x.ao", "password": "nope"})
		require.Equal(t, fiber.StatusUnauthorized, status)
	}
	status, env := srv.do(t, nethttp.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ghost@x.ao", "password": "nope"})
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "TOO_MANY_REQUESTS", env.Code)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t, 0)

	req := httptest.NewRequest(nethttp.MethodGet, "/health", nil)
	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "AngoCine API is running", body["message"])

	resp, err = srv.app.Test(httptest.NewRequest(nethttp.MethodGet, "/health/ready", nil), -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	status, env := srv.do(t, nethttp.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.True(t, env.Error)

	resp, err = srv.app.Test(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Contains(t, string(raw), "http_requests_total")
}

func TestInputLimitsAreValidationErrors(t *testing.T) {
	srv := newTestServer(t, 0)
	long := strings.Repeat("p", 80)

	status, env := srv.do(t, nethttp.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": "  ab  ", "email": "ab@angocine.test", "password": "secret1",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Code)

	status, env = srv.do(t, nethttp.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": "ana", "email": "ana@angocine.test", "password": long,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Code)

	status, _ = srv.do(t, nethttp.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": "ana", "email": strings.Repeat("a", 100) + "@x.ao", "password": "secret1",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	ana := srv.registerAndLogin(t, "ana")

	status, env = srv.do(t, nethttp.MethodPut, "/api/user/profile", ana.Token, fiber.Map{"username": "    "})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Code)

	status, env = srv.do(t, nethttp.MethodPut, "/api/user/profile", ana.Token, fiber.Map{
		"current_password": "secret1", "new_password": long,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Code)

	status, _ = srv.do(t, nethttp.MethodPost, "/api/user/profiles", ana.Token, fiber.Map{
		"name": "Kids", "avatar": "https://cdn.angocine.test/" + strings.Repeat("a", 240),
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	movie := srv.insertMovie(t, "Kuduro", "Drama", 100)
	status, _ = srv.do(t, nethttp.MethodPost, "/api/user/history/"+ana.User.Profiles[0].ID+"/"+movie, ana.Token, fiber.Map{
		"watch_time": int64(1) << 40,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env = srv.do(t, nethttp.MethodGet, "/api/user/profile", ana.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ana", decode[struct {
		Username string `json:"username"`
	}](t, env).Username)
}

func TestAnalyticsEventsAndActivity(t *testing.T) {
	srv := newTestServer(t, 0)
	ana := srv.registerAndLogin(t, "ana")
	profile := ana.User.Profiles[0].ID
	movie := srv.insertMovie(t, "Kuduro", "Drama,Comedy", 100)

	status, env := srv.do(t, nethttp.MethodPost, "/api/analytics/event", ana.Token, fiber.Map{
		"profile_id": profile, "movie_id": movie, "event_type": "movie_started",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "Event recorded successfully", env.Message)

	status, _ = srv.do(t, nethttp.MethodPost, "/api/analytics/event", ana.Token, fiber.Map{
		"profile_id": profile, "event_type": "search", "event_data": fiber.Map{"query": "semba"},
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, env = srv.do(t, nethttp.MethodPost, "/api/analytics/event", ana.Token, fiber.Map{
		"profile_id": profile, "movie_id": uuid.NewString(), "event_type": "movie_started",
	})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Movie not found", env.Message)

	status, _ = srv.do(t, nethttp.MethodPost, "/api/analytics/event", ana.Token, fiber.Map{"profile_id": profile})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env = srv.do(t, nethttp.MethodGet, "/api/analytics/activity/"+profile, ana.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	feed := decode[struct {
		Activity []struct {
			Description string `json:"description"`
			EventType   string `json:"event_type"`
			Movie       *struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"movie"`
		} `json:"activity"`
	}](t, env)
	require.Len(t, feed.Activity, 2)
	assert.Equal(t, `Searched for "semba"`, feed.Activity[0].Description)
	assert.Nil(t, feed.Activity[0].Movie)
	assert.Equal(t, `Started watching "Kuduro"`, feed.Activity[1].Description)
	require.NotNil(t, feed.Activity[1].Movie)
	assert.Equal(t, movie, feed.Activity[1].Movie.ID)

	status, _ = srv.do(t, nethttp.MethodPost, "/api/user/history/"+profile+"/"+movie, ana.Token, fiber.Map{"watch_time": 5400})
	require.Equal(t, fiber.StatusOK, status)

	status, env = srv.do(t, nethttp.MethodGet, "/api/analytics/watch-time/"+profile, ana.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	stats := decode[struct {
		Total struct {
			Seconds   int64  `json:"seconds"`
			Hours     int64  `json:"hours"`
			Minutes   int64  `json:"minutes"`
			Formatted string `json:"formatted"`
		} `json:"total_watch_time"`
		ByGenre []struct {
			Genre        string `json:"genre"`
			TotalSeconds int64  `json:"total_seconds"`
			Percentage   int    `json:"percentage"`
		} `json:"watch_time_by_genre"`
	}](t, env)
	assert.Equal(t, int64(5400), stats.Total.Seconds)
	assert.Equal(t, "1h 30m", stats.Total.Formatted)
	require.Len(t, stats.ByGenre, 2)
	assert.Equal(t, int64(2700), stats.ByGenre[0].TotalSeconds)
	assert.Equal(t, 50, stats.ByGenre[0].Percentage)
}

func TestAnalyticsRoutesAreOwnershipScoped(t *testing.T) {
	srv := newTestServer(t, 0)
	ana := srv.registerAndLogin(t, "ana")
	rui := srv.registerAndLogin(t, "rui")
	ruiProfile := rui.User.Profiles[0].ID

	status, env := srv.do(t, nethttp.MethodPost, "/api/analytics/event", ana.Token, fiber.Map{
		"profile_id": ruiProfile, "event_type": "search",
	})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Profile not found", env.Message)

	status, _ = srv.do(t, nethttp.MethodGet, "/api/analytics/activity/"+ruiProfile, ana.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = srv.do(t, nethttp.MethodGet, "/api/analytics/watch-time/"+ruiProfile, ana.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = srv.do(t, nethttp.MethodGet, "/api/analytics/activity/"+ruiProfile, "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, env = srv.do(t, nethttp.MethodGet, "/api/analytics/activity/"+ruiProfile, rui.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"activity":[]}`, string(env.Data))
}

func TestAdminUserDetailsAndRoleFilter(t *testing.T) {
	srv := newTestServer(t, 0)
	ana := srv.registerAndLogin(t, "ana")
	root := srv.loginAdmin(t)
	movie := srv.insertMovie(t, "Kuduro", "Drama", 100)
	_, err := srv.db.Exec(`INSERT INTO reviews (id, user_id, movie_id, rating, comment) VALUES (?, ?, ?, 5, 'top')`,
		uuid.NewString(), ana.User.ID, movie)
	require.NoError(t, err)

	status, _ := srv.do(t, nethttp.MethodGet, "/api/admin/users/"+root.User.ID, ana.Token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env := srv.do(t, nethttp.MethodGet, "/api/admin/users/"+ana.User.ID, root.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	details := decode[struct {
		User struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
		Profiles []json.RawMessage `json:"profiles"`
		Reviews  []struct {
			Rating     int    `json:"rating"`
			MovieTitle string `json:"movie_title"`
		} `json:"reviews"`
		Stats struct {
			ProfileCount   int `json:"profile_count"`
			ReviewCount    int `json:"review_count"`
			WatchlistCount int `json:"watchlist_count"`
		} `json:"stats"`
	}](t, env)
	assert.Equal(t, ana.User.ID, details.User.ID)
	assert.Len(t, details.Profiles, 1)
	require.Len(t, details.Reviews, 1)
	assert.Equal(t, "Kuduro", details.Reviews[0].MovieTitle)
	assert.Equal(t, 1, details.Stats.ProfileCount)
	assert.Equal(t, 1, details.Stats.ReviewCount)
	assert.Zero(t, details.Stats.WatchlistCount)

	status, env = srv.do(t, nethttp.MethodGet, "/api/admin/users/"+uuid.NewString(), root.Token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "User not found", env.Message)

	status, env = srv.do(t, nethttp.MethodGet, "/api/admin/users?role=admin", root.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	admins := decode[struct {
		Users []struct {
			ID string `json:"id"`
		} `json:"users"`
	}](t, env)
	require.Len(t, admins.Users, 1)
	assert.Equal(t, root.User.ID, admins.Users[0].ID)

	status, _ = srv.do(t, nethttp.MethodGet, "/api/admin/users?role=owner", root.Token, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/angocine/internal/auth"
	"github.com/spec-kit/angocine/internal/config"
	"github.com/spec-kit/angocine/internal/domain"
	"github.com/spec-kit/angocine/internal/events"
	"github.com/spec-kit/angocine/internal/observability"
	"github.com/spec-kit/angocine/internal/repository"
	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgInvalidRefresh     = "Invalid refresh token"
	msgInvalidReset       = "Invalid or expired reset token"
	msgTooManyAttempts    = "Too many failed login attempts. Please try again later."
	msgUsernameLength     = "Username must be between 3 and 50 characters"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
)

// staticFallbackHash is a valid cost-10 bcrypt hash used when a fresh one
// cannot be computed.
const staticFallbackHash = "$2a$10$XOPbrlUPQdwdJUpSrIF6X.LbE14qsMmKGq4V9//8iBFZPxFJkjPJO"

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthService coordinates registration, login and credential recovery.
type AuthService struct {
	store      repository.CredentialStore
	hasher     *auth.PasswordHasher
	tokens     *auth.TokenManager
	resets     repository.ResetTokenRepository
	attempts   repository.LoginAttemptRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.AuthConfig
	now        func() time.Time

	dummyMu   sync.Mutex
	dummyHash string
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Store         repository.CredentialStore
	Hasher        *auth.PasswordHasher
	Tokens        *auth.TokenManager
	ResetTokens   repository.ResetTokenRepository
	LoginAttempts repository.LoginAttemptRepository
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:      deps.Store,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		resets:     deps.ResetTokens,
		attempts:   deps.LoginAttempts,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUsername trims a username and checks its length in characters.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return "", apperrors.NewValidationError(msgUsernameLength, map[string]any{
			"fields": map[string]any{"username": msgUsernameLength},
		})
	}
	return username, nil
}

// Register creates an account with role user and one default profile named
// after the username, then signs a token pair for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Session, error) {
	username := strings.TrimSpace(in.Username)
	email := NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, apperrors.NewValidationError("Please provide username, email and password", nil)
	}
	username, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	profile := &domain.Profile{
		Name:   username,
		Avatar: domain.DefaultAvatar(email),
	}
	if err := s.store.CreateAccount(ctx, account, profile); err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssueTokenPair(account)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.metrics.RecordAuth(observability.AuthRegister)
	s.publish(ctx, events.New(events.EventAccountRegistered, account.ID, events.AccountRegisteredPayload{
		Username: account.Username,
		Email:    account.Email,
	}))

	return &domain.Session{Tokens: pair, Account: account, Profiles: []domain.Profile{*profile}}, nil
}

// Login authenticates by email and password. Unknown email and wrong
// password are indistinguishable to the caller, in message and in timing.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("Please provide email and password", nil)
	}

	if s.lockedOut(ctx, email) {
		s.metrics.RecordAuth(observability.AuthLoginLocked)
		return nil, apperrors.NewTooManyRequests(msgTooManyAttempts)
	}

	account, err := s.store.FindAccountByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	hashed := s.fallbackHash(ctx)
	if account != nil {
		hashed = account.PasswordHash
	}
	ok, err := s.hasher.Verify(ctx, hashed, password)
	if err != nil && (account != nil || ctx.Err() != nil) {
		return nil, err
	}
	if account == nil || !ok {
		s.recordFailure(ctx, email)
		s.metrics.RecordAuth(observability.AuthLoginFailure)
		return nil, apperrors.NewUnauthorized(msgInvalidCredentials)
	}

	s.clearFailures(ctx, email)

	profiles, err := s.store.ListProfiles(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	pair, err := s.tokens.IssueTokenPair(account)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.metrics.RecordAuth(observability.AuthLoginSuccess)
	return &domain.Session{Tokens: pair, Account: account, Profiles: profiles}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// account is re-read so the new token carries the current role.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", apperrors.NewValidationError("Refresh token is required", nil)
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.metrics.RecordAuth(observability.AuthRefreshFailure)
		return "", apperrors.NewForbidden(msgInvalidRefresh)
	}

	account, err := s.store.FindAccountByID(ctx, claims.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.metrics.RecordAuth(observability.AuthRefreshFailure)
		return "", apperrors.NewForbidden(msgInvalidRefresh)
	}
	if err != nil {
		return "", err
	}

	token, err := s.tokens.IssueAccessToken(account)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	s.metrics.RecordAuth(observability.AuthRefresh)
	return token, nil
}

// ForgotPassword issues a single-use reset token when the email belongs to
// an account. It reports success either way and never surfaces storage
// failures, so the response does not reveal which emails are registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return apperrors.NewValidationError("Please provide an email address", nil)
	}

	account, err := s.store.FindAccountByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Error("forgot password lookup failed", zap.Error(err))
		return nil
	}

	token := rand.Text()
	if err := s.resets.Save(ctx, digestToken(token), account.ID, s.cfg.PasswordResetTTL); err != nil {
		s.logger.Error("store reset token", zap.String("account_id", account.ID), zap.Error(err))
		return nil
	}

	s.metrics.RecordAuth(observability.AuthResetRequested)
	s.publish(ctx, events.New(events.EventPasswordResetRequested, account.ID, events.PasswordResetRequestedPayload{
		Email:     account.Email,
		Token:     token,
		ExpiresAt: s.now().Add(s.cfg.PasswordResetTTL).UTC(),
	}))
	return nil
}

// ResetPassword consumes a reset token and stores the new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" || newPassword == "" {
		return apperrors.NewValidationError("Please provide token and password", nil)
	}
	// checked before the token is spent
	if err := auth.CheckPasswordLength(newPassword); err != nil {
		return err
	}

	accountID, err := s.resets.Consume(ctx, digestToken(token))
	if errors.Is(err, repository.ErrResetTokenNotFound) {
		return apperrors.NewValidationError(msgInvalidReset, nil)
	}
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}
	account, err := s.store.UpdateAccount(ctx, accountID, domain.AccountUpdate{PasswordHash: &hash})
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NewValidationError(msgInvalidReset, nil)
	}
	if err != nil {
		return err
	}

	s.clearFailures(ctx, account.Email)
	s.metrics.RecordAuth(observability.AuthResetCompleted)
	return nil
}

// SeedAdmin makes sure at least one admin exists. An existing account with
// the given email is promoted; otherwise a new admin is created. It reports
// whether anything changed.
func (s *AuthService) SeedAdmin(ctx context.Context, username, email, password string) (bool, error) {
	admins, err := s.store.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if admins > 0 {
		return false, nil
	}

	email = NormalizeEmail(email)
	if email == "" {
		return false, errors.New("no admin exists and no seed admin email is configured")
	}

	role := domain.RoleAdmin
	existing, err := s.store.FindAccountByEmail(ctx, email)
	switch {
	case err == nil:
		if _, err := s.store.UpdateAccount(ctx, existing.ID, domain.AccountUpdate{Role: &role}); err != nil {
			return false, err
		}
		s.logger.Info("promoted seed admin", zap.String("account_id", existing.ID))
		return true, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return false, err
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return false, err
	}
	account := &domain.Account{Username: username, Email: email, PasswordHash: hash, Role: role}
	profile := &domain.Profile{Name: username, Avatar: domain.DefaultAvatar(email)}
	if err := s.store.CreateAccount(ctx, account, profile); err != nil {
		return false, err
	}
	s.logger.Info("created seed admin", zap.String("account_id", account.ID))
	return true, nil
}

// fallbackHash is compared against when the email is unknown so that both
// login failures cost one bcrypt comparison. Only a successful computation
// is cached; until then the static hash stands in.
func (s *AuthService) fallbackHash(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash != "" {
		return s.dummyHash
	}
	hash, err := s.hasher.Hash(ctx, rand.Text())
	if err != nil {
		s.logger.Warn("compute fallback hash", zap.Error(err))
		return staticFallbackHash
	}
	s.dummyHash = hash
	return hash
}

func (s *AuthService) lockedOut(ctx context.Context, email string) bool {
	if s.attempts == nil || s.cfg.LoginMaxAttempts <= 0 {
		return false
	}
	n, err := s.attempts.Failures(ctx, email)
	if err != nil {
		s.logger.Warn("read login failures", zap.Error(err))
		return false
	}
	return n >= s.cfg.LoginMaxAttempts
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if s.attempts == nil || s.cfg.LoginMaxAttempts <= 0 {
		return
	}
	if _, err := s.attempts.RecordFailure(ctx, email, s.cfg.LoginLockout); err != nil {
		s.logger.Warn("record login failure", zap.Error(err))
	}
}

func (s *AuthService) clearFailures(ctx context.Context, email string) {
	if s.attempts == nil {
		return
	}
	if err := s.attempts.Reset(ctx, email); err != nil {
		s.logger.Warn("reset login failures", zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

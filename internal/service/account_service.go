package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/spec-kit/angocine/internal/auth"
	"github.com/spec-kit/angocine/internal/domain"
	"github.com/spec-kit/angocine/internal/repository"
	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

// AccountOverview is the self-service view of an account.
type AccountOverview struct {
	Account  *domain.Account
	Profiles []domain.Profile
	Stats    domain.AccountStats
}

// AccountChanges is a self-service edit. A new password is only accepted
// together with the current one.
type AccountChanges struct {
	Username        *string
	Email           *string
	CurrentPassword *string
	NewPassword     *string
}

// ProfileInput describes a profile to create.
type ProfileInput struct {
	Name   string
	Avatar string
	IsKid  bool
}

const msgProfileNameLength = "Profile name must be between 2 and 50 characters"

func normalizeProfileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return "", apperrors.NewValidationError(msgProfileNameLength, nil)
	}
	return name, nil
}

// AccountService serves the account owner: account details, password
// change and the profile household.
type AccountService struct {
	store  repository.CredentialStore
	hasher *auth.PasswordHasher
}

// NewAccountService builds the service.
func NewAccountService(store repository.CredentialStore, hasher *auth.PasswordHasher) *AccountService {
	return &AccountService{store: store, hasher: hasher}
}

// Overview returns the account with its profiles and activity counters.
func (s *AccountService) Overview(ctx context.Context, accountID string) (*AccountOverview, error) {
	account, err := s.store.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	profiles, err := s.store.ListProfiles(ctx, accountID)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.AccountStats(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &AccountOverview{Account: account, Profiles: profiles, Stats: stats}, nil
}

// UpdateAccount applies a self-service edit.
func (s *AccountService) UpdateAccount(ctx context.Context, accountID string, changes AccountChanges) (*domain.Account, error) {
	var update domain.AccountUpdate
	if changes.Username != nil {
		name, err := NormalizeUsername(*changes.Username)
		if err != nil {
			return nil, err
		}
		update.Username = &name
	}
	if changes.Email != nil {
		email := NormalizeEmail(*changes.Email)
		update.Email = &email
	}

	if changes.NewPassword != nil {
		if changes.CurrentPassword == nil || *changes.CurrentPassword == "" {
			return nil, apperrors.NewValidationError("Current password is required to set a new password", nil)
		}
		account, err := s.store.FindAccountByID(ctx, accountID)
		if err != nil {
			return nil, err
		}
		ok, err := s.hasher.Verify(ctx, account.PasswordHash, *changes.CurrentPassword)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.NewValidationError("Current password is incorrect", nil)
		}
		hash, err := s.hasher.Hash(ctx, *changes.NewPassword)
		if err != nil {
			return nil, err
		}
		update.PasswordHash = &hash
	}

	if update.Empty() {
		return nil, apperrors.NewValidationError("No updates provided", nil)
	}
	return s.store.UpdateAccount(ctx, accountID, update)
}

// ListProfiles returns the account's profiles in creation order.
func (s *AccountService) ListProfiles(ctx context.Context, accountID string) ([]domain.Profile, error) {
	return s.store.ListProfiles(ctx, accountID)
}

// CreateProfile adds a profile, failing with LimitExceeded at five.
func (s *AccountService) CreateProfile(ctx context.Context, accountID string, in ProfileInput) (*domain.Profile, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.NewValidationError("Profile name is required", nil)
	}
	name, err := normalizeProfileName(in.Name)
	if err != nil {
		return nil, err
	}
	profile := &domain.Profile{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Name:      name,
		Avatar:    strings.TrimSpace(in.Avatar),
		IsKid:     in.IsKid,
	}
	if profile.Avatar == "" {
		profile.Avatar = domain.DefaultAvatar(profile.ID)
	}
	if err := s.store.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfile edits a profile the account owns.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID, profileID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return nil, apperrors.NewValidationError("Profile name cannot be empty", nil)
		}
		name, err := normalizeProfileName(*update.Name)
		if err != nil {
			return nil, err
		}
		update.Name = &name
	}
	if update.Empty() {
		return nil, apperrors.NewValidationError("No updates provided", nil)
	}
	return s.store.UpdateProfile(ctx, accountID, profileID, update)
}

// DeleteProfile removes a profile the account owns, keeping at least one.
func (s *AccountService) DeleteProfile(ctx context.Context, accountID, profileID string) error {
	return s.store.DeleteProfile(ctx, accountID, profileID)
}

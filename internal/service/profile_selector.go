package service

import (
	"context"
	"strings"

	"github.com/spec-kit/angocine/internal/domain"
	"github.com/spec-kit/angocine/internal/repository"
	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

// ProfileSelector resolves a profile id from a request against the
// authenticated account. A profile owned by someone else is reported as
// missing, never as forbidden, so ids of other households are not confirmed.
type ProfileSelector struct {
	store repository.CredentialStore
}

// NewProfileSelector builds the selector.
func NewProfileSelector(store repository.CredentialStore) *ProfileSelector {
	return &ProfileSelector{store: store}
}

// ResolveOwnedProfile returns the profile if it belongs to accountID.
func (s *ProfileSelector) ResolveOwnedProfile(ctx context.Context, accountID, profileID string) (*domain.Profile, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, apperrors.NewValidationError("Profile ID is required", nil)
	}
	return s.store.GetOwnedProfile(ctx, accountID, profileID)
}

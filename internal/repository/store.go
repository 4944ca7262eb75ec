package repository

import (
	"context"
	"strings"

	"github.com/spec-kit/angocine/internal/domain"
	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

// CredentialStore persists accounts and the profiles they own.
//
// Implementations enforce uniqueness through database constraints and run
// the profile-limit and last-admin checks inside the transaction that
// performs the write, so concurrent requests cannot both pass a check.
type CredentialStore interface {
	// CreateAccount inserts the account and its first profile atomically.
	CreateAccount(ctx context.Context, account *domain.Account, profile *domain.Profile) error
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindAccountByID(ctx context.Context, id string) (*domain.Account, error)
	// UpdateAccount applies the non-nil fields. Demoting the last admin fails
	// with InvalidOperation.
	UpdateAccount(ctx context.Context, id string, update domain.AccountUpdate) (*domain.Account, error)
	// DeleteAccount removes the account and everything it owns.
	DeleteAccount(ctx context.Context, id string) error
	ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, int, error)
	CountAdmins(ctx context.Context) (int, error)
	AccountStats(ctx context.Context, id string) (domain.AccountStats, error)

	CreateProfile(ctx context.Context, profile *domain.Profile) error
	ListProfiles(ctx context.Context, accountID string) ([]domain.Profile, error)
	GetOwnedProfile(ctx context.Context, accountID, profileID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, accountID, profileID string, update domain.ProfileUpdate) (*domain.Profile, error)
	DeleteProfile(ctx context.Context, accountID, profileID string) error
}

// ActivityStore persists profile-scoped watch history and analytics.
// Callers resolve profile ownership before using it.
type ActivityStore interface {
	// RecordWatch upserts the history row and appends an analytics event in
	// one transaction.
	RecordWatch(ctx context.Context, update domain.WatchUpdate) (*domain.WatchEntry, error)
	ListHistory(ctx context.Context, profileID string, limit, offset int) ([]domain.WatchEntry, int, error)
	ListEvents(ctx context.Context, profileID string, limit int) ([]domain.AnalyticsEvent, error)
	// RecordEvent appends a client-reported event. A movie id that does not
	// exist fails with NotFound.
	RecordEvent(ctx context.Context, event domain.NewAnalyticsEvent) (*domain.AnalyticsEvent, error)
	// ListActivity returns the newest events with their movie, if any.
	ListActivity(ctx context.Context, profileID string, limit int) ([]domain.ActivityItem, error)
	// WatchTime returns the profile's total watch time in seconds and the
	// sums per raw genre value.
	WatchTime(ctx context.Context, profileID string) (int64, []domain.GenreSeconds, error)
	// ListReviews returns the account's newest reviews joined with the movie title.
	ListReviews(ctx context.Context, accountID string, limit int) ([]domain.Review, error)
}

// Store is the full relational backend selected at startup.
type Store interface {
	CredentialStore
	ActivityStore
	Ping(ctx context.Context) error
}

const (
	msgDuplicateAccount = "Username or email already exists"
	msgDuplicateEmail   = "Email already in use"
	msgDuplicateName    = "Username already in use"
	msgLastAdminDelete  = "Cannot delete the last admin user"
	msgLastAdminDemote  = "Cannot remove the admin role from the last admin user"
	msgLastProfile      = "Cannot delete the last profile"
	msgValueTooLong     = "Value too long for field"
	msgValueOutOfRange  = "Value out of range"
)

// eventDataOrEmpty returns the stored form of optional event data.
func eventDataOrEmpty(data []byte) string {
	if len(data) == 0 || string(data) == "null" {
		return "{}"
	}
	return string(data)
}

func profileLimitError() error {
	return apperrors.NewLimitExceeded("Maximum profile limit reached (5)")
}

// duplicateMessage picks the user-facing conflict message from the text of
// the violated constraint.
func duplicateMessage(constraint string) string {
	switch {
	case strings.Contains(constraint, "email"):
		return msgDuplicateEmail
	case strings.Contains(constraint, "username"):
		return msgDuplicateName
	default:
		return msgDuplicateAccount
	}
}

func likePattern(search string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(replacer.Replace(strings.TrimSpace(search))) + "%"
}

func eventTypeFor(completed bool) string {
	if completed {
		return domain.EventMovieCompleted
	}
	return domain.EventMovieProgress
}

package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/angocine/internal/domain"
	"github.com/spec-kit/angocine/internal/events"
	"github.com/spec-kit/angocine/internal/repository"
	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items []T
	Total int
	Page  int
	Limit int
}

// Pages returns the number of pages needed for Total items.
func (p Page[T]) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// adminReviewLimit caps the reviews shown in the account details view.
const adminReviewLimit = 10

// AccountDetails is the admin view of one account.
type AccountDetails struct {
	Account  *domain.Account
	Profiles []domain.Profile
	Reviews  []domain.Review
	Stats    domain.AccountStats
}

// AdminService holds account management operations reserved to admins.
type AdminService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAdminService builds the service.
func NewAdminService(store repository.Store, dispatcher events.Dispatcher, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{store: store, dispatcher: dispatcher, logger: logger}
}

// ListAccounts pages through accounts, optionally filtered by a search
// string matched against username and email and by role. An empty role
// matches every account.
func (s *AdminService) ListAccounts(ctx context.Context, search, role string, page, limit int) (*Page[domain.Account], error) {
	filter := domain.AccountFilter{Search: strings.TrimSpace(search)}
	if role = strings.TrimSpace(role); role != "" {
		r := domain.Role(role)
		if !r.Valid() {
			return nil, apperrors.NewValidationError("Invalid role", map[string]any{"role": role})
		}
		filter.Role = &r
	}
	page, limit = normalizePage(page, limit)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	accounts, total, err := s.store.ListAccounts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page[domain.Account]{Items: accounts, Total: total, Page: page, Limit: limit}, nil
}

// AccountDetails returns an account with its profiles, its newest reviews
// and activity counters.
func (s *AdminService) AccountDetails(ctx context.Context, accountID string) (*AccountDetails, error) {
	account, err := s.store.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	profiles, err := s.store.ListProfiles(ctx, accountID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.store.ListReviews(ctx, accountID, adminReviewLimit)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.AccountStats(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &AccountDetails{Account: account, Profiles: profiles, Reviews: reviews, Stats: stats}, nil
}

// ChangeRole sets an account's role. Removing the admin role from the last
// admin fails with InvalidOperation.
func (s *AdminService) ChangeRole(ctx context.Context, accountID string, role domain.Role) (*domain.Account, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("Invalid role", map[string]any{"role": role})
	}
	return s.store.UpdateAccount(ctx, accountID, domain.AccountUpdate{Role: &role})
}

// DeleteAccount removes an account and everything it owns. Deleting the
// last admin fails with InvalidOperation.
func (s *AdminService) DeleteAccount(ctx context.Context, actorID, accountID string) error {
	account, err := s.store.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAccount(ctx, accountID); err != nil {
		return err
	}

	s.logger.Info("account deleted", zap.String("account_id", accountID), zap.String("actor_id", actorID))
	if s.dispatcher != nil {
		event := events.New(events.EventAccountDeleted, accountID, events.AccountDeletedPayload{
			Email:     account.Email,
			DeletedBy: actorID,
		})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

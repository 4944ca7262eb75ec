package dto

import (
	"time"

	"github.com/spec-kit/angocine/internal/domain"
)

// UpdateAccountRequest edits the caller's own account. Absent fields are unchanged.
type UpdateAccountRequest struct {
	Username        *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email           *string `json:"email" validate:"omitempty,max=100,email"`
	CurrentPassword *string `json:"current_password"`
	NewPassword     *string `json:"new_password" validate:"omitempty,min=6"`
}

// CreateProfileRequest adds a profile to the caller's household.
type CreateProfileRequest struct {
	Name   string `json:"name" validate:"required,min=2,max=50"`
	Avatar string `json:"avatar" validate:"omitempty,max=255,url"`
	IsKid  bool   `json:"is_kid"`
}

// UpdateProfileRequest edits one profile. Absent fields are unchanged.
type UpdateProfileRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=50"`
	Avatar *string `json:"avatar" validate:"omitempty,max=255,url"`
	IsKid  *bool   `json:"is_kid"`
}

// WatchProgressRequest reports playback progress in seconds.
type WatchProgressRequest struct {
	WatchTime int  `json:"watch_time" validate:"gte=0,lte=2147483647"`
	Completed bool `json:"completed"`
}

// ChangeRoleRequest is the admin role update payload.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// AccountDetails is the self-service account view.
type AccountDetails struct {
	ID        string              `json:"id"`
	Username  string              `json:"username"`
	Email     string              `json:"email"`
	Role      domain.Role         `json:"role"`
	CreatedAt time.Time           `json:"created_at"`
	Profiles  []domain.Profile    `json:"profiles"`
	Stats     domain.AccountStats `json:"stats"`
}

// AdminUser is one row of the admin listing.
type AdminUser struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// AdminUserStats are the counters of the admin account view.
type AdminUserStats struct {
	ProfileCount   int `json:"profile_count"`
	ReviewCount    int `json:"review_count"`
	WatchlistCount int `json:"watchlist_count"`
	HistoryCount   int `json:"history_count"`
}

// AdminUserDetails is the admin view of one account.
type AdminUserDetails struct {
	User     AdminUser        `json:"user"`
	Profiles []domain.Profile `json:"profiles"`
	Reviews  []domain.Review  `json:"reviews"`
	Stats    AdminUserStats   `json:"stats"`
}

// Pagination describes a paged listing.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func newAdminUser(a *domain.Account) AdminUser {
	return AdminUser{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}

// NewAdminUsers converts accounts for the admin listing.
func NewAdminUsers(accounts []domain.Account) []AdminUser {
	out := make([]AdminUser, 0, len(accounts))
	for i := range accounts {
		out = append(out, newAdminUser(&accounts[i]))
	}
	return out
}

// NewAdminUserDetails builds the admin account view.
func NewAdminUserDetails(account *domain.Account, profiles []domain.Profile, reviews []domain.Review, stats domain.AccountStats) AdminUserDetails {
	if profiles == nil {
		profiles = []domain.Profile{}
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return AdminUserDetails{
		User:     newAdminUser(account),
		Profiles: profiles,
		Reviews:  reviews,
		Stats: AdminUserStats{
			ProfileCount:   len(profiles),
			ReviewCount:    stats.ReviewCount,
			WatchlistCount: stats.WatchlistCount,
			HistoryCount:   stats.HistoryCount,
		},
	}
}

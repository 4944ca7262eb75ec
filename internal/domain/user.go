package domain

import "time"

// Role gates admin-only operations.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account is a login identity. PasswordHash never leaves the service layer.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the account carries the admin role.
func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// AccountUpdate carries the optional fields of an account change.
// A nil field is left untouched.
type AccountUpdate struct {
	Username     *string
	Email        *string
	PasswordHash *string
	Role         *Role
}

// Empty reports whether the update changes nothing.
func (u AccountUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.PasswordHash == nil && u.Role == nil
}

// AccountStats summarizes an account's activity.
type AccountStats struct {
	WatchlistCount int `json:"watchlist_count"`
	HistoryCount   int `json:"history_count"`
	ReviewCount    int `json:"review_count"`
}

// AccountFilter drives the admin listing.
type AccountFilter struct {
	Search string
	Role   *Role
	Limit  int
	Offset int
}

package domain

import (
	"net/url"
	"time"
)

const (
	// MaxProfilesPerAccount caps the household size.
	MaxProfilesPerAccount = 5
)

// Profile is a viewing identity owned by exactly one account.
type Profile struct {
	ID        string    `json:"id"`
	AccountID string    `json:"user_id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	IsKid     bool      `json:"is_kid"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileUpdate carries optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name   *string
	Avatar *string
	IsKid  *bool
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Avatar == nil && u.IsKid == nil
}

// DefaultAvatar returns the generated avatar URL used when a profile is
// created without one.
func DefaultAvatar(seed string) string {
	return "https://i.pravatar.cc/150?u=" + url.QueryEscape(seed)
}

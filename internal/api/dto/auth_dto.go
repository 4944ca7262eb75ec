package dto

import "github.com/spec-kit/angocine/internal/domain"

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,max=100,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=100,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token to exchange.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ForgotPasswordRequest starts the reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,max=100,email"`
}

// ResetPasswordRequest completes the reset flow.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID       string           `json:"id"`
	Username string           `json:"username"`
	Email    string           `json:"email"`
	Role     domain.Role      `json:"role"`
	Profiles []domain.Profile `json:"profiles,omitempty"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         UserResponse `json:"user"`
}

// TokenResponse is returned by refresh.
type TokenResponse struct {
	Token string `json:"token"`
}

// NewUserResponse strips an account down to its public fields.
func NewUserResponse(account *domain.Account) UserResponse {
	return UserResponse{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
		Role:     account.Role,
	}
}

// NewAuthResponse builds the register/login payload. Profiles are only
// attached when withProfiles is set.
func NewAuthResponse(session *domain.Session, withProfiles bool) AuthResponse {
	user := NewUserResponse(session.Account)
	if withProfiles {
		user.Profiles = session.Profiles
		if user.Profiles == nil {
			user.Profiles = []domain.Profile{}
		}
	}
	return AuthResponse{
		Token:        session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
		User:         user,
	}
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/angocine/internal/api/dto"
	"github.com/spec-kit/angocine/internal/service"
)

const msgForgotPassword = "If your email is registered, you will receive a password reset link"

// AuthHandler exposes the public authentication endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "User registered successfully", dto.NewAuthResponse(session, false))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Login successful", dto.NewAuthResponse(session, true))
}

// RefreshToken handles POST /api/auth/refresh-token.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	token, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Token refreshed successfully", dto.TokenResponse{Token: token})
}

// ForgotPassword handles POST /api/auth/forgot-password. The answer never
// depends on whether the email is registered.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	if err := h.auth.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, msgForgotPassword, nil)
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	if err := h.auth.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Password has been reset", nil)
}

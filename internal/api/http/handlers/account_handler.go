package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/angocine/internal/api/dto"
	"github.com/spec-kit/angocine/internal/domain"
	"github.com/spec-kit/angocine/internal/service"
)

// AccountHandler serves the caller's own account and profiles.
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler constructs handler.
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// GetAccount handles GET /api/user/profile.
func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}

	overview, err := h.accounts.Overview(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "User profile retrieved successfully", accountDetails(overview))
}

// UpdateAccount handles PUT /api/user/profile.
func (h *AccountHandler) UpdateAccount(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateAccountRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	account, err := h.accounts.UpdateAccount(c.UserContext(), id, service.AccountChanges{
		Username:        req.Username,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Profile updated successfully", dto.NewUserResponse(account))
}

// ListProfiles handles GET /api/user/profiles.
func (h *AccountHandler) ListProfiles(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}

	profiles, err := h.accounts.ListProfiles(c.UserContext(), id)
	if err != nil {
		return err
	}
	if profiles == nil {
		profiles = []domain.Profile{}
	}
	return ok(c, fiber.StatusOK, "Profiles retrieved successfully", profiles)
}

// CreateProfile handles POST /api/user/profiles.
func (h *AccountHandler) CreateProfile(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}
	var req dto.CreateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	profile, err := h.accounts.CreateProfile(c.UserContext(), id, service.ProfileInput{
		Name:   req.Name,
		Avatar: req.Avatar,
		IsKid:  req.IsKid,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Profile created successfully", profile)
}

// UpdateProfile handles PUT /api/user/profiles/:id.
func (h *AccountHandler) UpdateProfile(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	profile, err := h.accounts.UpdateProfile(c.UserContext(), id, c.Params("id"), domain.ProfileUpdate{
		Name:   req.Name,
		Avatar: req.Avatar,
		IsKid:  req.IsKid,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Profile updated successfully", profile)
}

// DeleteProfile handles DELETE /api/user/profiles/:id.
func (h *AccountHandler) DeleteProfile(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}

	if err := h.accounts.DeleteProfile(c.UserContext(), id, c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Profile deleted successfully", nil)
}

func accountDetails(o *service.AccountOverview) dto.AccountDetails {
	profiles := o.Profiles
	if profiles == nil {
		profiles = []domain.Profile{}
	}
	return dto.AccountDetails{
		ID:        o.Account.ID,
		Username:  o.Account.Username,
		Email:     o.Account.Email,
		Role:      o.Account.Role,
		CreatedAt: o.Account.CreatedAt,
		Profiles:  profiles,
		Stats:     o.Stats,
	}
}

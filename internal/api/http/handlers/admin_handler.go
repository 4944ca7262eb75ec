package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/angocine/internal/api/dto"
	"github.com/spec-kit/angocine/internal/domain"
	"github.com/spec-kit/angocine/internal/service"
)

// AdminHandler exposes account management to admins.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListUsers handles GET /api/admin/users?search=&role=&page=&limit=.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, err := h.admin.ListAccounts(c.UserContext(),
		c.Query("search"),
		c.Query("role"),
		queryInt(c, "page", 1),
		queryInt(c, "limit", 10),
	)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Users retrieved successfully", fiber.Map{
		"users": dto.NewAdminUsers(page.Items),
		"pagination": dto.Pagination{
			Total: page.Total,
			Page:  page.Page,
			Limit: page.Limit,
			Pages: page.Pages(),
		},
	})
}

// GetUser handles GET /api/admin/users/:id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	details, err := h.admin.AccountDetails(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "User retrieved successfully",
		dto.NewAdminUserDetails(details.Account, details.Profiles, details.Reviews, details.Stats))
}

// ChangeRole handles PUT /api/admin/users/:id/role.
func (h *AdminHandler) ChangeRole(c *fiber.Ctx) error {
	var req dto.ChangeRoleRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	account, err := h.admin.ChangeRole(c.UserContext(), c.Params("id"), domain.Role(req.Role))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "User role updated successfully", dto.NewUserResponse(account))
}

// DeleteUser handles DELETE /api/admin/users/:id.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	actor, err := accountID(c)
	if err != nil {
		return err
	}

	if err := h.admin.DeleteAccount(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "User deleted successfully", nil)
}

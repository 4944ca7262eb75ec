package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/angocine/internal/domain"
	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

// RequireAdmin ensures the authenticated principal carries the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Role != domain.RoleAdmin {
			return apperrors.NewForbidden("Access denied. Admin privileges required.")
		}
		return c.Next()
	}
}

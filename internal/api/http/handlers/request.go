package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/angocine/internal/api/dto"
	"github.com/spec-kit/angocine/internal/auth"
	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

// bindJSON decodes the body into req and runs its validation tags.
func bindJSON(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("Invalid request payload", nil)
	}
	return dto.Validate(req)
}

// accountID returns the authenticated account id set by the auth middleware.
func accountID(c *fiber.Ctx) (string, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.ID == "" {
		return "", apperrors.NewUnauthorized("Access denied. No token provided.")
	}
	return principal.ID, nil
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func ok(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.OK(message, data))
}

package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer access tokens. It is stateless: the
// principal comes from the signed claims alone.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes. A missing credential
// is 401; a present but invalid or expired one is 403.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return apperrors.NewUnauthorized("Access denied. No token provided.")
	}

	claims, err := m.tokens.VerifyAccessToken(token)
	if err != nil {
		return apperrors.NewForbidden("Invalid token.")
	}

	c.Locals(principalKey, claims)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated claims.
func PrincipalFromContext(c *fiber.Ctx) (*AccessClaims, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*AccessClaims)
	return claims, ok
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

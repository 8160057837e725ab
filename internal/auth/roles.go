package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-relay/internal/domain"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

// RequireRole ensures the caller belongs to at least one of the allowed tiers.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		for _, role := range allowed {
			if principal.Has(role) {
				return c.Next()
			}
		}
		return apperrors.NewUnauthorized("insufficient role")
	}
}

// RequireAdmin ensures the caller belongs to any admin tier.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RolePrimaryAdmin, domain.RoleSecondaryAdmin, domain.RoleSuperAdmin)
}

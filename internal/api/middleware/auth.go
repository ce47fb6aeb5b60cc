package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/minicrm/crm-api/internal/api/metrics"
	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

// IdentityKey is the echo context key holding the verified domain.Identity.
const IdentityKey = "identity"

// Auth verifies the bearer token and injects the caller identity into context.
// A request without a token is unauthenticated (401); a token that fails
// verification is refused (403).
func Auth(tokens ports.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.AuthorizationDenialsTotal.WithLabelValues("missing_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				metrics.AuthorizationDenialsTotal.WithLabelValues("missing_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			identity, err := tokens.Verify(c.Request().Context(), parts[1])
			if err != nil {
				if errors.Is(err, domain.ErrTokenMissing) {
					metrics.AuthorizationDenialsTotal.WithLabelValues("missing_token").Inc()
					return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
				}
				metrics.AuthorizationDenialsTotal.WithLabelValues("invalid_token").Inc()
				return echo.NewHTTPError(http.StatusForbidden, "invalid token")
			}

			c.Set(IdentityKey, identity)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	identity, ok := c.Get(IdentityKey).(domain.Identity)
	if !ok || identity.ID == "" || !identity.Role.Valid() {
		return domain.Identity{}, false
	}
	return identity, true
}

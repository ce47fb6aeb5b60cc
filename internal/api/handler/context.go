package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/minicrm/crm-api/internal/api/middleware"
	"github.com/minicrm/crm-api/internal/core/domain"
)

// ctxIdentity extracts the identity injected by the Auth middleware. Its
// absence means the route was registered without Auth.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return identity, nil
}

// bindAndValidate decodes the body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// pathParam returns the unescaped path parameter, rejecting blanks.
func pathParam(c echo.Context, name string) (string, error) {
	raw := c.Param(name)
	if v, err := url.PathUnescape(raw); err == nil {
		raw = v
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, name+" is required")
	}
	return raw, nil
}

// parseDeadline accepts a full RFC 3339 timestamp or a bare date.
func parseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "deadline must be RFC 3339 or YYYY-MM-DD")
}

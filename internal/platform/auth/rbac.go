package auth

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireCapability returns middleware that lets the request through when
// the principal holds at least one of caps.
func RequireCapability(caps ...Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			for _, required := range caps {
				if p.Can(required) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("role %s may not perform this action", p.Role))
		}
	}
}

// MustPrincipal returns the caller or a 401 error for handlers mounted
// behind the auth middleware.
func MustPrincipal(c echo.Context) (Principal, error) {
	p, ok := PrincipalFromContext(c.Request().Context())
	if !ok {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return p, nil
}

package auth

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks if the user has at least one
// of the specified roles. Admins always pass.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, has := range userRoles {
				if has == RoleAdmin || slices.Contains(roles, has) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// RequireScope returns middleware that checks for a "resource.operation"
// scope such as "reports.read" or "documents.delete".
func RequireScope(resource, operation string) echo.MiddlewareFunc {
	required := resource + "." + operation
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, scope := range ScopesFromContext(c.Request().Context()) {
				if matchScope(scope, required) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required scope: %s", required))
		}
	}
}

// RequirePatientAccess restricts callers whose only role is patient to the
// patient named by the path parameter param. Their token subject must
// equal it.
func RequirePatientAccess(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			roles := RolesFromContext(ctx)
			if slices.Contains(roles, RoleAdmin) || slices.Contains(roles, RoleClinician) {
				return next(c)
			}
			if slices.Contains(roles, RolePatient) && UserIDFromContext(ctx) == c.Param(param) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden, "access to this patient is not permitted")
		}
	}
}

// matchScope reports whether granted covers required. Either half of the
// granted scope may be "*".
func matchScope(granted, required string) bool {
	gRes, gOp, ok := strings.Cut(granted, ".")
	if !ok {
		return false
	}
	rRes, rOp, ok := strings.Cut(required, ".")
	if !ok {
		return false
	}
	return (gRes == "*" || gRes == rRes) && (gOp == "*" || gOp == rOp)
}

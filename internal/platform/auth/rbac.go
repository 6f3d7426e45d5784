package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == "admin" {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// RequireDoctorMatch returns middleware for doctor-scoped routes. A caller
// with the doctor role may only act on their own doctor_id (taken from the
// route param named by paramName); admin and nurse roles bypass the check.
func RequireDoctorMatch(paramName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			roles := RolesFromContext(ctx)
			for _, r := range roles {
				if r == "admin" || r == "nurse" || r == "registrar" {
					return next(c)
				}
			}

			doctorID := DoctorIDFromContext(ctx)
			if doctorID != "" && doctorID == c.Param(paramName) {
				return next(c)
			}

			return echo.NewHTTPError(http.StatusForbidden, "doctor may only act on their own queue")
		}
	}
}

package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/campushub/campushub-api/internal/core/domain"
)

// RBAC restricts a route to the given roles. It must run after Auth, which
// injects the verified role into context.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := allowed[role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "you do not have access to this resource")
			}
			return next(c)
		}
	}
}

// SelfOrAdmin allows admins through unconditionally and everyone else only
// when the :id route parameter matches their own user id.
func SelfOrAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if role == domain.RoleAdmin {
				return next(c)
			}

			id, _ := c.Get("user_id").(int64)
			if id != 0 && c.Param("id") == strconv.FormatInt(id, 10) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden, "you do not have access to this resource")
		}
	}
}

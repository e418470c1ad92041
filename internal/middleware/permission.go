package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequirePermission lets the request through when the caller holds any of
// caps.  It must run after JWTAuth.
func RequirePermission(caps ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !Capabilities(c).HasAny(caps...) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

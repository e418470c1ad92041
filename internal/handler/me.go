package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-gateway/internal/middleware"
)

// Me handles GET /v1/me: who is signed in and what they may see.
func Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":      p.UserID,
		"role":         p.Role,
		"branch":       p.Branch,
		"capabilities": middleware.Capabilities(c).List(),
	})
}

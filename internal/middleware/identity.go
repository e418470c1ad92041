package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-gateway/internal/permission"
)

// Context keys set by JWTAuth.
const (
	ctxUserID       = "user_id"
	ctxRole         = "role"
	ctxPrincipal    = "principal"
	ctxCapabilities = "capabilities"
)

// Principal is the authenticated terminal user.  Token is the raw bearer
// token forwarded to the backend.
type Principal struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Branch string `json:"branch"`
	Token  string `json:"-"`
}

// PrincipalFrom returns the request's principal; ok is false on
// unauthenticated routes.
func PrincipalFrom(c echo.Context) (Principal, bool) {
	p, ok := c.Get(ctxPrincipal).(Principal)
	return p, ok
}

// Capabilities returns the request's capability set.  It is empty when
// the request is unauthenticated.
func Capabilities(c echo.Context) permission.Set {
	s, _ := c.Get(ctxCapabilities).(permission.Set)
	return s
}

// currentUserID keys rate limits and cache entries.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pos-gateway/internal/apiclient"
	"github.com/iliyamo/pos-gateway/internal/permission"
	"github.com/iliyamo/pos-gateway/internal/utils"
)

// JWTAuth validates the Bearer access token and stores the principal and
// its capability set on the context.  The same token is attached to the
// request context so backend calls made for this request carry it.
func JWTAuth(secret string, resolver *permission.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			p := Principal{UserID: claims.Subject, Role: claims.Role, Branch: claims.Branch, Token: raw}
			c.Set(ctxUserID, p.UserID)
			c.Set(ctxRole, p.Role)
			c.Set(ctxPrincipal, p)
			c.Set(ctxCapabilities, resolver.Resolve(p.UserID, p.Branch, p.Role, claims.Permissions))

			req := c.Request()
			c.SetRequest(req.WithContext(apiclient.ContextWithToken(req.Context(), raw)))
			return next(c)
		}
	}
}

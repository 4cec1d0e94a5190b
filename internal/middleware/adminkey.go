package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminKeyMiddleware guards the template administration surface. Full
// auth/session management lives outside this service; a shared key is enough
// for the organizer-facing endpoints it fronts.
func AdminKeyMiddleware(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key == "" {
				return echo.NewHTTPError(http.StatusForbidden, "admin surface disabled")
			}
			got := c.Request().Header.Get("X-Admin-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid admin key")
			}
			return next(c)
		}
	}
}

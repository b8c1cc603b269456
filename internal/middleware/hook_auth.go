package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HookAuthMiddleware creates an Echo middleware that checks the shared secret
// the trigger infrastructure attaches to every webhook call. An empty secret
// disables the check for local development.
func HookAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return next(c)
			}

			token := c.Request().Header.Get("X-PetalPost-Token")
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "X-PetalPost-Token header is missing")
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid hook token")
			}

			return next(c)
		}
	}
}

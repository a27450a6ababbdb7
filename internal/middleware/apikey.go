package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HeaderAPIKey carries the admin key.
const HeaderAPIKey = "X-API-Key"

// APIKey gates a route group behind a shared key. An empty configured
// key closes the group entirely; a misconfigured deployment must not
// leave the admin surface open.
func APIKey(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key == "" {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "admin access is not configured"})
			}
			provided := c.Request().Header.Get(HeaderAPIKey)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid API key"})
			}
			return next(c)
		}
	}
}

package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// UserIDKey is the context key for the authenticated user id
const UserIDKey ContextKey = "user_id"

// ExtractUserID extracts the numeric X-User-ID header into the request
// context. Missing or malformed headers are tolerated; handlers that
// need the id call RequireUserID.
func ExtractUserID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("X-User-ID")
			if header != "" {
				if userID, err := strconv.ParseInt(header, 10, 64); err == nil {
					c.Set(string(UserIDKey), userID)
				}
			}
			return next(c)
		}
	}
}

// RequireUserID returns the user id from context or a 401 error
func RequireUserID(c echo.Context) (int64, error) {
	value := c.Get(string(UserIDKey))
	if value == nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "X-User-ID header is required")
	}
	return value.(int64), nil
}

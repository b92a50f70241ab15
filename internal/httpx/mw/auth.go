// Package mw contains HTTP middleware including authentication and rate limiting.
package mw

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/usecogent/cogent-api/internal/httpx/kit"
)

// TokenData holds the identity extracted from a verified access token.
type TokenData struct {
	UserID uuid.UUID
	Email  string
}

// TokenParser verifies an access token string and returns its identity.
type TokenParser func(token string) (*TokenData, error)

const authLocal = "auth"

// CookieAuth reads the access_token cookie and, if it verifies, attaches the
// identity to the request. Missing or invalid cookies are left for
// RequireUser to reject so optional-auth routes keep working.
func CookieAuth(parse TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies("access_token")
		if token == "" {
			return c.Next()
		}
		td, err := parse(token)
		if err == nil && td != nil {
			c.Locals(authLocal, td)
		}
		return c.Next()
	}
}

// RequireUser enforces an authenticated user on the route.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		td, _ := c.Locals(authLocal).(*TokenData)
		if td == nil || td.UserID == uuid.Nil {
			return kit.Unauthorized("Authentication required")
		}
		return c.Next()
	}
}

// User returns the authenticated identity for the request, or nil.
func User(c *fiber.Ctx) *TokenData {
	td, _ := c.Locals(authLocal).(*TokenData)
	return td
}

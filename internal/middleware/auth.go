package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/services"
	"github.com/localnerve/layersdb/internal/types"
)

// SessionCookie is the cookie carrying the Authorizer session.
const SessionCookie = "cookie_session"

const userKey = "user"

// Authenticate resolves the session cookie into the calling user. Requests
// without a cookie continue as the anonymous user.
func Authenticate(resolver services.SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := resolver.ResolveUser(c.UserContext(), c.Cookies(SessionCookie))
		if err != nil {
			return &types.CustomError{
				Code:    fiber.StatusUnauthorized,
				Message: fmt.Sprintf("Invalid session: %v", err),
				Type:    "authorization.session",
			}
		}
		c.Locals(userKey, user)
		return c.Next()
	}
}

// RequireUser rejects anonymous requests.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if User(c).IsAnonymous() {
			return &types.CustomError{
				Code:    fiber.StatusUnauthorized,
				Message: fmt.Sprintf("Session cookie %q not found", SessionCookie),
				Type:    "authorization.user",
			}
		}
		return c.Next()
	}
}

// User returns the user resolved for the request.
func User(c *fiber.Ctx) models.User {
	u, _ := c.Locals(userKey).(models.User)
	return u
}

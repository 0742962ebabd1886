package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pozytywnie/facebook-auth/internal/pkg/session"
	"github.com/pozytywnie/facebook-auth/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request
// This centralizes user session handling and eliminates code duplication
func UserContextMiddleware(c *fiber.Ctx) error {
	// Avoid interfering with Goth/Fiber session handling on OAuth routes.
	// Goth uses its own fiber session store and relies on per-request locals.
	// We skip our app session on /auth/* to prevent cross-store collisions.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}
	// Get session with error handling
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return anonymous(c)
	}

	// Get user ID from session
	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		return anonymous(c)
	}
	uid, ok := userID.(uint)
	if !ok {
		return anonymous(c)
	}

	username := session.GetSessionValue(c, usercontext.KeyUsername)
	isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)

	c.Locals("USER_CONTEXT", usercontext.UserContext{
		UserID:     uid,
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
	})
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyIsAdmin, isAdmin)
	return c.Next()
}

func anonymous(c *fiber.Ctx) error {
	c.Locals("USER_CONTEXT", usercontext.UserContext{
		IsLoggedIn: false,
		IsAdmin:    false,
	})
	c.Locals(usercontext.KeyFromProtected, false)
	c.Locals(usercontext.KeyIsAdmin, false)
	return c.Next()
}

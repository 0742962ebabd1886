package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/pozytywnie/facebook-auth/app/models"
	"github.com/pozytywnie/facebook-auth/app/repository"
	"github.com/pozytywnie/facebook-auth/internal/pkg/auth"
	"github.com/pozytywnie/facebook-auth/internal/pkg/session"
	"github.com/pozytywnie/facebook-auth/internal/pkg/urlsign"
	"github.com/pozytywnie/facebook-auth/internal/pkg/usercontext"
)

var (
	authBackend *auth.Backend
	userRepo    repository.UserRepository
	nextSigner  *urlsign.Signer
)

// InitializeAuthController wires the authentication backend into the handlers
func InitializeAuthController(backend *auth.Backend, users repository.UserRepository, signer *urlsign.Signer) {
	authBackend = backend
	userRepo = users
	nextSigner = signer
}

// HandleAuthLogin starts the provider OAuth flow
func HandleAuthLogin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleAuthCallback completes the provider flow and logs the user in
func HandleAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("OAuth failed")
	}

	var exp *time.Time
	if !u.ExpiresAt.IsZero() {
		t := u.ExpiresAt
		exp = &t
	}

	user, err := authBackend.AuthenticateToken(c.Context(), u.AccessToken, exp)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("login failed")
	}
	if user == nil {
		// Provider said no; fall back to re-authentication.
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	if err := establishSession(c, user); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session save failed")
	}
	_ = userRepo.TouchLastLogin(user.ID)

	return c.Redirect(nextTarget(c), fiber.StatusSeeOther)
}

// HandleTokenLogin is the JS-login path: the client already holds a provider
// access token and posts it here for a local session.
func HandleTokenLogin(c *fiber.Ctx) error {
	accessToken := c.FormValue("access_token")
	if accessToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "access_token is required",
		})
	}

	var exp *time.Time
	if raw := c.FormValue("expires_at"); raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "expires_at must be a unix timestamp",
			})
		}
		t := time.Unix(ts, 0).UTC()
		exp = &t
	}

	user, err := authBackend.AuthenticateToken(c.Context(), accessToken, exp)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "login failed",
		})
	}
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "token rejected",
		})
	}

	if err := establishSession(c, user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "session save failed",
		})
	}
	_ = userRepo.TouchLastLogin(user.ID)

	return c.JSON(user)
}

// HandleMe returns the logged-in user
func HandleMe(c *fiber.Ctx) error {
	user, err := userRepo.GetByID(usercontext.GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "user not found",
		})
	}
	return c.JSON(user)
}

// HandleMeScope reports whether the provider granted a scope to the
// logged-in user, per the last-known scopes cached from token debugging.
func HandleMeScope(c *fiber.Ctx) error {
	user, err := userRepo.GetByID(usercontext.GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "user not found",
		})
	}
	scope := c.Params("scope")
	return c.JSON(fiber.Map{
		"scope":   scope,
		"granted": user.HasScope(scope),
	})
}

// HandleLogout destroys the app session
func HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

func establishSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)
	return sess.Save()
}

// nextTarget resolves the signed next payload; anything unsigned or tampered
// falls back to the root.
func nextTarget(c *fiber.Ctx) string {
	raw := c.Query("next")
	if raw == "" || nextSigner == nil {
		return "/"
	}
	payload, err := nextSigner.Decode(raw)
	if err != nil || payload.Next == "" {
		return "/"
	}
	return payload.Next
}

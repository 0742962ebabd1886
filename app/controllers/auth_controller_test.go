package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pozytywnie/facebook-auth/app/models"
	"github.com/pozytywnie/facebook-auth/internal/pkg/usercontext"
)

type fakeUserRepo struct {
	users map[uint]*models.User
}

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return u, nil
}

func (f *fakeUserRepo) GetByProviderUserID(providerUserID string) (*models.User, error) {
	return nil, errors.New("record not found")
}

func (f *fakeUserRepo) GetOrCreateByProviderUserID(providerUserID string) (*models.User, bool, error) {
	return nil, false, errors.New("not implemented")
}

func (f *fakeUserRepo) Update(user *models.User) error { return nil }

func (f *fakeUserRepo) UpdateScopes(providerUserID string, scopes []string) error { return nil }

func (f *fakeUserRepo) TouchLastLogin(id uint) error { return nil }

func (f *fakeUserRepo) Count() (int64, error) { return int64(len(f.users)), nil }

// newScopeTestApp wires HandleMeScope behind a stand-in for the session
// middleware that marks the request as user userID.
func newScopeTestApp(t *testing.T, repo *fakeUserRepo, userID uint) *fiber.App {
	t.Helper()
	userRepo = repo

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			UserID:     userID,
			IsLoggedIn: true,
		})
		return c.Next()
	})
	app.Get("/me/scopes/:scope", HandleMeScope)
	return app
}

func TestHandleMeScope_GrantedAndMissing(t *testing.T) {
	repo := &fakeUserRepo{users: map[uint]*models.User{
		7: {ID: 7, Name: "Jan", Scopes: "email,user_friends"},
	}}
	app := newScopeTestApp(t, repo, 7)

	cases := []struct {
		scope   string
		granted bool
	}{
		{"email", true},
		{"user_friends", true},
		{"publish_actions", false},
	}

	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", "/me/scopes/"+tc.scope, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		var out struct {
			Scope   string `json:"scope"`
			Granted bool   `json:"granted"`
		}
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, tc.scope, out.Scope)
		assert.Equal(t, tc.granted, out.Granted, "scope %s", tc.scope)
	}
}

func TestHandleMeScope_UnknownUser(t *testing.T) {
	repo := &fakeUserRepo{users: map[uint]*models.User{}}
	app := newScopeTestApp(t, repo, 42)

	resp, err := app.Test(httptest.NewRequest("GET", "/me/scopes/email", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

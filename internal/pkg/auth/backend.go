package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/pozytywnie/facebook-auth/app/models"
	"github.com/pozytywnie/facebook-auth/app/repository"
	"github.com/pozytywnie/facebook-auth/internal/pkg/env"
	"github.com/pozytywnie/facebook-auth/internal/pkg/graph"
)

// codeUsedMessage is the provider's wording for a replayed oauth code; those
// happen on double-submitted callbacks and are logged at info, not warning.
const codeUsedMessage = "This authorization code has been used."

// GraphClient is the Graph surface the backend needs.
type GraphClient interface {
	Get(ctx context.Context, path string, params url.Values) (*graph.Response, error)
	GetWithRetry(ctx context.Context, path string, params url.Values) (*graph.Response, error)
}

// Backend resolves provider credentials to local user accounts. It is the
// authentication backend handed to the login surface: given a code or an
// access token it returns the local user, or nil when the provider said no.
type Backend struct {
	graph  GraphClient
	users  repository.UserRepository
	tokens repository.TokenRepository

	appID     string
	appSecret string
}

func NewBackend(g GraphClient, users repository.UserRepository, tokens repository.TokenRepository) *Backend {
	return &Backend{
		graph:     g,
		users:     users,
		tokens:    tokens,
		appID:     env.GetEnv("FACEBOOK_APP_ID", ""),
		appSecret: env.GetEnv("FACEBOOK_APP_SECRET", ""),
	}
}

// AuthenticateCode exchanges an oauth code for an access token and resolves
// the local user. A nil user with nil error means the provider rejected the
// login; the caller falls back to re-authentication.
func (b *Backend) AuthenticateCode(ctx context.Context, code, redirectURI string) (*models.User, error) {
	params := url.Values{}
	params.Set("client_id", b.appID)
	params.Set("client_secret", b.appSecret)
	params.Set("redirect_uri", redirectURI)
	params.Set("code", code)

	resp, err := b.graph.Get(ctx, "/oauth/access_token", params)
	if err != nil {
		if gerr, ok := graph.AsGraphError(err); ok {
			if gerr.Code == 100 && gerr.Message == codeUsedMessage {
				log.Infof("[Auth] Facebook login failed: %s", gerr.Message)
			} else {
				log.Warnf("[Auth] Facebook login failed: %s", gerr.Message)
			}
		} else {
			log.Warnf("[Auth] Facebook login connection error: %v", err)
		}
		return nil, nil
	}

	token, expires, perr := resp.AccessTokenWithExpiry()
	if perr != nil {
		// Redacted context: never log the client secret or the raw body.
		log.Errorf("[Auth] token exchange response unparseable (client_id=%s, secret=*******%s): %v",
			b.appID, tail(b.appSecret, 4), perr)
		return nil, fmt.Errorf("token exchange: %w", perr)
	}

	// The exchange endpoint reports an absolute unix timestamp here.
	expiresAt := time.Unix(expires, 0).UTC()
	return b.AuthenticateToken(ctx, token, &expiresAt)
}

// AuthenticateToken resolves the local user for a provider-issued access
// token (the JS-login path and the goth callback both land here). A nil
// expiration stores the token as a wildcard whose real expiry is unknown
// until the next revalidation pass.
func (b *Backend) AuthenticateToken(ctx context.Context, accessToken string, expiresAt *time.Time) (*models.User, error) {
	if expiresAt == nil {
		log.Warnf("[Auth] access token stored without expiration date, leaving it to revalidation")
	}

	params := url.Values{}
	params.Set("access_token", accessToken)
	resp, err := b.graph.GetWithRetry(ctx, "/me", params)
	if err != nil {
		log.Warnf("[Auth] profile fetch failed: %v", err)
		return nil, nil
	}
	profile := resp.JSON
	if profile == nil {
		return nil, fmt.Errorf("profile response was not a JSON object")
	}
	providerUserID, ok := profile["id"].(string)
	if !ok || providerUserID == "" {
		return nil, fmt.Errorf("profile response missing id")
	}

	user, err := b.productUser(providerUserID, profile)
	if err != nil {
		return nil, err
	}

	if err := b.tokens.InsertToken(providerUserID, accessToken, expiresAt); err != nil {
		return nil, fmt.Errorf("store access token: %w", err)
	}
	return user, nil
}

// GetUserByID fetches a provider user's public profile and materializes the
// local account without touching any token.
func (b *Backend) GetUserByID(ctx context.Context, providerUserID string) (*models.User, error) {
	resp, err := b.graph.GetWithRetry(ctx, "/"+providerUserID, nil)
	if err != nil {
		return nil, err
	}
	if resp.JSON == nil {
		return nil, fmt.Errorf("profile response was not a JSON object")
	}
	return b.productUser(providerUserID, resp.JSON)
}

// productUser gets or creates the local account and copies the profile
// fields, truncated to column limits.
func (b *Backend) productUser(providerUserID string, profile map[string]interface{}) (*models.User, error) {
	user, created, err := b.users.GetOrCreateByProviderUserID(providerUserID)
	if err != nil {
		return nil, err
	}
	if created {
		// Placeholder credential; these accounts never log in with a password.
		placeholder := fmt.Sprintf("oauth_%d", time.Now().UnixNano())
		if hash, herr := models.HashPassword(placeholder); herr == nil {
			user.Password = hash
		}
	}

	if name, ok := profile["name"].(string); ok {
		user.Name = models.TruncateName(name)
	}
	if email, ok := profile["email"].(string); ok {
		user.Email = models.TruncateEmail(email)
	}
	if err := b.users.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

package tokens

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/pozytywnie/facebook-auth/internal/pkg/env"
	"github.com/pozytywnie/facebook-auth/internal/pkg/graph"
)

// TokenInfo is the result of a successful token debug call.
type TokenInfo struct {
	ProviderUserID string
	// ExpiresAt is nil when the provider reported the token as non-expiring.
	ExpiresAt *time.Time
	Scopes    []string
}

// TokenDebugError means the provider explicitly rejected the token or the
// validation response was unusable. Always recoverable locally: the caller
// invalidates the token and moves on.
type TokenDebugError struct {
	Reason string
	Err    error
}

func (e *TokenDebugError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token debug failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("token debug failed: %s", e.Reason)
}

func (e *TokenDebugError) Unwrap() error {
	return e.Err
}

// GraphGetter is the slice of the Graph client the validator needs.
type GraphGetter interface {
	GetWithRetry(ctx context.Context, path string, params url.Values) (*graph.Response, error)
}

// ScopeWriter persists last-known granted scopes onto the user record.
type ScopeWriter interface {
	UpdateScopes(providerUserID string, scopes []string) error
}

// Validator checks stored tokens against the provider's introspection
// endpoint using an application-level credential.
type Validator struct {
	graph GraphGetter
	users ScopeWriter

	appID     string
	appSecret string

	mu       sync.Mutex
	appToken string
}

// NewValidator builds a validator; app credentials come from the environment.
func NewValidator(g GraphGetter, users ScopeWriter) *Validator {
	return &Validator{
		graph:     g,
		users:     users,
		appID:     env.GetEnv("FACEBOOK_APP_ID", ""),
		appSecret: env.GetEnv("FACEBOOK_APP_SECRET", ""),
	}
}

// DebugToken introspects a stored token. Transient provider errors are
// retried inside the Graph client; exhaustion or any non-provider failure is
// returned as-is so the caller's own retry policy applies. A provider "no"
// (invalid token, missing required fields) becomes *TokenDebugError.
func (v *Validator) DebugToken(ctx context.Context, token string) (*TokenInfo, error) {
	appToken, err := v.applicationToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("input_token", token)
	params.Set("access_token", appToken)

	resp, err := v.graph.GetWithRetry(ctx, "/debug_token", params)
	if err != nil {
		if gerr, ok := graph.AsGraphError(err); ok && !gerr.Transient() {
			return nil, &TokenDebugError{Reason: "provider rejected token", Err: gerr}
		}
		return nil, err
	}

	info, err := v.parseDebugResponse(resp)
	if err != nil {
		return nil, err
	}

	if len(info.Scopes) > 0 && v.users != nil && info.ProviderUserID != "" {
		if serr := v.users.UpdateScopes(info.ProviderUserID, info.Scopes); serr != nil {
			log.Warnf("[TokenValidator] failed to persist scopes for provider user %s: %v", info.ProviderUserID, serr)
		}
	}
	return info, nil
}

func (v *Validator) parseDebugResponse(resp *graph.Response) (*TokenInfo, error) {
	data := resp.DebugData()
	if data == nil {
		// Older API versions answer token queries with query-string bodies.
		_, expires, err := resp.AccessTokenWithExpiry()
		if err != nil {
			// Redact the body; it can carry credentials.
			log.Warnf("[TokenValidator] unparseable token debug response (status=%d)", resp.StatusCode)
			return nil, &TokenDebugError{Reason: "unparseable response", Err: err}
		}
		expiresAt := time.Unix(expires, 0).UTC()
		return &TokenInfo{ExpiresAt: &expiresAt}, nil
	}

	isValid, ok := data["is_valid"].(bool)
	if !ok {
		return nil, &TokenDebugError{Reason: "no token status in response"}
	}
	if !isValid {
		return nil, &TokenDebugError{Reason: "token is invalid"}
	}

	userID, err := stringField(data, "user_id")
	if err != nil {
		return nil, err
	}
	expiresAt, err := expiryField(data)
	if err != nil {
		return nil, err
	}

	info := &TokenInfo{
		ProviderUserID: userID,
		ExpiresAt:      expiresAt,
		Scopes:         scopesField(data),
	}
	return info, nil
}

// applicationToken fetches (and caches) the app access token used to call
// the introspection endpoint.
func (v *Validator) applicationToken(ctx context.Context) (string, error) {
	v.mu.Lock()
	cached := v.appToken
	v.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	params := url.Values{}
	params.Set("client_id", v.appID)
	params.Set("client_secret", v.appSecret)
	params.Set("grant_type", "client_credentials")

	resp, err := v.graph.GetWithRetry(ctx, "/oauth/access_token", params)
	if err != nil {
		return "", fmt.Errorf("application token exchange failed: %w", err)
	}
	token, err := resp.AccessToken()
	if err != nil {
		return "", fmt.Errorf("application token exchange failed: %w", err)
	}

	v.mu.Lock()
	v.appToken = token
	v.mu.Unlock()
	return token, nil
}

func stringField(data map[string]interface{}, key string) (string, error) {
	switch val := data[key].(type) {
	case string:
		if val == "" {
			return "", &TokenDebugError{Reason: fmt.Sprintf("empty %s in response", key)}
		}
		return val, nil
	case float64:
		// Numeric user ids show up in older API versions.
		return fmt.Sprintf("%.0f", val), nil
	default:
		return "", &TokenDebugError{Reason: fmt.Sprintf("no %s in response", key)}
	}
}

// expiryField maps the expires_at timestamp; 0 means a non-expiring token.
func expiryField(data map[string]interface{}) (*time.Time, error) {
	raw, ok := data["expires_at"].(float64)
	if !ok {
		return nil, &TokenDebugError{Reason: "no expires_at in response"}
	}
	if raw == 0 {
		return nil, nil
	}
	t := time.Unix(int64(raw), 0).UTC()
	return &t, nil
}

func scopesField(data map[string]interface{}) []string {
	raw, ok := data["scopes"].([]interface{})
	if !ok {
		return nil
	}
	scopes := make([]string, 0, len(raw))
	for _, s := range raw {
		if str, ok := s.(string); ok && str != "" {
			scopes = append(scopes, str)
		}
	}
	return scopes
}

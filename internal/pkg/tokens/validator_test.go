package tokens

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pozytywnie/facebook-auth/internal/pkg/graph"
)

// fakeGraph answers /oauth/access_token with an app token and /debug_token
// with whatever the test configured.
type fakeGraph struct {
	debugResp *graph.Response
	debugErr  error

	debugCalls []url.Values
}

func (f *fakeGraph) GetWithRetry(_ context.Context, path string, params url.Values) (*graph.Response, error) {
	switch path {
	case "/oauth/access_token":
		return &graph.Response{
			StatusCode: 200,
			JSON:       map[string]interface{}{"access_token": "app|token"},
		}, nil
	case "/debug_token":
		f.debugCalls = append(f.debugCalls, params)
		return f.debugResp, f.debugErr
	}
	return nil, errors.New("unexpected path " + path)
}

type fakeScopeWriter struct {
	providerUserID string
	scopes         []string
	err            error
}

func (f *fakeScopeWriter) UpdateScopes(providerUserID string, scopes []string) error {
	f.providerUserID = providerUserID
	f.scopes = scopes
	return f.err
}

func debugJSON(data map[string]interface{}) *graph.Response {
	return &graph.Response{
		StatusCode: 200,
		JSON:       map[string]interface{}{"data": data},
	}
}

func TestValidator_DebugToken_JSONTransport(t *testing.T) {
	g := &fakeGraph{debugResp: debugJSON(map[string]interface{}{
		"is_valid":   true,
		"user_id":    "100",
		"expires_at": float64(1893456000),
		"scopes":     []interface{}{"email", "public_profile"},
	})}
	users := &fakeScopeWriter{}

	info, err := NewValidator(g, users).DebugToken(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, "100", info.ProviderUserID)
	require.NotNil(t, info.ExpiresAt)
	assert.Equal(t, time.Unix(1893456000, 0).UTC(), *info.ExpiresAt)
	assert.Equal(t, []string{"email", "public_profile"}, info.Scopes)

	// scopes land on the user record
	assert.Equal(t, "100", users.providerUserID)
	assert.Equal(t, []string{"email", "public_profile"}, users.scopes)

	// introspection carries the stored token plus the app credential
	require.Len(t, g.debugCalls, 1)
	assert.Equal(t, "tok", g.debugCalls[0].Get("input_token"))
	assert.Equal(t, "app|token", g.debugCalls[0].Get("access_token"))
}

func TestValidator_DebugToken_NonExpiring(t *testing.T) {
	g := &fakeGraph{debugResp: debugJSON(map[string]interface{}{
		"is_valid":   true,
		"user_id":    "100",
		"expires_at": float64(0),
	})}

	info, err := NewValidator(g, nil).DebugToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Nil(t, info.ExpiresAt)
}

func TestValidator_DebugToken_NumericUserID(t *testing.T) {
	g := &fakeGraph{debugResp: debugJSON(map[string]interface{}{
		"is_valid":   true,
		"user_id":    float64(123456789),
		"expires_at": float64(1893456000),
	})}

	info, err := NewValidator(g, nil).DebugToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "123456789", info.ProviderUserID)
}

func TestValidator_DebugToken_QueryStringTransport(t *testing.T) {
	g := &fakeGraph{debugResp: &graph.Response{
		StatusCode: 200,
		Raw:        "access_token=tok&expires=1893456000",
	}}

	info, err := NewValidator(g, nil).DebugToken(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, "", info.ProviderUserID)
	require.NotNil(t, info.ExpiresAt)
	assert.Equal(t, time.Unix(1893456000, 0).UTC(), *info.ExpiresAt)
}

func TestValidator_DebugToken_InvalidToken(t *testing.T) {
	g := &fakeGraph{debugResp: debugJSON(map[string]interface{}{
		"is_valid": false,
		"user_id":  "100",
	})}

	_, err := NewValidator(g, nil).DebugToken(context.Background(), "tok")
	require.Error(t, err)

	var derr *TokenDebugError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "token is invalid", derr.Reason)
}

func TestValidator_DebugToken_MissingStatus(t *testing.T) {
	g := &fakeGraph{debugResp: debugJSON(map[string]interface{}{
		"user_id": "100",
	})}

	_, err := NewValidator(g, nil).DebugToken(context.Background(), "tok")

	var derr *TokenDebugError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "no token status in response", derr.Reason)
}

func TestValidator_DebugToken_ProviderRejection(t *testing.T) {
	g := &fakeGraph{debugErr: &graph.Error{Message: "bad token", Code: 190}}

	_, err := NewValidator(g, nil).DebugToken(context.Background(), "tok")

	var derr *TokenDebugError
	require.ErrorAs(t, err, &derr)

	gerr, ok := graph.AsGraphError(derr.Err)
	require.True(t, ok)
	assert.Equal(t, 190, gerr.Code)
}

func TestValidator_DebugToken_InfraErrorPassesThrough(t *testing.T) {
	infraErr := errors.New("connection refused")
	g := &fakeGraph{debugErr: infraErr}

	_, err := NewValidator(g, nil).DebugToken(context.Background(), "tok")
	require.Error(t, err)

	var derr *TokenDebugError
	assert.False(t, errors.As(err, &derr))
	assert.ErrorIs(t, err, infraErr)
}

func TestValidator_DebugToken_ScopePersistFailureIsNonFatal(t *testing.T) {
	g := &fakeGraph{debugResp: debugJSON(map[string]interface{}{
		"is_valid":   true,
		"user_id":    "100",
		"expires_at": float64(1893456000),
		"scopes":     []interface{}{"email"},
	})}
	users := &fakeScopeWriter{err: errors.New("db down")}

	info, err := NewValidator(g, users).DebugToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "100", info.ProviderUserID)
}

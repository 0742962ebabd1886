package graph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(srv *httptest.Server, observers ...Observer) *Client {
	return &Client{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		observers:  observers,
	}
}

type recordingObserver struct {
	calls []CallInfo
}

func (o *recordingObserver) HandleGraphCall(call CallInfo) {
	o.calls = append(o.calls, call)
}

func TestClient_Get_JSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"100","name":"Jan"}`))
	}))
	defer srv.Close()

	resp, err := testClient(srv).Get(context.Background(), "/me", url.Values{
		"access_token": {"tok"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "100", resp.JSON["id"])
}

func TestClient_Get_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190,"error_subcode":463}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).Get(context.Background(), "/me", nil)
	require.Error(t, err)

	gerr, ok := AsGraphError(err)
	require.True(t, ok)
	assert.Equal(t, 190, gerr.Code)
	assert.Equal(t, 463, gerr.Subcode)
	assert.Equal(t, "OAuthException", gerr.Type)
	assert.False(t, gerr.Transient())
}

func TestClient_GetWithRetry_TransientRetriesThenSucceeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"An unknown error occurred","code":1}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"100"}`))
	}))
	defer srv.Close()

	resp, err := testClient(srv).GetWithRetry(context.Background(), "/me", nil)
	require.NoError(t, err)
	assert.Equal(t, "100", resp.JSON["id"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestClient_GetWithRetry_TransientGivesUpAfterMaxTries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"An unknown error occurred","code":1}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).GetWithRetry(context.Background(), "/me", nil)
	require.Error(t, err)

	gerr, ok := AsGraphError(err)
	require.True(t, ok)
	assert.True(t, gerr.Transient())
	assert.Equal(t, int32(MaxTries), atomic.LoadInt32(&hits))
}

func TestClient_GetWithRetry_PermanentErrorNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad token","code":190}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).GetWithRetry(context.Background(), "/me", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_ObserversSeeEveryCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"100"}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	_, err := testClient(srv, obs).Get(context.Background(), "/me", nil)
	require.NoError(t, err)

	require.Len(t, obs.calls, 1)
	assert.Equal(t, http.MethodGet, obs.calls[0].Method)
	assert.Equal(t, "/me", obs.calls[0].Path)
	assert.Equal(t, http.StatusOK, obs.calls[0].Status)
	assert.NoError(t, obs.calls[0].Err)
}

package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/pozytywnie/facebook-auth/internal/pkg/env"
)

const (
	defaultBaseURL = "https://graph.facebook.com"

	// ErrorCodeTransient is the provider error code for temporary failures
	// that are safe to retry in place.
	ErrorCodeTransient = 1

	// MaxTries bounds in-place retries of a single Graph query.
	MaxTries = 3
)

// Error is a typed Graph API error carrying the provider's numeric code.
type Error struct {
	Message string
	Type    string
	Code    int
	Subcode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("graph: %s (code=%d, subcode=%d)", e.Message, e.Code, e.Subcode)
}

// Transient reports whether the error is the provider's "temporary" class.
func (e *Error) Transient() bool {
	return e.Code == ErrorCodeTransient
}

// CallInfo describes a single completed Graph call for observers.
type CallInfo struct {
	Method   string
	Path     string
	Status   int
	Err      error
	Duration time.Duration
}

// Observer is notified synchronously after every Graph call. Observers are an
// explicit list passed into the client; there is no global registry.
type Observer interface {
	HandleGraphCall(call CallInfo)
}

// Client talks to the Graph API. All calls carry a bounded timeout.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	observers []Observer
}

// NewClient builds a Graph client from the environment. Observers are invoked
// around every request with request/response/error/duration.
func NewClient(observers ...Observer) *Client {
	timeout := time.Duration(env.GetEnvInt("GRAPH_TIMEOUT_SECONDS", 20)) * time.Second
	return &Client{
		BaseURL: strings.TrimRight(env.GetEnv("GRAPH_API_BASE_URL", defaultBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		observers: observers,
	}
}

// Get performs a single Graph query. The response body may be a JSON object
// or a query-string encoded payload depending on endpoint and API version;
// both are preserved on the returned Response.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*Response, error) {
	start := time.Now()
	resp, err := c.get(ctx, path, params)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.notify(CallInfo{
		Method:   http.MethodGet,
		Path:     path,
		Status:   status,
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetWithRetry retries transient provider failures up to MaxTries attempts.
// Any other error class is returned immediately.
func (c *Client) GetWithRetry(ctx context.Context, path string, params url.Values) (*Response, error) {
	var lastErr error
	for i := 0; i < MaxTries; i++ {
		resp, err := c.Get(ctx, path, params)
		if err == nil {
			return resp, nil
		}
		gerr, ok := AsGraphError(err)
		if !ok || !gerr.Transient() {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Raw:        string(body),
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err == nil {
		resp.JSON = decoded
	}

	if gerr := extractError(resp.JSON); gerr != nil {
		return resp, gerr
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return resp, fmt.Errorf("graph request failed: status=%d path=%s", httpResp.StatusCode, path)
	}
	return resp, nil
}

func (c *Client) notify(call CallInfo) {
	for _, o := range c.observers {
		o.HandleGraphCall(call)
	}
}

// extractError maps the provider's error envelope onto *Error.
func extractError(decoded map[string]interface{}) *Error {
	if decoded == nil {
		return nil
	}
	rawErr, ok := decoded["error"].(map[string]interface{})
	if !ok {
		return nil
	}
	gerr := &Error{}
	if msg, ok := rawErr["message"].(string); ok {
		gerr.Message = msg
	}
	if typ, ok := rawErr["type"].(string); ok {
		gerr.Type = typ
	}
	gerr.Code = intField(rawErr, "code")
	gerr.Subcode = intField(rawErr, "error_subcode")
	return gerr
}

// AsGraphError unwraps err into *Error when possible.
func AsGraphError(err error) (*Error, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr, true
	}
	return nil, false
}

// LoggingObserver logs failed Graph calls; successful calls stay at debug.
type LoggingObserver struct{}

func (LoggingObserver) HandleGraphCall(call CallInfo) {
	if call.Err != nil {
		log.Warnf("[Graph] %s %s failed after %s: %v", call.Method, call.Path, call.Duration, call.Err)
		return
	}
	log.Debugf("[Graph] %s %s status=%d in %s", call.Method, call.Path, call.Status, call.Duration)
}

package graph

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Response holds one Graph reply. Depending on endpoint and API version the
// body arrives either as a JSON object (JSON is set) or as a query-string
// encoded payload (Raw only). Parsers below accept both transports.
type Response struct {
	StatusCode int
	JSON       map[string]interface{}
	Raw        string
}

// ParseError signals that a required field was missing or malformed in a
// provider response.
type ParseError struct {
	Field string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("graph: response missing required field %q", e.Field)
}

// AccessToken extracts the access_token from either transport.
func (r *Response) AccessToken() (string, error) {
	if r.JSON != nil {
		if tok, ok := r.JSON["access_token"].(string); ok && tok != "" {
			return tok, nil
		}
		return "", &ParseError{Field: "access_token"}
	}
	values, err := url.ParseQuery(r.Raw)
	if err != nil {
		return "", &ParseError{Field: "access_token"}
	}
	toks := values["access_token"]
	if len(toks) == 0 || toks[len(toks)-1] == "" {
		return "", &ParseError{Field: "access_token"}
	}
	return toks[len(toks)-1], nil
}

// AccessTokenWithExpiry extracts access_token plus the raw expiry number.
// JSON bodies carry it as expires_in, query-string bodies as expires; the
// caller decides whether the number is a duration or a unix timestamp, API
// version skew left both in the wild.
func (r *Response) AccessTokenWithExpiry() (string, int64, error) {
	if r.JSON != nil {
		tok, ok := r.JSON["access_token"].(string)
		if !ok || tok == "" {
			return "", 0, &ParseError{Field: "access_token"}
		}
		expires, ok := numberField(r.JSON, "expires_in")
		if !ok {
			return "", 0, &ParseError{Field: "expires_in"}
		}
		return tok, expires, nil
	}

	values, err := url.ParseQuery(r.Raw)
	if err != nil {
		return "", 0, &ParseError{Field: "access_token"}
	}
	toks := values["access_token"]
	if len(toks) == 0 || toks[len(toks)-1] == "" {
		return "", 0, &ParseError{Field: "access_token"}
	}
	raws := values["expires"]
	if len(raws) == 0 {
		return "", 0, &ParseError{Field: "expires"}
	}
	expires, err := strconv.ParseInt(raws[len(raws)-1], 10, 64)
	if err != nil {
		return "", 0, &ParseError{Field: "expires"}
	}
	return toks[len(toks)-1], expires, nil
}

// DebugData returns the "data" envelope of a /debug_token reply, or nil when
// the body had no such mapping.
func (r *Response) DebugData() map[string]interface{} {
	if r.JSON == nil {
		return nil
	}
	data, _ := r.JSON["data"].(map[string]interface{})
	return data
}

func intField(m map[string]interface{}, key string) int {
	n, _ := numberField(m, key)
	return int(n)
}

// numberField tolerates float64, json.Number and numeric strings, all of
// which show up across Graph API versions.
func numberField(m map[string]interface{}, key string) (int64, bool) {
	switch v := m[key].(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
